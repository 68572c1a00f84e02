package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type feesRepo struct{ pool *pgxpool.Pool }

const feeCols = `id::text, account_id::text, account_number, amount::text, type, description, COALESCE(request_id, ''), created_at`

func scanFee(row pgx.Row) (models.Fee, error) {
	var (
		f      models.Fee
		amount string
	)
	if err := row.Scan(&f.ID, &f.AccountID, &f.AccountNumber, &amount, &f.Type, &f.Description, &f.RequestID, &f.CreatedAt); err != nil {
		return models.Fee{}, notFound(err)
	}
	var err error
	f.Amount, err = parseAmount(amount)
	return f, err
}

func (r *feesRepo) Create(ctx context.Context, f models.Fee) (models.Fee, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	out, err := scanFee(r.pool.QueryRow(ctx,
		`INSERT INTO fees (id, account_id, account_number, amount, type, description, request_id)
		 VALUES ($1,$2,$3,$4::numeric,$5,$6,$7)
		 RETURNING `+feeCols,
		f.ID, f.AccountID, f.AccountNumber, f.Amount.String(), f.Type, f.Description, f.RequestID,
	))
	if err != nil {
		return models.Fee{}, fmt.Errorf("insert fee: %w", err)
	}
	return out, nil
}

func (r *feesRepo) GetByID(ctx context.Context, id string) (models.Fee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Fee{}, repository.ErrNotFound
	}
	return scanFee(r.pool.QueryRow(ctx, `SELECT `+feeCols+` FROM fees WHERE id=$1`, id))
}

func (r *feesRepo) ListByAccount(ctx context.Context, accountID string) ([]models.Fee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+feeCols+` FROM fees WHERE account_id=$1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Fee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
