package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type transfersRepo struct{ pool *pgxpool.Pool }

const transferCols = `id::text, origin_account_id::text, origin_number, destination_account_id::text, destination_number,
       amount::text, status, description, COALESCE(idempotency_key, ''), debited, completed_at, created_at`

func scanTransfer(row pgx.Row) (models.Transfer, error) {
	var (
		t      models.Transfer
		amount string
	)
	err := row.Scan(&t.ID, &t.OriginAccountID, &t.OriginNumber, &t.DestinationAccountID, &t.DestinationNumber,
		&amount, &t.Status, &t.Description, &t.IdempotencyKey, &t.Debited, &t.CompletedAt, &t.CreatedAt)
	if err != nil {
		return models.Transfer{}, notFound(err)
	}
	t.Amount, err = parseAmount(amount)
	return t, err
}

func (r *transfersRepo) Create(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transfers (id, origin_account_id, origin_number, destination_account_id, destination_number,
		                        amount, status, description, idempotency_key)
		 VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9)
		 RETURNING `+transferCols,
		t.ID, t.OriginAccountID, t.OriginNumber, t.DestinationAccountID, t.DestinationNumber,
		t.Amount.String(), t.Status, t.Description, t.IdempotencyKey,
	)
	out, err := scanTransfer(row)
	if err != nil {
		return models.Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}
	return out, nil
}

func (r *transfersRepo) GetByID(ctx context.Context, id string) (models.Transfer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Transfer{}, repository.ErrNotFound
	}
	return scanTransfer(r.pool.QueryRow(ctx, `SELECT `+transferCols+` FROM transfers WHERE id=$1`, id))
}

func (r *transfersRepo) ListByAccount(ctx context.Context, accountID string) ([]models.Transfer, error) {
	return r.list(ctx, `WHERE origin_account_id=$1 OR destination_account_id=$1`, accountID)
}

func (r *transfersRepo) ListByIdempotencyKey(ctx context.Context, key string) ([]models.Transfer, error) {
	return r.list(ctx, `WHERE idempotency_key=$1`, key)
}

func (r *transfersRepo) MarkDebited(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transfers SET debited=true WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("mark transfer debited: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *transfersRepo) list(ctx context.Context, where string, arg any) ([]models.Transfer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transferCols+` FROM transfers `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transfersRepo) Finish(ctx context.Context, id string, status models.TransferStatus) (models.Transfer, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE transfers
		    SET status=$2,
		        completed_at = CASE WHEN $2 = 1 THEN now() ELSE completed_at END
		  WHERE id=$1 AND status=0
		  RETURNING `+transferCols,
		id, status,
	)
	t, err := scanTransfer(row)
	if errors.Is(err, repository.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return models.Transfer{}, repository.ErrConflict
		}
	}
	return t, err
}
