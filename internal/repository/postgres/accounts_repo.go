package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type accountsRepo struct{ pool *pgxpool.Pool }

const accountCols = `id::text, number, name, document, active, password_hash, created_at, updated_at`

func (r *accountsRepo) Create(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts(id, number, name, document, active, password_hash) VALUES($1,$2,$3,$4,$5,$6)`,
		a.ID, a.Number, a.Name, a.Document, a.Active, a.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, repository.ErrConflict
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return r.GetByID(ctx, a.ID)
}

func (r *accountsRepo) get(ctx context.Context, where string, arg any) (models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE `+where, arg).
		Scan(&a.ID, &a.Number, &a.Name, &a.Document, &a.Active, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, notFound(err)
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Account{}, repository.ErrNotFound
	}
	return r.get(ctx, `id=$1`, id)
}

func (r *accountsRepo) GetByNumber(ctx context.Context, number string) (models.Account, error) {
	return r.get(ctx, `number=$1`, number)
}

func (r *accountsRepo) GetByDocument(ctx context.Context, document string) (models.Account, error) {
	return r.get(ctx, `document=$1`, document)
}

func (r *accountsRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET active=$2, updated_at=now() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
