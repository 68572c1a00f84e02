package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type movementsRepo struct{ pool *pgxpool.Pool }

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const balanceSQL = `
SELECT COALESCE(SUM(CASE WHEN direction='C' THEN amount ELSE -amount END), 0)::text
  FROM movements
 WHERE account_id=$1`

func balance(ctx context.Context, q querier, accountID string) (decimal.Decimal, error) {
	var s string
	if err := q.QueryRow(ctx, balanceSQL, accountID).Scan(&s); err != nil {
		return decimal.Zero, fmt.Errorf("fold movements: %w", err)
	}
	return parseAmount(s)
}

func (r *movementsRepo) Append(ctx context.Context, m models.Movement) (models.Movement, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var active bool
		err := tx.QueryRow(ctx,
			`SELECT id::text, active FROM accounts WHERE number=$1 FOR UPDATE`, m.AccountNumber,
		).Scan(&m.AccountID, &active)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if !active {
			return repository.ErrAccountInactive
		}
		if m.Direction == models.Debit {
			current, err := balance(ctx, tx, m.AccountID)
			if err != nil {
				return err
			}
			if current.LessThan(m.Amount) {
				return repository.ErrInsufficientFunds
			}
		}
		return tx.QueryRow(ctx,
			`INSERT INTO movements(id, account_id, amount, direction, description, idempotency_key)
			 VALUES($1, $2, $3::numeric, $4, $5, $6)
			 RETURNING created_at`,
			m.ID, m.AccountID, m.Amount.String(), string(m.Direction), m.Description, m.IdempotencyKey,
		).Scan(&m.CreatedAt)
	})
	if err != nil {
		return models.Movement{}, err
	}
	return m, nil
}

func (r *movementsRepo) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return balance(ctx, r.pool, accountID)
}

func (r *movementsRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT m.id::text, m.account_id::text, a.number, m.amount::text, m.direction, m.description, m.idempotency_key, m.created_at
		   FROM movements m JOIN accounts a ON a.id = m.account_id
		  WHERE m.account_id=$1
		  ORDER BY m.created_at DESC
		  LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Movement
	for rows.Next() {
		var (
			m      models.Movement
			amount string
			dir    string
		)
		if err := rows.Scan(&m.ID, &m.AccountID, &m.AccountNumber, &amount, &dir, &m.Description, &m.IdempotencyKey, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		m.Direction = models.Direction(dir)
		out = append(out, m)
	}
	return out, rows.Err()
}
