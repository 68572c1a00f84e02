package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	repo "github.com/baharkarakas/bankmore/internal/repository"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Accounts:    &accountsRepo{pool},
		Movements:   &movementsRepo{pool},
		Transfers:   &transfersRepo{pool},
		Fees:        &feesRepo{pool},
		Idempotency: &idempotencyRepo{pool},
		AuditLogs:   &auditLogsRepo{pool},
	}
}

// withTx runs fn in one read-committed transaction; row locks taken by fn
// provide the isolation the ledger needs.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// numeric columns are selected as ::text and parsed here so the decimal
// representation never goes through float64.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}
