package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type idempotencyRepo struct{ pool *pgxpool.Pool }

func (r *idempotencyRepo) Insert(ctx context.Context, rec models.IdempotencyRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (scope, key, fingerprint, status) VALUES ($1, $2, $3, 'PENDING')`,
		rec.Scope, rec.Key, rec.Fingerprint,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("reserve idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepo) Get(ctx context.Context, scope, key string) (models.IdempotencyRecord, error) {
	var (
		rec      models.IdempotencyRecord
		status   string
		response string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT scope, key, fingerprint, status, COALESCE(response::text, ''), created_at, updated_at
		   FROM idempotency_keys
		  WHERE scope=$1 AND key=$2`,
		scope, key,
	).Scan(&rec.Scope, &rec.Key, &rec.Fingerprint, &status, &response, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return models.IdempotencyRecord{}, notFound(err)
	}
	rec.Status = models.IdempotencyStatus(status)
	if response != "" {
		rec.Response = json.RawMessage(response)
	}
	return rec, nil
}

func (r *idempotencyRepo) Refingerprint(ctx context.Context, scope, key, fingerprint string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE idempotency_keys
		    SET fingerprint=$3, updated_at=now()
		  WHERE scope=$1 AND key=$2 AND status='PENDING'`,
		scope, key, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("refingerprint idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *idempotencyRepo) Complete(ctx context.Context, scope, key string, response []byte) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE idempotency_keys
		    SET status='COMPLETED', response=$3::jsonb, updated_at=now()
		  WHERE scope=$1 AND key=$2`,
		scope, key, string(response),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
