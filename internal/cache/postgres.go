package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres shares cache entries between processes through the kv_cache
// table, so an invalidation issued by one service is seen by the others.
// Errors only degrade to a miss.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *slog.Logger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

func (c *Postgres) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	var s string
	err := c.pool.QueryRow(ctx,
		`SELECT value FROM kv_cache WHERE key=$1 AND expires_at > now()`, key,
	).Scan(&s)
	if err != nil {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		c.log.Warn("cache: bad value", "key", key, "err", err)
		return decimal.Zero, false
	}
	return v, true
}

func (c *Postgres) Set(ctx context.Context, key string, v decimal.Decimal, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	_, err := c.pool.Exec(ctx,
		`INSERT INTO kv_cache(key, value, expires_at) VALUES($1, $2, now() + make_interval(secs => $3))
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at`,
		key, v.String(), ttl.Seconds(),
	)
	if err != nil {
		c.log.Warn("cache: set failed", "key", key, "err", err)
	}
}

func (c *Postgres) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if _, err := c.pool.Exec(ctx, `DELETE FROM kv_cache WHERE key = ANY($1)`, keys); err != nil {
		c.log.Warn("cache: delete failed", "keys", keys, "err", err)
	}
}
