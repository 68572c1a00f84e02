package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/bankmore/internal/metrics"
)

// Postgres keeps the event log in the events table; consumer progress is
// one row per (group, topic) in consumer_offsets.
type Postgres struct {
	pool   *pgxpool.Pool
	log    *slog.Logger
	closed atomic.Bool
}

// OpenPostgres checks the pool is reachable before handing out a publisher.
func OpenPostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("events: ping: %w", err)
	}
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Publish(ctx context.Context, topic, key string, payload any) error {
	if p.closed.Load() {
		return ErrClosed
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", topic, err)
	}
	var offset int64
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var err error
		offset, err = appendEvent(ctx, tx, topic, key, b)
		return err
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	p.log.Debug("event published", "topic", topic, "key", key, "offset", offset)
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// appendEvent must run inside a transaction. The per-topic lock is held
// until commit, so offsets of a topic become visible in increasing order
// and a consumer reading past last_offset never skips a late commit.
func appendEvent(ctx context.Context, q querier, topic, key string, payload []byte) (int64, error) {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('events:' || $1))`, topic); err != nil {
		return 0, fmt.Errorf("lock topic: %w", err)
	}
	var offset int64
	err := q.QueryRow(ctx,
		`INSERT INTO events(topic, key, payload) VALUES($1, $2, $3::jsonb) RETURNING "offset"`,
		topic, key, string(payload),
	).Scan(&offset)
	return offset, err
}

// Close does not close the pool; its owner does.
func (p *Postgres) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *Postgres) Fetch(ctx context.Context, group, topic string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx,
		`SELECT e."offset", e.topic, COALESCE(e.key, ''), e.payload::text, e.created_at
		   FROM events e
		  WHERE e.topic = $1
		    AND e."offset" > COALESCE(
		        (SELECT last_offset FROM consumer_offsets WHERE group_name = $2 AND topic = $1), 0)
		  ORDER BY e."offset"
		  LIMIT $3`,
		topic, group, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("events: fetch %s: %w", topic, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			payload string
		)
		if err := rows.Scan(&e.Offset, &e.Topic, &e.Key, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Commit never moves a group backwards.
func (p *Postgres) Commit(ctx context.Context, group, topic string, offset int64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO consumer_offsets(group_name, topic, last_offset) VALUES($1, $2, $3)
		 ON CONFLICT (group_name, topic) DO UPDATE
		   SET last_offset = GREATEST(consumer_offsets.last_offset, EXCLUDED.last_offset),
		       updated_at  = now()`,
		group, topic, offset,
	)
	if err != nil {
		return fmt.Errorf("events: commit %s/%s: %w", group, topic, err)
	}
	return nil
}
