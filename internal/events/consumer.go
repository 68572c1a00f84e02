package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/worker"
)

// Handler processes one event. A returned error is logged; the offset is
// committed regardless, and redelivery is left to a rewind or a crash
// before commit.
type Handler func(ctx context.Context, e Event) error

type ConsumerConfig struct {
	Group        string
	Topic        string
	BatchSize    int
	PollInterval time.Duration
}

type Consumer struct {
	log     Log
	pool    *worker.Pool
	cfg     ConsumerConfig
	handler Handler
	logger  *slog.Logger
}

func NewConsumer(l Log, pool *worker.Pool, cfg ConsumerConfig, h Handler, logger *slog.Logger) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Consumer{
		log:     l,
		pool:    pool,
		cfg:     cfg,
		handler: h,
		logger:  logger.With("group", cfg.Group, "topic", cfg.Topic),
	}
}

// Run polls until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	t := time.NewTicker(c.cfg.PollInterval)
	defer t.Stop()
	for {
		n, err := c.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			c.logger.Error("poll failed", "err", err)
		}
		// drain without waiting while batches come back full
		if err == nil && n == c.cfg.BatchSize {
			continue
		}
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return nil
		case <-t.C:
		}
	}
}

// Poll handles one batch and commits its last offset. It returns the
// number of events handled.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	batch, err := c.log.Fetch(ctx, c.cfg.Group, c.cfg.Topic, c.cfg.BatchSize)
	if err != nil || len(batch) == 0 {
		return 0, err
	}

	fns := make([]func(), len(batch))
	for i, e := range batch {
		e := e
		fns[i] = func() {
			if err := c.handler(ctx, e); err != nil {
				metrics.EventsConsumed.WithLabelValues(e.Topic, "error").Inc()
				c.logger.Error("handler failed", "offset", e.Offset, "key", e.Key, "err", err)
				return
			}
			metrics.EventsConsumed.WithLabelValues(e.Topic, "ok").Inc()
		}
	}
	if err := c.pool.RunAll(ctx, fns); err != nil {
		// part of the batch never ran; leave the offset so it is redelivered
		return 0, err
	}
	last := batch[len(batch)-1].Offset
	if err := c.log.Commit(ctx, c.cfg.Group, c.cfg.Topic, last); err != nil {
		return 0, err
	}
	return len(batch), nil
}
