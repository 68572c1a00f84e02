package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/baharkarakas/bankmore/internal/logger"
	"github.com/baharkarakas/bankmore/internal/worker"
)

func TestBusFetchCommit(t *testing.T) {
	ctx := context.Background()
	b := NewBus()
	for i := 0; i < 3; i++ {
		if err := b.Publish(ctx, "a", "k", map[string]int{"i": i}); err != nil {
			t.Fatal(err)
		}
	}
	_ = b.Publish(ctx, "b", "k", "other")

	got, _ := b.Fetch(ctx, "g", "a", 2)
	if len(got) != 2 || got[0].Offset != 1 {
		t.Fatalf("first fetch = %+v", got)
	}
	_ = b.Commit(ctx, "g", "a", got[1].Offset)

	got, _ = b.Fetch(ctx, "g", "a", 10)
	if len(got) != 1 {
		t.Fatalf("after commit fetched %d, want 1", len(got))
	}
	var v map[string]int
	if err := got[0].Decode(&v); err != nil || v["i"] != 2 {
		t.Fatalf("decode = %v %v", v, err)
	}

	// commit never goes backwards
	_ = b.Commit(ctx, "g", "a", 1)
	if got, _ = b.Fetch(ctx, "g", "a", 10); len(got) != 1 {
		t.Fatalf("backwards commit moved the offset")
	}
	// other groups are independent
	if got, _ = b.Fetch(ctx, "other", "a", 10); len(got) != 3 {
		t.Fatalf("fresh group fetched %d, want 3", len(got))
	}
}

func TestBusClosed(t *testing.T) {
	b := NewBus()
	_ = b.Close()
	if err := b.Publish(context.Background(), "a", "k", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("publish after close = %v", err)
	}
}

func TestConsumerPollCommitsAfterBatch(t *testing.T) {
	ctx := context.Background()
	b := NewBus()
	for i := 0; i < 5; i++ {
		_ = b.Publish(ctx, "t", "k", i)
	}
	pool := worker.NewPool(3)
	defer pool.Stop()

	var (
		mu   sync.Mutex
		seen []int64
	)
	h := func(_ context.Context, e Event) error {
		mu.Lock()
		seen = append(seen, e.Offset)
		mu.Unlock()
		if e.Offset == 2 {
			return errors.New("boom")
		}
		return nil
	}
	c := NewConsumer(b, pool, ConsumerConfig{Group: "g", Topic: "t", BatchSize: 10}, h, logger.Discard())

	n, err := c.Poll(ctx)
	if err != nil || n != 5 {
		t.Fatalf("poll = %d, %v", n, err)
	}
	if len(seen) != 5 {
		t.Fatalf("handled %d events", len(seen))
	}
	if n, _ := c.Poll(ctx); n != 0 {
		t.Fatalf("second poll handled %d, want 0 after commit", n)
	}

	b.Rewind("g", "t", 0)
	if n, _ := c.Poll(ctx); n != 5 {
		t.Fatalf("rewind redelivered %d, want 5", n)
	}
}
