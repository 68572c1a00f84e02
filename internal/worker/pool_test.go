package worker

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestRunAllWaitsForBatch(t *testing.T) {
	p := NewPool(4)
	defer p.Stop()

	var n int64
	fns := make([]func(), 50)
	for i := range fns {
		fns[i] = func() { atomic.AddInt64(&n, 1) }
	}
	if err := p.RunAll(context.Background(), fns); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&n); got != 50 {
		t.Fatalf("ran %d tasks before RunAll returned, want 50", got)
	}
}

func TestSubmitCancelled(t *testing.T) {
	p := &Pool{jobs: make(chan task)} // no workers, unbuffered
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Submit(ctx, func() {}); err == nil {
		t.Fatalf("submit on a cancelled context should fail")
	}
}
