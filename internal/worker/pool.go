package worker

import (
	"context"
	"sync"

	"github.com/baharkarakas/bankmore/internal/metrics"
)

type task func()

// Pool runs submitted tasks on a fixed set of goroutines.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				job()
			}
		}()
	}
	return p
}

// Submit blocks while the queue is full; it gives up when ctx is done.
func (p *Pool) Submit(ctx context.Context, f func()) error {
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAll submits every fn and returns once all of them finished. Tasks that
// could not be queued before ctx ended are not run.
func (p *Pool) RunAll(ctx context.Context, fns []func()) error {
	var batch sync.WaitGroup
	var err error
	for _, fn := range fns {
		fn := fn
		batch.Add(1)
		if err = p.Submit(ctx, func() { defer batch.Done(); fn() }); err != nil {
			batch.Done()
			break
		}
	}
	batch.Wait()
	return err
}

func (p *Pool) Stop() { close(p.jobs); p.wg.Wait() }
