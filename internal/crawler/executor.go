package crawler

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Executor runs units of work submitted by the engine's run loop.
type Executor interface {
	// Submit runs fn, possibly asynchronously. It blocks while the executor
	// is saturated and returns ctx's error if ctx ends before fn starts.
	Submit(ctx context.Context, fn func()) error

	// Completed is signalled after units finish. Signals may be coalesced,
	// so a receiver must re-check its own condition.
	Completed() <-chan struct{}

	// InFlight returns the number of submitted units that have not finished.
	InFlight() int

	// Wait blocks until every submitted unit has finished.
	Wait()
}

// PooledExecutor runs at most a fixed number of units concurrently,
// each in its own goroutine.
type PooledExecutor struct {
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	inFlight  atomic.Int64
	completed chan struct{}
}

// NewPooledExecutor creates an executor with the given number of workers.
// Values below 1 are treated as 1.
func NewPooledExecutor(workers int) *PooledExecutor {
	if workers < 1 {
		workers = 1
	}
	return &PooledExecutor{
		sem:       semaphore.NewWeighted(int64(workers)),
		completed: make(chan struct{}, 1),
	}
}

// Submit waits for a free worker and starts fn on it.
func (p *PooledExecutor) Submit(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.inFlight.Add(1)
	p.wg.Add(1)

	go func() {
		defer p.finish()
		fn()
	}()
	return nil
}

// finish releases the worker before signalling, so a woken run loop sees
// the unit's frontier updates and a free slot.
func (p *PooledExecutor) finish() {
	p.sem.Release(1)
	p.inFlight.Add(-1)
	p.wg.Done()

	select {
	case p.completed <- struct{}{}:
	default:
	}
}

// Completed implements Executor.
func (p *PooledExecutor) Completed() <-chan struct{} {
	return p.completed
}

// InFlight implements Executor.
func (p *PooledExecutor) InFlight() int {
	return int(p.inFlight.Load())
}

// Wait implements Executor.
func (p *PooledExecutor) Wait() {
	p.wg.Wait()
}

// SequentialExecutor runs each unit inline on the caller's goroutine.
// Nothing is ever in flight between calls, which makes runs deterministic.
type SequentialExecutor struct {
	done chan struct{}
}

// NewSequentialExecutor creates a SequentialExecutor.
func NewSequentialExecutor() *SequentialExecutor {
	done := make(chan struct{})
	close(done)
	return &SequentialExecutor{done: done}
}

// Submit runs fn unless ctx has already ended.
func (s *SequentialExecutor) Submit(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// Completed returns a closed channel; every unit is complete once Submit returns.
func (s *SequentialExecutor) Completed() <-chan struct{} {
	return s.done
}

// InFlight always returns 0.
func (s *SequentialExecutor) InFlight() int {
	return 0
}

// Wait returns immediately.
func (s *SequentialExecutor) Wait() {}
