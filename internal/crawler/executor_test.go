package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPooledExecutor(t *testing.T) {
	t.Parallel()

	t.Run("bounds concurrency", func(t *testing.T) {
		t.Parallel()

		const workers = 3
		exec := NewPooledExecutor(workers)

		var running, peak atomic.Int32
		for range 20 {
			err := exec.Submit(t.Context(), func() {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		exec.Wait()

		if got := peak.Load(); got > workers {
			t.Errorf("expected at most %d concurrent units, got %d", workers, got)
		}
		if got := exec.InFlight(); got != 0 {
			t.Errorf("expected nothing in flight, got %d", got)
		}
	})

	t.Run("signals completion", func(t *testing.T) {
		t.Parallel()

		exec := NewPooledExecutor(2)
		if err := exec.Submit(t.Context(), func() {}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		select {
		case <-exec.Completed():
		case <-time.After(5 * time.Second):
			t.Fatal("expected a completion signal")
		}
	})

	t.Run("submit fails when context ends while saturated", func(t *testing.T) {
		t.Parallel()

		exec := NewPooledExecutor(1)
		release := make(chan struct{})
		if err := exec.Submit(t.Context(), func() { <-release }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		var ran atomic.Bool
		if err := exec.Submit(ctx, func() { ran.Store(true) }); err == nil {
			t.Error("expected error from saturated executor")
		}

		close(release)
		exec.Wait()
		if ran.Load() {
			t.Error("expected rejected unit not to run")
		}
	})

	t.Run("zero workers means one", func(t *testing.T) {
		t.Parallel()

		exec := NewPooledExecutor(0)
		var mu sync.Mutex
		count := 0
		for range 5 {
			if err := exec.Submit(t.Context(), func() {
				mu.Lock()
				count++
				mu.Unlock()
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		exec.Wait()
		if count != 5 {
			t.Errorf("expected 5 units, got %d", count)
		}
	})
}

func TestSequentialExecutor(t *testing.T) {
	t.Parallel()

	t.Run("runs inline", func(t *testing.T) {
		t.Parallel()

		exec := NewSequentialExecutor()
		ran := false
		if err := exec.Submit(t.Context(), func() { ran = true }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ran {
			t.Error("expected unit to run before Submit returned")
		}
		if exec.InFlight() != 0 {
			t.Error("expected nothing in flight")
		}
		select {
		case <-exec.Completed():
		default:
			t.Error("expected completed channel to be ready")
		}
	})

	t.Run("rejects after cancel", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		exec := NewSequentialExecutor()
		ran := false
		if err := exec.Submit(ctx, func() { ran = true }); err == nil {
			t.Error("expected error")
		}
		if ran {
			t.Error("expected unit not to run")
		}
	})
}
