package resilience

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolExecutesJobs(t *testing.T) {
	pool := NewWorkerPool(3, 6)

	var count int32
	for i := 0; i < 10; i++ {
		if err := pool.Submit(context.Background(), func() {
			atomic.AddInt32(&count, 1)
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	pool.Close()
	pool.Wait()

	if got := atomic.LoadInt32(&count); got != 10 {
		t.Fatalf("expected 10 jobs executed, got %d", got)
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	pool.Close()
	if err := pool.Submit(context.Background(), func() {}); err != ErrWorkerPoolClosed {
		t.Fatalf("expected ErrWorkerPoolClosed, got %v", err)
	}
}

func TestWorkerPoolTrySubmitSaturated(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})

	// Occupy the single worker and fill the single queue slot.
	if err := pool.TrySubmit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	<-started
	if err := pool.TrySubmit(func() { <-release }); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	if err := pool.TrySubmit(func() {}); err != ErrWorkerPoolSaturated {
		t.Fatalf("expected ErrWorkerPoolSaturated, got %v", err)
	}

	close(release)
}
