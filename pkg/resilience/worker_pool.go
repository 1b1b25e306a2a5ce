package resilience

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrWorkerPoolClosed    = errors.New("worker pool is closed")
	ErrWorkerPoolSaturated = errors.New("worker pool queue is full")
)

// WorkerPool runs submitted jobs on a fixed number of goroutines with a
// bounded queue. TrySubmit gives callers an immediate busy signal instead of
// blocking, which is how the conversion engine enforces its concurrency cap.
type WorkerPool struct {
	jobs   chan func()
	closed bool
	mu     sync.RWMutex
	once   sync.Once
	wg     sync.WaitGroup
}

func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}

	p := &WorkerPool{
		jobs: make(chan func(), queueSize),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if job != nil {
					job()
				}
			}
		}()
	}

	return p
}

// Submit enqueues a job, blocking until there is queue space or ctx ends.
func (p *WorkerPool) Submit(ctx context.Context, job func()) error {
	if job == nil {
		return nil
	}
	if p.isClosed() {
		return ErrWorkerPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// TrySubmit enqueues a job only if queue space is immediately available.
func (p *WorkerPool) TrySubmit(job func()) error {
	if job == nil {
		return nil
	}
	if p.isClosed() {
		return ErrWorkerPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrWorkerPoolSaturated
	}
}

func (p *WorkerPool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *WorkerPool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
