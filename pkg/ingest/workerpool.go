package ingest

import (
	"context"
	"sync"
)

// Job is a unit of work run by a WorkerPool.
type Job func(ctx context.Context) error

// WorkerPool runs jobs on a fixed number of goroutines. The ingester uses it
// to tokenize paragraphs in parallel.
type WorkerPool struct {
	jobs    chan Job
	quit    chan struct{}
	workers int

	wg      sync.WaitGroup // running workers
	pending sync.WaitGroup // submitters blocked on a full queue

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool creates a pool with the given number of workers and queue
// capacity. Non-positive values fall back to one worker and a queue twice the
// worker count.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Start launches the workers. They run until ctx is done or Close has
// drained the queue.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					// Jobs report failures through their own channels.
					_ = job(ctx)
				}
			}
		}()
	}
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed once Close has been called.
func (p *WorkerPool) Submit(job Job) error {
	return p.SubmitCtx(context.Background(), job)
}

// SubmitCtx is Submit that also gives up when ctx is done.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.pending.Add(1)
	p.mu.Unlock()
	defer p.pending.Done()

	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, lets queued ones finish and waits for the
// workers to exit.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	p.pending.Wait()
	close(p.jobs)
	p.wg.Wait()
}

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is the error type of pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
