// Package pool runs independent jobs on a fixed number of goroutines.
package pool

import (
	"context"
	"errors"
	"sync"
)

// Job is a unit of work submitted to a Pool.
type Job func(ctx context.Context) error

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs jobs using a fixed number of goroutines. Job errors do not stop
// other jobs; they are collected and returned from Close.
type Pool struct {
	jobs    chan Job
	quit    chan struct{}
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	sending sync.WaitGroup

	errMu sync.Mutex
	errs  []error
}

// New creates a pool with the given number of workers and queue capacity.
func New(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &Pool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Start launches the workers. They run until Close drains the queue or ctx is done.
func (p *Pool) Start(ctx context.Context) {
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
					if err := job(ctx); err != nil {
						p.errMu.Lock()
						p.errs = append(p.errs, err)
						p.errMu.Unlock()
					}
				}
			}
		}()
	}
}

// Submit enqueues a job. It blocks while the queue is full and returns
// ErrPoolClosed if the pool is closed first, or ctx.Err() if ctx ends first.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.sending.Add(1)
	p.mu.RUnlock()
	defer p.sending.Done()

	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, waits for queued and running jobs to finish and
// returns the joined job errors.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	// No sender can reach the channel once in-flight Submits have returned.
	p.sending.Wait()
	close(p.jobs)
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}
