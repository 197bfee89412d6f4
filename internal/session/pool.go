package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yegors/co-translate/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool runs jobs on a fixed number of workers behind a bounded queue.
// Submit blocks while the queue is full.
type Pool struct {
	jobs   chan func()
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	logger *logger.Logger
}

// NewPool starts workers goroutines reading from a queue of queueSize jobs
func NewPool(workers, queueSize int, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		jobs:   make(chan func(), queueSize),
		logger: log.Named("pool"),
	}

	p.logger.Debug("Starting worker pool",
		logger.Int("workers", workers),
		logger.Int("queue_size", queueSize))

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked",
				logger.Int("worker", id),
				logger.String("panic", fmt.Sprint(r)))
		}
	}()
	job()
}

// Submit queues job, waiting for room until ctx is done
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued jobs not yet picked up
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Close stops accepting jobs and waits for queued and running jobs to finish
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("Worker pool drained")
}
