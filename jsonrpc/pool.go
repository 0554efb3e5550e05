package jsonrpc

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/blockberries/ledgerd/metrics"
)

// DefaultWorkers is the number of request workers when none is configured.
const DefaultWorkers = 4

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("jsonrpc: worker pool stopped")

// WorkerPool runs jobs on a fixed number of goroutines. A job that
// panics is logged and does not take its worker down.
type WorkerPool struct {
	jobs    chan func()
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWorkerPool starts n workers, or DefaultWorkers if n <= 0. Up to
// queue jobs may wait for a worker.
func NewWorkerPool(n, queue int, logger *slog.Logger, m *metrics.Metrics) *WorkerPool {
	if n <= 0 {
		n = DefaultWorkers
	}
	if queue < 0 {
		queue = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &WorkerPool{
		jobs:    make(chan func(), queue),
		quit:    make(chan struct{}),
		logger:  logger,
		metrics: m,
	}
	for range n {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues job, blocking while the queue is full. It fails if ctx
// ends or the pool stops first.
func (p *WorkerPool) Submit(ctx context.Context, job func()) error {
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	select {
	case p.jobs <- job:
		p.metrics.SetQueueDepth(len(p.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolStopped
	}
}

// Stop stops the workers and waits for running jobs to finish. Jobs
// still queued are dropped. Stop is idempotent.
func (p *WorkerPool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Done is closed once Stop has been called.
func (p *WorkerPool) Done() <-chan struct{} {
	return p.quit
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case job := <-p.jobs:
			p.metrics.SetQueueDepth(len(p.jobs))
			p.run(job)
		}
	}
}

func (p *WorkerPool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("rpc worker panic", "panic", r)
		}
	}()
	job()
}
