// Package worker runs the background fleet-rescore pipeline. Workers
// drain the rescore queue and recompute composite scores one driver at
// a time; per-driver write serialization happens inside the rescorer.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/fleetsense/fleetsense/internal/adapters/mq/queue"
	"github.com/fleetsense/fleetsense/pkg/logger"
	"github.com/fleetsense/fleetsense/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Rescorer recomputes and persists one driver's composite score.
type Rescorer interface {
	CalculateScore(ctx context.Context, orgID, driverID string, window string) error
}

// Queue defines how workers receive rescore jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes rescore jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over the in-process queue.
type InMemoryWorker struct {
	queue    Queue
	rescorer Rescorer
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, rescorer Rescorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		rescorer: rescorer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "rescore job failed",
					logger.String("driver_id", job.DriverID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob recomputes the composite score for one driver.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.rescorer.CalculateScore(ctx, job.OrgID, job.DriverID, string(job.Window)); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "rescore_error")
		return fmt.Errorf("rescore driver %s: %w", job.DriverID, err)
	}
	return nil
}

// Pool manages multiple rescore workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool of the given size.
func NewPool(workerCount int, q Queue, rescorer Rescorer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, rescorer, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerCount(0)
}

// Shutdown closes the queue, then waits for workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
