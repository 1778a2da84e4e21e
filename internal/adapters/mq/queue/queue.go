// Package queue defines the contract for enqueuing and consuming
// rescore jobs. The fleet rescore pipeline is in-process: a bounded
// channel feeds the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10000
)

// Job asks a worker to recompute one driver's composite score.
type Job struct {
	OrgID    string
	DriverID string
	Window   model.Window
}

// Queue provides non-blocking enqueue and channel-based dequeue
// semantics for rescore jobs.
type Queue interface {
	// Enqueue adds a job. Returns false when the queue is full or
	// closed; the job was not enqueued.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel receiving jobs as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close shuts the queue down; no further enqueues succeed.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates an in-memory rescore queue with options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateRescoreQueueCapacity(q.capacity)
	metrics.UpdateRescoreQueueDepth(0)
	metrics.UpdateRescoreQueueUtilization(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordRescoreEnqueueError()
		metrics.RecordErrorByComponent("rescore_queue", "closed")
		return false
	}

	select {
	case q.jobs <- j:
		metrics.RecordRescoreEnqueue()
		q.observeDepth()
		return true
	case <-ctx.Done():
		metrics.RecordRescoreEnqueueError()
		metrics.RecordErrorByComponent("rescore_queue", "context_cancelled")
		return false
	default:
		metrics.RecordRescoreEnqueueError()
		metrics.RecordErrorByComponent("rescore_queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for job := range q.jobs {
			select {
			case out <- job:
				metrics.RecordRescoreDequeue()
				q.observeDepth()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	depth := len(q.jobs)
	metrics.UpdateRescoreQueueDepth(depth)
	return depth
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observeDepth() {
	depth := len(q.jobs)
	metrics.UpdateRescoreQueueDepth(depth)
	metrics.UpdateRescoreQueueUtilization(float64(depth) / float64(q.capacity))
}
