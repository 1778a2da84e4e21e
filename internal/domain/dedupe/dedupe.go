// Package dedupe tracks already-ingested risk event ids. The external
// telematics feed delivers at-least-once, so replays of the same event
// id must not double-count against a driver's local risk score.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default bound on remembered event ids.
const defaultMaxSize = 50000

// Deduper records seen event ids to ensure at-most-once ingestion.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records
	// it if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so ingestion can be retried. Only used
	// when an event was marked seen but failed to be recorded.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of remembered ids.
	Size() int64
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids. Oldest ids are
// evicted first once the bound is reached; maxSize <= 0 disables
// eviction entirely.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// inMemoryDeduper keeps seen ids in a map plus a FIFO ring of insertion
// order for bounded eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, oldest first; unused when unbounded
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper with options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		// Evict the oldest remembered id still present. Unrecorded ids
		// leave tombstones in the ring that are skipped here.
		for len(d.order) > 0 {
			oldest := d.order[0]
			d.order = d.order[1:]
			if _, ok := d.seen[oldest]; ok {
				delete(d.seen, oldest)
				d.size.Add(-1)
				break
			}
		}
	}

	d.seen[id] = struct{}{}
	if d.maxSize > 0 {
		d.order = append(d.order, id)
	}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
