// Package telematics defines the external safety-score gateway contract.
//
// The provider's API shape is out of scope; only the single score value
// per external driver id is consumed. The in-memory implementation
// simulates provider latency so timeout propagation gets exercised.
package telematics

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Sentinel kinds for gateway errors.
var (
	ErrUnavailable = errors.New("telematics gateway unavailable")
)

// Default simulated latency bounds.
const (
	defaultMinLatency = 5 * time.Millisecond
	defaultMaxLatency = 25 * time.Millisecond
	defaultRandomSeed = 42
)

// Gateway looks up the external safety score for a linked driver.
type Gateway interface {
	// SafetyScore returns the provider score for the external id.
	// ok is false when the id is unknown to the provider; that is not
	// an error, callers substitute the fallback score. A non-nil error
	// means the provider was unreachable and the caller must fail.
	SafetyScore(ctx context.Context, externalID string) (score float64, ok bool, err error)
}

// Option applies a configuration option to the InMemoryGateway.
type Option func(*InMemoryGateway)

// WithLatencyRange sets the simulated provider latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(g *InMemoryGateway) {
		if minLatency > 0 && maxLatency > minLatency {
			g.minLatency = minLatency
			g.maxLatency = maxLatency
		}
	}
}

// WithScores preloads provider scores keyed by external driver id.
func WithScores(scores map[string]float64) Option {
	return func(g *InMemoryGateway) {
		for id, score := range scores {
			g.scores[id] = score
		}
	}
}

// WithFailure forces every lookup to fail, for testing the scoring
// engine's no-partial-write guarantee.
func WithFailure() Option {
	return func(g *InMemoryGateway) {
		g.failing = true
	}
}

// InMemoryGateway implements Gateway over a local score table with
// simulated latency.
type InMemoryGateway struct {
	mu         sync.RWMutex
	scores     map[string]float64
	minLatency time.Duration
	maxLatency time.Duration
	failing    bool
	rng        *rand.Rand
}

// NewInMemoryGateway creates a gateway with configuration options.
func NewInMemoryGateway(opts ...Option) *InMemoryGateway {
	g := &InMemoryGateway{
		scores:     make(map[string]float64),
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SafetyScore looks up the provider score, honoring ctx cancellation.
func (g *InMemoryGateway) SafetyScore(ctx context.Context, externalID string) (float64, bool, error) {
	g.mu.Lock()
	latency := g.minLatency + time.Duration(g.rng.Int63n(int64(g.maxLatency-g.minLatency)))
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case <-time.After(latency):
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.failing {
		return 0, false, ErrUnavailable
	}
	score, ok := g.scores[externalID]
	if !ok {
		return 0, false, nil
	}
	return score, true, nil
}

// SetScore sets or updates the provider score for an external id.
func (g *InMemoryGateway) SetScore(externalID string, score float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scores[externalID] = score
}
