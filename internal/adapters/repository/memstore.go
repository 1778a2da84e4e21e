package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/pkg/metrics"
)

// orgKey namespaces entity ids by tenant.
type orgKey struct {
	orgID string
	id    string
}

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithSeedDrivers preloads drivers at construction, mainly for tests
// and the simulator.
func WithSeedDrivers(drivers ...model.Driver) Option {
	return func(s *MemStore) {
		s.seed = append(s.seed, drivers...)
	}
}

// MemStore is the in-memory Store implementation. All maps are guarded
// by mu; per-driver write locks serialize the scoring write path.
type MemStore struct {
	mu sync.RWMutex

	drivers   map[orgKey]model.Driver
	events    map[orgKey][]model.RiskEvent         // keyed by driver
	snapshots map[orgKey][]model.RiskScoreSnapshot // keyed by driver, append-only
	plans     map[orgKey]model.CoachingPlan

	lockMu      sync.Mutex
	driverLocks map[string]*sync.Mutex

	seed   []model.Driver
	closed bool
}

// NewMemStore creates an empty in-memory store with options.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		drivers:     make(map[orgKey]model.Driver),
		events:      make(map[orgKey][]model.RiskEvent),
		snapshots:   make(map[orgKey][]model.RiskScoreSnapshot),
		plans:       make(map[orgKey]model.CoachingPlan),
		driverLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, d := range s.seed {
		s.drivers[orgKey{d.OrgID, d.ID}] = d
	}
	metrics.UpdateDriversTracked(len(s.drivers))
	return s
}

// PutDriver inserts or replaces a driver.
func (s *MemStore) PutDriver(_ context.Context, d model.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.drivers[orgKey{d.OrgID, d.ID}] = d
	metrics.UpdateDriversTracked(len(s.drivers))
	return nil
}

// GetDriver returns a driver by id within the org.
func (s *MemStore) GetDriver(_ context.Context, orgID, driverID string) (model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[orgKey{orgID, driverID}]
	if !ok {
		return model.Driver{}, fmt.Errorf("%w: %s", ErrDriverNotFound, driverID)
	}
	return d, nil
}

// ListDrivers returns all drivers for the org, ordered by id.
func (s *MemStore) ListDrivers(_ context.Context, orgID string) ([]model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Driver, 0)
	for k, d := range s.drivers {
		if k.orgID == orgID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetCurrentRiskScore overwrites the driver's stored risk score.
func (s *MemStore) SetCurrentRiskScore(_ context.Context, orgID, driverID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := orgKey{orgID, driverID}
	d, ok := s.drivers[k]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDriverNotFound, driverID)
	}
	d.RiskScore = score
	s.drivers[k] = d
	return nil
}

// AppendEvent records an immutable risk event.
func (s *MemStore) AppendEvent(_ context.Context, e model.RiskEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	k := orgKey{e.OrgID, e.DriverID}
	s.events[k] = append(s.events[k], e)
	return nil
}

// ListEventsSince returns the driver's events at or after since.
func (s *MemStore) ListEventsSince(_ context.Context, orgID, driverID string, since time.Time) ([]model.RiskEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterEvents(s.events[orgKey{orgID, driverID}], since), nil
}

// ListOrgEventsSince returns all events for the org at or after since.
func (s *MemStore) ListOrgEventsSince(_ context.Context, orgID string, since time.Time) ([]model.RiskEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RiskEvent, 0)
	for k, events := range s.events {
		if k.orgID == orgID {
			out = append(out, filterEvents(events, since)...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func filterEvents(events []model.RiskEvent, since time.Time) []model.RiskEvent {
	out := make([]model.RiskEvent, 0, len(events))
	for _, e := range events {
		if !e.OccurredAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

// AppendSnapshot records a score snapshot. History is append-only, so
// this is the only snapshot write.
func (s *MemStore) AppendSnapshot(_ context.Context, snap model.RiskScoreSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	k := orgKey{snap.OrgID, snap.DriverID}
	s.snapshots[k] = append(s.snapshots[k], snap)
	metrics.RecordSnapshotAppended()
	return nil
}

// ListSnapshots returns the driver's snapshots in chronological order.
func (s *MemStore) ListSnapshots(_ context.Context, orgID, driverID string) ([]model.RiskScoreSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.snapshots[orgKey{orgID, driverID}]
	out := make([]model.RiskScoreSnapshot, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AsOf.Before(out[j].AsOf) })
	return out, nil
}

// ListOrgSnapshots returns all snapshots for the org in chronological
// order.
func (s *MemStore) ListOrgSnapshots(_ context.Context, orgID string) ([]model.RiskScoreSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RiskScoreSnapshot, 0)
	for k, snaps := range s.snapshots {
		if k.orgID == orgID {
			out = append(out, snaps...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AsOf.Before(out[j].AsOf) })
	return out, nil
}

// PutPlan inserts or replaces a coaching plan aggregate.
func (s *MemStore) PutPlan(_ context.Context, p model.CoachingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.plans[orgKey{p.OrgID, p.ID}] = p
	return nil
}

// GetPlan returns a plan by id within the org.
func (s *MemStore) GetPlan(_ context.Context, orgID, planID string) (model.CoachingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[orgKey{orgID, planID}]
	if !ok {
		return model.CoachingPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return p, nil
}

// ListPlans returns all plans for the org, ordered by start date then id.
func (s *MemStore) ListPlans(_ context.Context, orgID string) ([]model.CoachingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CoachingPlan, 0)
	for k, p := range s.plans {
		if k.orgID == orgID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ActiveCoachingDriverIDs returns driver ids with an active plan.
func (s *MemStore) ActiveCoachingDriverIDs(_ context.Context, orgID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make(map[string]bool)
	for k, p := range s.plans {
		if k.orgID == orgID && p.IsActive() {
			active[p.DriverID] = true
		}
	}
	return active, nil
}

// WithDriverLock serializes fn against other locked writes for the
// same driver.
func (s *MemStore) WithDriverLock(driverID string, fn func() error) error {
	s.lockMu.Lock()
	l, ok := s.driverLocks[driverID]
	if !ok {
		l = &sync.Mutex{}
		s.driverLocks[driverID] = l
	}
	s.lockMu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

// CountDrivers returns the number of drivers tracked across orgs.
func (s *MemStore) CountDrivers(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drivers)
}

// Close marks the store closed; subsequent writes fail.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
