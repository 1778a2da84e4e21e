// Package service provides the core business service that implements
// the dependencies required by the HTTP API. It owns all side effects;
// the domain packages stay pure.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	rescorequeue "github.com/fleetsense/fleetsense/internal/adapters/mq/queue"
	workerpool "github.com/fleetsense/fleetsense/internal/adapters/mq/worker"
	"github.com/fleetsense/fleetsense/internal/adapters/repository"
	"github.com/fleetsense/fleetsense/internal/adapters/telematics"
	"github.com/fleetsense/fleetsense/internal/domain/coaching"
	"github.com/fleetsense/fleetsense/internal/domain/dedupe"
	"github.com/fleetsense/fleetsense/internal/domain/intervention"
	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/internal/domain/outcome"
	"github.com/fleetsense/fleetsense/internal/domain/scoring"
	"github.com/fleetsense/fleetsense/pkg/logger"
	"github.com/fleetsense/fleetsense/pkg/metrics"
)

// rescoreAdapter narrows the Service to the worker pool's Rescorer
// contract.
type rescoreAdapter struct {
	svc *Service
}

func (a *rescoreAdapter) CalculateScore(ctx context.Context, orgID, driverID, window string) error {
	_, err := a.svc.CalculateScore(ctx, orgID, driverID, window)
	return err
}

// Service wires the scoring engine, intervention queue, coaching
// workflow and outcome evaluator over the store and gateway adapters.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	gateway telematics.Gateway
	engine  *scoring.Engine
	deduper dedupe.Deduper
	queue   rescorequeue.Queue
	pool    *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	defaultWindow model.Window
	eventBase     float64
	severityStep  float64
	gatewayMinLat time.Duration
	gatewayMaxLat time.Duration

	// Clock, injected for deterministic tests.
	now func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the fleet store. A fresh in-memory store is used when
// unset.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithGateway sets the telematics gateway. An empty in-memory gateway
// is used when unset, so every driver falls back to the default
// external score.
func WithGateway(gw telematics.Gateway) Option {
	return func(s *Service) {
		if gw != nil {
			s.gateway = gw
		}
	}
}

// WithClock injects the reference clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets the number of rescore workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the rescore job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the feed event id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDefaultWindow sets the lookback used when callers omit one.
func WithDefaultWindow(w model.Window) Option {
	return func(s *Service) {
		if w != "" {
			s.defaultWindow = w
		}
	}
}

// WithCalibration overrides the local-score calibration.
func WithCalibration(base, step float64) Option {
	return func(s *Service) {
		if base > 0 && step > 0 {
			s.eventBase = base
			s.severityStep = step
		}
	}
}

// WithGatewayLatencyRange bounds the in-memory gateway's simulated
// latency; ignored when a gateway is injected via WithGateway.
func WithGatewayLatencyRange(minLat, maxLat time.Duration) Option {
	return func(s *Service) {
		if minLat > 0 && maxLat > minLat {
			s.gatewayMinLat = minLat
			s.gatewayMaxLat = maxLat
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   4,
		queueSize:     10_000,
		dedupeSize:    50_000,
		defaultWindow: model.DefaultWindow,
		now:           func() time.Time { return time.Now().UTC() },
		gatewayMinLat: 5 * time.Millisecond,
		gatewayMaxLat: 25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting fleet safety service...")

	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
	}
	if s.gateway == nil {
		s.gateway = telematics.NewInMemoryGateway(
			telematics.WithLatencyRange(s.gatewayMinLat, s.gatewayMaxLat),
		)
	}
	engineOpts := []scoring.Option{}
	if s.eventBase > 0 && s.severityStep > 0 {
		engineOpts = append(engineOpts, scoring.WithCalibration(s.eventBase, s.severityStep))
	}
	s.engine = scoring.NewEngine(engineOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = rescorequeue.NewInMemoryQueue(
		rescorequeue.WithCapacity(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, &rescoreAdapter{svc: s})
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "fleet safety service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("defaultWindow", string(s.defaultWindow)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping fleet safety service...")

	if s.queue != nil {
		if q, ok := s.queue.(*rescorequeue.InMemoryQueue); ok {
			_ = q.Close()
		}
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "fleet safety service stopped")
}

// CalculateScore recomputes and persists the composite risk score for
// one driver. The snapshot append and the driver-row update run under
// the driver's write lock; a gateway or store failure leaves neither
// write behind.
func (s *Service) CalculateScore(ctx context.Context, orgID, driverID string, window string) (scoring.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	}()

	win, err := model.ParseWindow(window)
	if err != nil {
		metrics.RecordScoringError()
		return scoring.Result{}, err
	}
	if window == "" {
		win = s.defaultWindow
	}

	driver, err := s.store.GetDriver(ctx, orgID, driverID)
	if err != nil {
		metrics.RecordScoringError()
		return scoring.Result{}, err
	}

	motive, err := s.motiveScore(ctx, driver)
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordErrorByComponent("scoring", "gateway_error")
		return scoring.Result{}, err
	}

	now := s.now()
	events, err := s.store.ListEventsSince(ctx, orgID, driverID, now.Add(-win.Duration()))
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordErrorByComponent("scoring", "event_store_error")
		return scoring.Result{}, err
	}

	result := s.engine.Compute(motive, events)

	// Snapshot first, then the driver row: a surviving driver update
	// without its snapshot would corrupt trend evaluation.
	err = s.store.WithDriverLock(driverID, func() error {
		snap := model.RiskScoreSnapshot{
			ID:           uuid.NewString(),
			DriverID:     driverID,
			OrgID:        orgID,
			Score:        result.Score,
			Parts:        result.Parts,
			SourceWindow: win,
			AsOf:         now,
		}
		if appendErr := s.store.AppendSnapshot(ctx, snap); appendErr != nil {
			return fmt.Errorf("append snapshot: %w", appendErr)
		}
		if setErr := s.store.SetCurrentRiskScore(ctx, orgID, driverID, result.Score); setErr != nil {
			return fmt.Errorf("update driver score: %w", setErr)
		}
		return nil
	})
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordErrorByComponent("scoring", "persist_error")
		return scoring.Result{}, err
	}

	metrics.RecordScoringRun()
	s.logger.Debug(ctx, "driver scored",
		logger.String("driver_id", driverID),
		logger.Int("score", result.Score),
		logger.String("band", string(result.Band)),
		logger.String("window", string(win)),
	)
	return result, nil
}

// motiveScore resolves the external telematics contribution, falling
// back to the fixed default for unlinked or unknown drivers.
func (s *Service) motiveScore(ctx context.Context, driver model.Driver) (float64, error) {
	if !driver.Linked() {
		metrics.RecordScoreFallback()
		return scoring.FallbackMotiveScore, nil
	}
	score, ok, err := s.gateway.SafetyScore(ctx, driver.TelematicsID)
	if err != nil {
		return 0, err
	}
	if !ok {
		metrics.RecordScoreFallback()
		return scoring.FallbackMotiveScore, nil
	}
	return score, nil
}

// RecordRiskEvent validates and records a risk event. Feed events are
// deduplicated by event id; the return reports whether the event was a
// replay.
func (s *Service) RecordRiskEvent(ctx context.Context, e model.RiskEvent) (duplicate bool, err error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return false, err
	}

	if e.Source == model.SourceTelematics {
		if s.deduper.SeenAndRecord(ctx, e.ID) {
			metrics.RecordEventDuplicate()
			return true, nil
		}
	}

	if err := s.store.AppendEvent(ctx, e); err != nil {
		if e.Source == model.SourceTelematics {
			// Allow the feed to retry a failed ingest.
			s.deduper.Unrecord(ctx, e.ID)
		}
		return false, err
	}

	metrics.RecordEventRecorded()
	return false, nil
}

// InterventionQueue builds the ranked intervention queue for the org.
func (s *Service) InterventionQueue(ctx context.Context, orgID string) ([]intervention.Recommendation, error) {
	drivers, err := s.store.ListDrivers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	events, err := s.store.ListOrgEventsSince(ctx, orgID, now.Add(-model.Window30d.Duration()))
	if err != nil {
		return nil, err
	}
	active, err := s.store.ActiveCoachingDriverIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}

	metrics.RecordQueueBuild()
	return intervention.BuildQueue(intervention.Input{
		Drivers:        drivers,
		Events:         events,
		ActiveCoaching: active,
		Now:            now,
	}), nil
}

// CreatePlan opens a coaching plan for a driver with a weekly check-in
// schedule.
func (s *Service) CreatePlan(ctx context.Context, orgID, driverID string, planType model.EventType, weeks int, assignee string) (model.CoachingPlan, error) {
	if _, err := s.store.GetDriver(ctx, orgID, driverID); err != nil {
		return model.CoachingPlan{}, err
	}
	if weeks < 1 {
		weeks = 4
	}

	start := s.now()
	due := start.AddDate(0, 0, 7*weeks)
	plan := model.CoachingPlan{
		ID:            uuid.NewString(),
		OrgID:         orgID,
		DriverID:      driverID,
		Type:          planType,
		Status:        model.PlanActive,
		StartDate:     start,
		DueDate:       &due,
		DurationWeeks: weeks,
		CheckIns:      coaching.NewSchedule(start, weeks, assignee),
	}
	if err := s.store.PutPlan(ctx, plan); err != nil {
		return model.CoachingPlan{}, err
	}

	s.logger.Info(ctx, "coaching plan created",
		logger.String("plan_id", plan.ID),
		logger.String("driver_id", driverID),
		logger.Int("weeks", weeks),
	)
	return plan, nil
}

// ApplyCheckIn applies a check-in transition to a plan's week and
// persists the updated aggregate. The whole call is atomic: an illegal
// transition or unknown week leaves the plan untouched.
func (s *Service) ApplyCheckIn(ctx context.Context, orgID, planID string, req coaching.TransitionRequest) (model.CoachingPlan, error) {
	plan, err := s.store.GetPlan(ctx, orgID, planID)
	if err != nil {
		return model.CoachingPlan{}, err
	}

	if req.At.IsZero() {
		req.At = s.now()
	}
	updated, err := coaching.ApplyTransition(plan.CheckIns, req)
	if err != nil {
		metrics.RecordTransitionRejected()
		return model.CoachingPlan{}, err
	}

	plan.CheckIns = updated
	if err := s.store.PutPlan(ctx, plan); err != nil {
		return model.CoachingPlan{}, err
	}

	metrics.RecordTransitionApplied()
	return plan, nil
}

// GetPlan returns a plan aggregate.
func (s *Service) GetPlan(ctx context.Context, orgID, planID string) (model.CoachingPlan, error) {
	return s.store.GetPlan(ctx, orgID, planID)
}

// DriverScore returns the driver's current score, band and snapshot
// history.
func (s *Service) DriverScore(ctx context.Context, orgID, driverID string) (model.Driver, scoring.Band, []model.RiskScoreSnapshot, error) {
	driver, err := s.store.GetDriver(ctx, orgID, driverID)
	if err != nil {
		return model.Driver{}, "", nil, err
	}
	history, err := s.store.ListSnapshots(ctx, orgID, driverID)
	if err != nil {
		return model.Driver{}, "", nil, err
	}
	return driver, scoring.Classify(driver.RiskScore), history, nil
}

// PutDriver inserts or replaces a driver row.
func (s *Service) PutDriver(ctx context.Context, d model.Driver) error {
	return s.store.PutDriver(ctx, d)
}

// OutcomeInsights evaluates every coaching plan in the org against the
// score history, preserving plan order.
func (s *Service) OutcomeInsights(ctx context.Context, orgID string) ([]outcome.Insight, error) {
	plans, err := s.store.ListPlans(ctx, orgID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListOrgSnapshots(ctx, orgID)
	if err != nil {
		return nil, err
	}

	insights := outcome.BuildInsights(plans, history, s.now())
	for range insights {
		metrics.RecordOutcomeEvaluation()
	}
	return insights, nil
}

// RescoreFleet enqueues a rescore job for every driver in the org and
// returns the number of jobs accepted.
func (s *Service) RescoreFleet(ctx context.Context, orgID string, window string) (int, error) {
	win, err := model.ParseWindow(window)
	if err != nil {
		return 0, err
	}
	if window == "" {
		win = s.defaultWindow
	}

	drivers, err := s.store.ListDrivers(ctx, orgID)
	if err != nil {
		return 0, err
	}

	accepted := 0
	for _, d := range drivers {
		if s.queue.Enqueue(ctx, rescorequeue.Job{OrgID: orgID, DriverID: d.ID, Window: win}) {
			accepted++
		}
	}

	s.logger.Info(ctx, "fleet rescore enqueued",
		logger.String("org_id", orgID),
		logger.Int("accepted", accepted),
		logger.Int("drivers", len(drivers)),
	)
	if accepted == 0 && len(drivers) > 0 {
		return 0, fmt.Errorf("rescore fleet %s: %w", orgID, rescorequeue.ErrQueueFull)
	}
	return accepted, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"defaultWindow": string(s.defaultWindow),
	}
	if s.started {
		stats["rescoreQueueDepth"] = s.queue.Len(ctx)
		stats["driversTracked"] = s.store.CountDrivers(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}
