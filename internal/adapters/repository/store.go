// Package repository defines the fleet store contracts and errors.
// Every read and write is tenant-scoped by an organization id supplied
// by the caller; no default tenant is baked in.
package repository

import (
	"context"
	"time"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// DriverStore provides read/write access to driver rows.
type DriverStore interface {
	// PutDriver inserts or replaces a driver.
	PutDriver(ctx context.Context, d model.Driver) error

	// GetDriver returns a driver by id within the org.
	// Returns ErrDriverNotFound if the driver is unknown.
	GetDriver(ctx context.Context, orgID, driverID string) (model.Driver, error)

	// ListDrivers returns all drivers for the org, ordered by id.
	ListDrivers(ctx context.Context, orgID string) ([]model.Driver, error)

	// SetCurrentRiskScore overwrites the driver's stored risk score.
	// Only the scoring engine's write path calls this.
	SetCurrentRiskScore(ctx context.Context, orgID, driverID string, score int) error
}

// EventStore provides append/read access to immutable risk events.
type EventStore interface {
	// AppendEvent records a risk event. Events are never updated.
	AppendEvent(ctx context.Context, e model.RiskEvent) error

	// ListEventsSince returns the driver's events at or after since,
	// ordered by occurrence time.
	ListEventsSince(ctx context.Context, orgID, driverID string, since time.Time) ([]model.RiskEvent, error)

	// ListOrgEventsSince returns all events for the org at or after
	// since, across drivers.
	ListOrgEventsSince(ctx context.Context, orgID string, since time.Time) ([]model.RiskEvent, error)
}

// SnapshotStore provides append-only access to score history.
type SnapshotStore interface {
	// AppendSnapshot records a score snapshot. Snapshots are never
	// mutated or deleted.
	AppendSnapshot(ctx context.Context, s model.RiskScoreSnapshot) error

	// ListSnapshots returns the driver's snapshots in chronological
	// order.
	ListSnapshots(ctx context.Context, orgID, driverID string) ([]model.RiskScoreSnapshot, error)

	// ListOrgSnapshots returns all snapshots for the org in
	// chronological order.
	ListOrgSnapshots(ctx context.Context, orgID string) ([]model.RiskScoreSnapshot, error)
}

// PlanStore provides read/write access to coaching plan aggregates.
type PlanStore interface {
	// PutPlan inserts or replaces a coaching plan aggregate.
	PutPlan(ctx context.Context, p model.CoachingPlan) error

	// GetPlan returns a plan by id within the org.
	// Returns ErrPlanNotFound if the plan is unknown.
	GetPlan(ctx context.Context, orgID, planID string) (model.CoachingPlan, error)

	// ListPlans returns all plans for the org, ordered by start date
	// then id.
	ListPlans(ctx context.Context, orgID string) ([]model.CoachingPlan, error)

	// ActiveCoachingDriverIDs returns the set of driver ids with an
	// active plan, used to suppress duplicate recommendations.
	ActiveCoachingDriverIDs(ctx context.Context, orgID string) (map[string]bool, error)
}

// Store bundles the fleet persistence contracts.
type Store interface {
	DriverStore
	EventStore
	SnapshotStore
	PlanStore

	// WithDriverLock serializes fn against other locked writes for the
	// same driver. The scoring write path runs snapshot-append and
	// driver-row update under this lock so concurrent rescores cannot
	// leave them inconsistent.
	WithDriverLock(driverID string, fn func() error) error

	// CountDrivers returns the number of drivers tracked across orgs.
	CountDrivers(ctx context.Context) int
}
