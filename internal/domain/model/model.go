// Package model contains domain entities passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel kinds for model validation errors.
var (
	ErrInvalidWindow   = errors.New("invalid window token")
	ErrInvalidSeverity = errors.New("severity must be between 1 and 5")
	ErrInvalidEvent    = errors.New("invalid risk event")
)

// Window selects the trailing event lookback used by the scoring engine.
type Window string

// Supported lookback windows.
const (
	Window30d  Window = "30d"
	Window90d  Window = "90d"
	Window365d Window = "365d"

	// DefaultWindow is used when the caller does not specify one.
	DefaultWindow = Window90d
)

// ParseWindow validates a window token. An empty token resolves to the
// default window.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.TrimSpace(s)) {
	case "":
		return DefaultWindow, nil
	case Window30d:
		return Window30d, nil
	case Window90d:
		return Window90d, nil
	case Window365d:
		return Window365d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
}

// Duration returns the trailing lookback duration for the window.
func (w Window) Duration() time.Duration {
	const day = 24 * time.Hour
	switch w {
	case Window30d:
		return 30 * day
	case Window365d:
		return 365 * day
	default:
		return 90 * day
	}
}

// EventType enumerates the recognized categories of risk events.
type EventType string

// Recognized risk event types.
const (
	EventSpeeding     EventType = "Speeding"
	EventHardBraking  EventType = "HardBraking"
	EventAccident     EventType = "Accident"
	EventCitation     EventType = "Citation"
	EventHOSViolation EventType = "HOSViolation"
)

// EventSource identifies where a risk event originated.
type EventSource string

// Event sources.
const (
	SourceManual     EventSource = "manual"
	SourceTelematics EventSource = "telematics"
)

// Severity bounds for risk events.
const (
	MinSeverity = 1
	MaxSeverity = 5
)

// RiskEvent is a single time-stamped observation of risky driving.
// Events are immutable once recorded.
type RiskEvent struct {
	ID         string            `json:"id"`
	OrgID      string            `json:"org_id"`
	DriverID   string            `json:"driver_id"`
	Type       EventType         `json:"type"`
	Severity   int               `json:"severity"`
	OccurredAt time.Time         `json:"occurred_at"`
	Source     EventSource       `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Validate checks the event invariants before it is recorded.
func (e RiskEvent) Validate() error {
	switch {
	case e.DriverID == "":
		return fmt.Errorf("%w: missing driver id", ErrInvalidEvent)
	case e.OrgID == "":
		return fmt.Errorf("%w: missing org id", ErrInvalidEvent)
	case e.OccurredAt.IsZero():
		return fmt.Errorf("%w: missing occurrence timestamp", ErrInvalidEvent)
	}
	switch e.Type {
	case EventSpeeding, EventHardBraking, EventAccident, EventCitation, EventHOSViolation:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	switch e.Source {
	case SourceManual, SourceTelematics:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidEvent, e.Source)
	}
	if e.Severity < MinSeverity || e.Severity > MaxSeverity {
		return fmt.Errorf("%w: got %d", ErrInvalidSeverity, e.Severity)
	}
	return nil
}

// Driver is the subject of scoring and coaching. RiskScore is mutated
// only by the scoring engine; TelematicsID is empty for unlinked drivers.
type Driver struct {
	ID           string `json:"id"`
	OrgID        string `json:"org_id"`
	Name         string `json:"name"`
	TelematicsID string `json:"telematics_id,omitempty"`
	RiskScore    int    `json:"risk_score"`
}

// Linked reports whether the driver has an external telematics mapping.
func (d Driver) Linked() bool { return d.TelematicsID != "" }

// CompositeParts records the inputs that produced a composite score.
type CompositeParts struct {
	Motive float64 `json:"motive"`
	Local  float64 `json:"local"`
}

// RiskScoreSnapshot is an append-only history record of one scoring
// invocation. Snapshots are never mutated or deleted; they are the sole
// source of truth for trend evaluation.
type RiskScoreSnapshot struct {
	ID           string         `json:"id"`
	DriverID     string         `json:"driver_id"`
	OrgID        string         `json:"organization_id"`
	Score        int            `json:"score"`
	Parts        CompositeParts `json:"composite_parts"`
	SourceWindow Window         `json:"source_window"`
	AsOf         time.Time      `json:"as_of"`
}

// PlanStatus is the lifecycle state of a coaching plan.
type PlanStatus string

// Coaching plan statuses.
const (
	PlanActive     PlanStatus = "Active"
	PlanCompleted  PlanStatus = "Completed"
	PlanTerminated PlanStatus = "Terminated"
)

// CheckInStatus is the state of a weekly coaching check-in.
type CheckInStatus string

// Check-in statuses, ordered Pending -> In Progress -> Complete.
const (
	CheckInPending    CheckInStatus = "Pending"
	CheckInInProgress CheckInStatus = "In Progress"
	CheckInComplete   CheckInStatus = "Complete"
)

// AuditEntry records a single field mutation on a check-in. The audit
// trail is append-only; entries are never rewritten.
type AuditEntry struct {
	ID    string    `json:"id"`
	Field string    `json:"field"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	Actor string    `json:"actor"`
	At    time.Time `json:"timestamp"`
}

// CheckIn is one week of a coaching plan, keyed by week number.
type CheckIn struct {
	Week         int           `json:"week"`
	Assignee     string        `json:"assignee"`
	Status       CheckInStatus `json:"status"`
	Notes        string        `json:"notes,omitempty"`
	ScheduledFor time.Time     `json:"scheduled_for"`
	Audit        []AuditEntry  `json:"audit"`
}

// CoachingPlan is the unit of intervention and outcome evaluation.
type CoachingPlan struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	DriverID      string     `json:"driver_id"`
	Type          EventType  `json:"type"`
	Status        PlanStatus `json:"status"`
	StartDate     time.Time  `json:"start_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DurationWeeks int        `json:"duration_weeks"`
	CheckIns      []CheckIn  `json:"check_ins"`
	Outcome       string     `json:"outcome,omitempty"`
}

// IsActive reports whether the plan suppresses new coaching
// recommendations for its driver.
func (p CoachingPlan) IsActive() bool { return p.Status == PlanActive }
