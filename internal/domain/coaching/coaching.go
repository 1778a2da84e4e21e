// Package coaching governs the weekly check-in workflow of a coaching
// plan. Status moves are monotonic along Pending -> In Progress ->
// Complete, and every mutation appends to the check-in's audit trail.
package coaching

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// Sentinel kinds for workflow errors.
var (
	ErrInvalidTransition = errors.New("invalid check-in transition")
	ErrUnknownWeek       = errors.New("unknown check-in week")
	ErrUnknownStatus     = errors.New("unknown check-in status")
)

// Audit trail field names.
const (
	fieldStatus = "status"
	fieldNotes  = "notes"
)

// statusRank orders the check-in states. A transition is legal iff the
// target rank is strictly greater than the current one; skipping
// In Progress (direct completion) is allowed.
var statusRank = map[model.CheckInStatus]int{
	model.CheckInPending:    0,
	model.CheckInInProgress: 1,
	model.CheckInComplete:   2,
}

// TransitionRequest describes one mutation of a weekly check-in.
// Status may equal the current status (or be empty) for a notes-only
// update. A zero At falls back to the real clock.
type TransitionRequest struct {
	Week   int
	Status model.CheckInStatus
	Notes  *string
	Actor  string
	At     time.Time
}

// ApplyTransition applies the request to the check-in for the given
// week and returns a new list with all other weeks unchanged. The call
// is atomic: on any error the input list is untouched and the returned
// list is nil.
func ApplyTransition(checkIns []model.CheckIn, req TransitionRequest) ([]model.CheckIn, error) {
	idx := -1
	for i := range checkIns {
		if checkIns[i].Week == req.Week {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: week %d", ErrUnknownWeek, req.Week)
	}

	current := checkIns[idx]
	target := req.Status
	if target == "" {
		target = current.Status
	}
	if _, ok := statusRank[target]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, req.Status)
	}
	if target != current.Status && statusRank[target] <= statusRank[current.Status] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	// Copy-on-write: the input list and its audit trails are never
	// mutated, so a failed call can't leave partial state behind.
	updated := make([]model.CheckIn, len(checkIns))
	copy(updated, checkIns)
	entry := updated[idx]
	entry.Audit = append([]model.AuditEntry(nil), entry.Audit...)

	if target != current.Status {
		entry.Audit = append(entry.Audit, model.AuditEntry{
			ID:    uuid.NewString(),
			Field: fieldStatus,
			From:  string(current.Status),
			To:    string(target),
			Actor: req.Actor,
			At:    at,
		})
		entry.Status = target
	}
	if req.Notes != nil && *req.Notes != current.Notes {
		entry.Audit = append(entry.Audit, model.AuditEntry{
			ID:    uuid.NewString(),
			Field: fieldNotes,
			From:  current.Notes,
			To:    *req.Notes,
			Actor: req.Actor,
			At:    at,
		})
		entry.Notes = *req.Notes
	}

	updated[idx] = entry
	return updated, nil
}

// NewSchedule builds the Pending check-ins for a plan, one per week,
// scheduled at weekly intervals from the start date.
func NewSchedule(start time.Time, weeks int, assignee string) []model.CheckIn {
	if weeks < 1 {
		weeks = 1
	}
	checkIns := make([]model.CheckIn, 0, weeks)
	for w := 1; w <= weeks; w++ {
		checkIns = append(checkIns, model.CheckIn{
			Week:         w,
			Assignee:     assignee,
			Status:       model.CheckInPending,
			ScheduledFor: start.AddDate(0, 0, 7*(w-1)),
		})
	}
	return checkIns
}
