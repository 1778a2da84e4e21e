// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// EventsHandler handles risk event ingestion.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	occurredAt, _ := time.Parse(time.RFC3339, req.OccurredAt)
	duplicate, err := h.deps.RecordRiskEvent(r.Context(), model.RiskEvent{
		ID:         req.EventID,
		OrgID:      org,
		DriverID:   req.DriverID,
		Type:       model.EventType(req.Type),
		Severity:   req.Severity,
		OccurredAt: occurredAt,
		Source:     model.EventSource(req.Source),
		Metadata:   req.Metadata,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "recorded", Duplicate: false})
}
