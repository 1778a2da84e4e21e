// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/fleetsense/fleetsense/internal/domain/coaching"
	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// PlansHandler handles coaching plan creation and check-in updates.
type PlansHandler struct {
	deps Dependencies
}

// NewPlansHandler creates a new plans handler.
func NewPlansHandler(deps Dependencies) *PlansHandler {
	return &PlansHandler{deps: deps}
}

// createPlanRequest mirrors the OpenAPI schema for POST /plans.
type createPlanRequest struct {
	DriverID string `json:"driver_id"`
	Type     string `json:"type"`
	Weeks    int    `json:"weeks"`
	Assignee string `json:"assignee"`
}

// checkInRequest mirrors the OpenAPI schema for
// POST /plans/{id}/checkins/{week}.
type checkInRequest struct {
	Status string  `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	Actor  string  `json:"actor"`
}

// HandleCreatePlan handles POST /plans requests.
func (h *PlansHandler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_plan"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.DriverID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	plan, err := h.deps.CreatePlan(r.Context(), org, req.DriverID, model.EventType(req.Type), req.Weeks, req.Assignee)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleCheckIn handles POST /plans/{id}/checkins/{week} requests.
func (h *PlansHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkin"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/plans/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "checkins" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	planID := parts[0]
	week, err := strconv.Atoi(parts[2])
	if err != nil || week < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	plan, err := h.deps.ApplyCheckIn(r.Context(), org, planID, coaching.TransitionRequest{
		Week:   week,
		Status: model.CheckInStatus(req.Status),
		Notes:  req.Notes,
		Actor:  req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
