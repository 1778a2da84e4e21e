// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/internal/domain/scoring"
)

// DriversHandler handles per-driver scoring requests.
type DriversHandler struct {
	deps Dependencies
}

// NewDriversHandler creates a new drivers handler.
func NewDriversHandler(deps Dependencies) *DriversHandler {
	return &DriversHandler{deps: deps}
}

// driverScoreResponse is the read shape for GET /drivers/{id}/score.
type driverScoreResponse struct {
	Driver  model.Driver              `json:"driver"`
	Band    scoring.Band              `json:"band"`
	History []model.RiskScoreSnapshot `json:"history"`
}

// driverRequest mirrors the OpenAPI schema for PUT /drivers/{id}.
// The current risk score is not part of the body; only the scoring
// engine writes it.
type driverRequest struct {
	Name         string `json:"name"`
	TelematicsID string `json:"telematics_id,omitempty"`
}

// HandleDriverScore routes /drivers/{id} and /drivers/{id}/score.
// PUT on the driver path upserts the roster entry; POST on the score
// path runs a scoring pass; GET returns the current score and history.
func (h *DriversHandler) HandleDriverScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.driver_score"

	rest := strings.TrimPrefix(r.URL.Path, "/drivers/")
	parts := strings.Split(rest, "/")
	if len(parts) == 1 && parts[0] != "" {
		h.handlePutDriver(w, r, parts[0])
		return
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] != "score" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	driverID := parts[0]

	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switch r.Method {
	case http.MethodPost:
		window := r.URL.Query().Get("window")
		result, err := h.deps.CalculateScore(r.Context(), org, driverID, window)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodGet:
		driver, band, history, err := h.deps.DriverScore(r.Context(), org, driverID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, driverScoreResponse{Driver: driver, Band: band, History: history})
	default:
		http.NotFound(w, r)
	}
}

// handlePutDriver handles PUT /drivers/{id} roster upserts.
func (h *DriversHandler) handlePutDriver(w http.ResponseWriter, r *http.Request, driverID string) {
	const op = "api.put_driver"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var req driverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	driver := model.Driver{
		ID:           driverID,
		OrgID:        org,
		Name:         req.Name,
		TelematicsID: req.TelematicsID,
	}
	if err := h.deps.PutDriver(r.Context(), driver); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}
