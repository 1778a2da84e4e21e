// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// RescoreHandler triggers asynchronous fleet rescoring.
type RescoreHandler struct {
	deps Dependencies
}

// NewRescoreHandler creates a new rescore handler.
func NewRescoreHandler(deps Dependencies) *RescoreHandler {
	return &RescoreHandler{deps: deps}
}

type rescoreResponse struct {
	Enqueued int    `json:"enqueued"`
	Window   string `json:"window"`
}

// HandleRescore handles POST /rescore requests. Every driver in the
// tenant is enqueued for a fresh scoring pass; a full queue returns 503
// so callers can back off and retry.
func (h *RescoreHandler) HandleRescore(w http.ResponseWriter, r *http.Request) {
	const op = "api.rescore"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	window := r.URL.Query().Get("window")
	enqueued, err := h.deps.RescoreFleet(r.Context(), org, window)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rescoreResponse{Enqueued: enqueued, Window: window})
}
