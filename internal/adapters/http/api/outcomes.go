// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// OutcomesHandler serves coaching outcome insights.
type OutcomesHandler struct {
	deps Dependencies
}

// NewOutcomesHandler creates a new outcomes handler.
func NewOutcomesHandler(deps Dependencies) *OutcomesHandler {
	return &OutcomesHandler{deps: deps}
}

// HandleGetOutcomes handles GET /outcomes requests.
func (h *OutcomesHandler) HandleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outcomes"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	insights, err := h.deps.OutcomeInsights(r.Context(), org)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}
