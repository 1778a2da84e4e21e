// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// InterventionsHandler serves the ranked intervention queue.
type InterventionsHandler struct {
	deps Dependencies
}

// NewInterventionsHandler creates a new interventions handler.
func NewInterventionsHandler(deps Dependencies) *InterventionsHandler {
	return &InterventionsHandler{deps: deps}
}

// HandleGetQueue handles GET /interventions requests.
func (h *InterventionsHandler) HandleGetQueue(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_interventions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	org, err := orgID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	queue, err := h.deps.InterventionQueue(r.Context(), org)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}
