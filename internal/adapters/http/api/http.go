// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	rescorequeue "github.com/fleetsense/fleetsense/internal/adapters/mq/queue"
	"github.com/fleetsense/fleetsense/internal/adapters/repository"
	"github.com/fleetsense/fleetsense/internal/domain/coaching"
	"github.com/fleetsense/fleetsense/internal/domain/intervention"
	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/internal/domain/outcome"
	"github.com/fleetsense/fleetsense/internal/domain/scoring"
)

// orgHeader carries the tenant scope on every request. The core never
// assumes a default tenant.
const orgHeader = "X-Org-ID"

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service package.
type Dependencies interface {
	RecordRiskEvent(ctx context.Context, e model.RiskEvent) (bool, error)
	PutDriver(ctx context.Context, d model.Driver) error
	CalculateScore(ctx context.Context, orgID, driverID, window string) (scoring.Result, error)
	DriverScore(ctx context.Context, orgID, driverID string) (model.Driver, scoring.Band, []model.RiskScoreSnapshot, error)
	InterventionQueue(ctx context.Context, orgID string) ([]intervention.Recommendation, error)
	CreatePlan(ctx context.Context, orgID, driverID string, planType model.EventType, weeks int, assignee string) (model.CoachingPlan, error)
	ApplyCheckIn(ctx context.Context, orgID, planID string, req coaching.TransitionRequest) (model.CoachingPlan, error)
	OutcomeInsights(ctx context.Context, orgID string) ([]outcome.Insight, error)
	RescoreFleet(ctx context.Context, orgID, window string) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	eventsHandler        *EventsHandler
	driversHandler       *DriversHandler
	interventionsHandler *InterventionsHandler
	plansHandler         *PlansHandler
	outcomesHandler      *OutcomesHandler
	rescoreHandler       *RescoreHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		eventsHandler:        NewEventsHandler(deps),
		driversHandler:       NewDriversHandler(deps),
		interventionsHandler: NewInterventionsHandler(deps),
		plansHandler:         NewPlansHandler(deps),
		outcomesHandler:      NewOutcomesHandler(deps),
		rescoreHandler:       NewRescoreHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/drivers/", MetricsMiddleware(s.driversHandler.HandleDriverScore, "drivers"))
	mux.HandleFunc("/interventions", MetricsMiddleware(s.interventionsHandler.HandleGetQueue, "interventions"))
	mux.HandleFunc("/plans", MetricsMiddleware(s.plansHandler.HandleCreatePlan, "plans"))
	mux.HandleFunc("/plans/", MetricsMiddleware(s.plansHandler.HandleCheckIn, "checkins"))
	mux.HandleFunc("/outcomes", MetricsMiddleware(s.outcomesHandler.HandleGetOutcomes, "outcomes"))
	mux.HandleFunc("/rescore", MetricsMiddleware(s.rescoreHandler.HandleRescore, "rescore"))
}

// orgID extracts the tenant scope from the request.
func orgID(r *http.Request) (string, error) {
	org := strings.TrimSpace(r.Header.Get(orgHeader))
	if org == "" {
		return "", errors.New("missing " + orgHeader + " header")
	}
	return org, nil
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID    string            `json:"event_id,omitempty"`
	DriverID   string            `json:"driver_id"`
	Type       string            `json:"type"`
	Severity   int               `json:"severity"`
	OccurredAt string            `json:"occurred_at"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.DriverID) == "":
		return errors.New("missing driver_id")
	case strings.TrimSpace(e.Type) == "":
		return errors.New("missing type")
	case strings.TrimSpace(e.Source) == "":
		return errors.New("missing source")
	case strings.TrimSpace(e.OccurredAt) == "":
		return errors.New("missing occurred_at")
	}
	if _, err := time.Parse(time.RFC3339, e.OccurredAt); err != nil {
		return errors.New("invalid occurred_at; must be RFC3339")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrDriverNotFound),
		errors.Is(err, repository.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, coaching.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, coaching.ErrUnknownWeek),
		errors.Is(err, coaching.ErrUnknownStatus),
		errors.Is(err, model.ErrInvalidWindow),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, model.ErrInvalidSeverity):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, rescorequeue.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "backpressure", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
