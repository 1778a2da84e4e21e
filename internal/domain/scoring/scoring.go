// Package scoring computes composite risk scores and band classification.
//
// The composite blends an external telematics safety score ("motive")
// with a locally observed contribution derived from in-window risk
// events. The blend weights are a fixed, externally verified contract;
// only the local calibration is tunable.
package scoring

import (
	"math"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// Blend weights. These are contractual: consumers of persisted
// composite_parts assume 0.6/0.4. Do not make them configurable.
const (
	MotiveWeight = 0.6
	LocalWeight  = 0.4
)

// FallbackMotiveScore is substituted when a driver has no telematics
// link or the external id is unknown to the gateway, so the blend never
// fails for unlinked drivers.
const FallbackMotiveScore = 60

// Default local-score calibration. Each in-window event contributes
// base + step*severity; contributions sum and clamp to [0,100].
const (
	defaultEventBase    = 16.0
	defaultSeverityStep = 9.0
	maxScore            = 100.0
)

// Band classifies a composite score for triage.
type Band string

// Risk bands. Boundaries are inclusive on the lower edge of each band.
const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// Band thresholds.
const (
	yellowFloor = 50
	redFloor    = 80
)

// Classify maps a composite score to its risk band.
func Classify(score int) Band {
	switch {
	case score >= redFloor:
		return BandRed
	case score >= yellowFloor:
		return BandYellow
	default:
		return BandGreen
	}
}

// Result is the outcome of one scoring computation.
type Result struct {
	Score int                  `json:"score"`
	Band  Band                 `json:"band"`
	Parts model.CompositeParts `json:"parts"`
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCalibration overrides the per-event local contribution parameters.
// Both values must stay positive to keep the local score monotonic in
// event count and severity.
func WithCalibration(base, step float64) Option {
	return func(e *Engine) {
		if base > 0 && step > 0 {
			e.eventBase = base
			e.severityStep = step
		}
	}
}

// Engine computes composite scores. It is pure: persistence of
// snapshots and driver rows belongs to the caller.
type Engine struct {
	eventBase    float64
	severityStep float64
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		eventBase:    defaultEventBase,
		severityStep: defaultSeverityStep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LocalContribution aggregates in-window events into a local risk score
// in [0,100]. More and worse events yield a higher score; no events
// yield zero.
func (e *Engine) LocalContribution(events []model.RiskEvent) float64 {
	var local float64
	for _, ev := range events {
		local += e.eventBase + e.severityStep*float64(ev.Severity)
	}
	return math.Min(maxScore, local)
}

// Blend combines the motive and local contributions into the composite
// score, rounded to the nearest integer and clamped to [0,100].
func Blend(motive, local float64) int {
	blended := math.Round(MotiveWeight*motive + LocalWeight*local)
	return int(math.Max(0, math.Min(maxScore, blended)))
}

// Compute derives the composite score for a driver from its external
// safety score and the risk events inside the lookback window.
func (e *Engine) Compute(motive float64, events []model.RiskEvent) Result {
	local := e.LocalContribution(events)
	score := Blend(motive, local)
	return Result{
		Score: score,
		Band:  Classify(score),
		Parts: model.CompositeParts{Motive: motive, Local: local},
	}
}
