// Package intervention ranks drivers by urgency and recommends the
// next coaching action. Ranking is a pure function of its input; plan
// creation is a separate, externally triggered operation.
package intervention

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/internal/domain/scoring"
)

// Recency weighting parameters. A severe event in the last few days
// outweighs an older one; events older than the recency horizon
// contribute nothing.
const (
	recencyHorizon  = 30 * 24 * time.Hour
	decayHalfLife   = 7 * 24 * time.Hour
	severityUrgency = 20.0

	// assignThreshold separates the top urgency tier that warrants a
	// coaching plan from drivers who only need monitoring.
	assignThreshold = 100.0
)

// Action is a structured recommendation code consumers can branch on.
type Action string

// Recommended actions.
const (
	ActionAssignCoaching Action = "assign-coaching"
	ActionMonitor        Action = "monitor"
)

// Input carries everything the ranking needs. Now is injected so the
// function is deterministic and testable.
type Input struct {
	Drivers        []model.Driver
	Events         []model.RiskEvent
	ActiveCoaching map[string]bool // driver ids with an active plan
	Now            time.Time
}

// Recommendation is one ranked entry of the intervention queue.
type Recommendation struct {
	Rank        int          `json:"rank"`
	DriverID    string       `json:"driver_id"`
	DriverName  string       `json:"driver_name"`
	RiskScore   int          `json:"risk_score"`
	Band        scoring.Band `json:"band"`
	Urgency     float64      `json:"urgency"`
	Action      Action       `json:"action"`
	Recommended string       `json:"recommended_action"`
	Coached     bool         `json:"active_coaching"`
}

// BuildQueue ranks all drivers by urgency, descending, with a
// deterministic tie-break on driver id so repeated calls on identical
// input yield identical ordering.
func BuildQueue(in Input) []Recommendation {
	byDriver := make(map[string][]model.RiskEvent, len(in.Drivers))
	for _, ev := range in.Events {
		byDriver[ev.DriverID] = append(byDriver[ev.DriverID], ev)
	}

	out := make([]Recommendation, 0, len(in.Drivers))
	for _, d := range in.Drivers {
		urgency := float64(d.RiskScore) + recencyWeight(byDriver[d.ID], in.Now)
		coached := in.ActiveCoaching[d.ID]
		band := scoring.Classify(d.RiskScore)

		action := ActionMonitor
		text := "Monitor driver"
		if !coached && (band == scoring.BandRed || urgency >= assignThreshold) {
			action = ActionAssignCoaching
			text = fmt.Sprintf("Assign coaching plan (%s band, urgency %.0f)", band, urgency)
		}

		out = append(out, Recommendation{
			DriverID:    d.ID,
			DriverName:  d.Name,
			RiskScore:   d.RiskScore,
			Band:        band,
			Urgency:     urgency,
			Action:      action,
			Recommended: text,
			Coached:     coached,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Urgency != out[j].Urgency {
			return out[i].Urgency > out[j].Urgency
		}
		return out[i].DriverID < out[j].DriverID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// recencyWeight sums severity urgency over recent events, decayed
// exponentially by age with a 7-day half-life.
func recencyWeight(events []model.RiskEvent, now time.Time) float64 {
	var total float64
	for _, ev := range events {
		age := now.Sub(ev.OccurredAt)
		if age < 0 || age > recencyHorizon {
			continue
		}
		decay := math.Pow(0.5, age.Hours()/decayHalfLife.Hours())
		total += severityUrgency * float64(ev.Severity) * decay
	}
	return total
}
