// Package outcome classifies the risk trend of a coaching plan by
// comparing score-history snapshots before and after the plan started.
package outcome

import (
	"sort"
	"time"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// Trend is the classified direction of a driver's risk between the
// plan's baseline snapshot and the latest one.
type Trend string

// Trend values. InsufficientData is a first-class result, not an
// error: new drivers and new plans frequently have no history yet.
const (
	TrendImproved         Trend = "improved"
	TrendWorsened         Trend = "worsened"
	TrendSteady           Trend = "steady"
	TrendInsufficientData Trend = "insufficient-data"
)

// Insight is the evaluation result for one plan. Delta is nil when the
// history is insufficient; otherwise it is current minus baseline, so
// a negative delta means risk fell.
type Insight struct {
	PlanID        string `json:"plan_id"`
	DriverID      string `json:"driver_id"`
	Trend         Trend  `json:"trend"`
	Delta         *int   `json:"delta"`
	BaselineScore *int   `json:"baseline_score,omitempty"`
	CurrentScore  *int   `json:"current_score,omitempty"`
}

// Evaluate compares the earliest snapshot at or after the plan's start
// ("baseline") against the latest available snapshot ("current") for
// the plan's driver. A zero now falls back to the real clock.
func Evaluate(plan model.CoachingPlan, history []model.RiskScoreSnapshot, now time.Time) Insight {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	series := make([]model.RiskScoreSnapshot, 0, len(history))
	for _, snap := range history {
		if snap.DriverID != plan.DriverID {
			continue
		}
		if snap.AsOf.Before(plan.StartDate) || snap.AsOf.After(now) {
			continue
		}
		series = append(series, snap)
	}

	insight := Insight{PlanID: plan.ID, DriverID: plan.DriverID}
	if len(series) == 0 {
		insight.Trend = TrendInsufficientData
		return insight
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].AsOf.Before(series[j].AsOf)
	})

	baseline := series[0].Score
	current := series[len(series)-1].Score
	delta := current - baseline

	insight.Delta = &delta
	insight.BaselineScore = &baseline
	insight.CurrentScore = &current
	switch {
	case delta < 0:
		insight.Trend = TrendImproved
	case delta > 0:
		insight.Trend = TrendWorsened
	default:
		insight.Trend = TrendSteady
	}
	return insight
}

// BuildInsights evaluates every plan against its driver's series,
// preserving input order.
func BuildInsights(plans []model.CoachingPlan, history []model.RiskScoreSnapshot, now time.Time) []Insight {
	insights := make([]Insight, 0, len(plans))
	for _, plan := range plans {
		insights = append(insights, Evaluate(plan, history, now))
	}
	return insights
}
