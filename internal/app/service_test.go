package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/fleetsense/fleetsense/internal/adapters/repository"
	"github.com/fleetsense/fleetsense/internal/adapters/telematics"
	"github.com/fleetsense/fleetsense/internal/domain/coaching"
	"github.com/fleetsense/fleetsense/internal/domain/model"
	"github.com/fleetsense/fleetsense/internal/domain/outcome"
	"github.com/fleetsense/fleetsense/internal/domain/scoring"
	"github.com/fleetsense/fleetsense/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func startedService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithWorkerCount(1),
	}, opts...)
	svc := New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func seededStore(ctx context.Context, drivers ...model.Driver) *repository.MemStore {
	return repository.NewMemStore(ctx, repository.WithSeedDrivers(drivers...))
}

func riskEvent(driverID string, severity int, occurred time.Time) model.RiskEvent {
	return model.RiskEvent{
		OrgID:      "org-1",
		DriverID:   driverID,
		Type:       model.EventHardBraking,
		Severity:   severity,
		OccurredAt: occurred,
		Source:     model.SourceManual,
	}
}

func TestCalculateScore(t *testing.T) {
	convey.Convey("Given an unlinked driver with one in-window event", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1", Name: "Dana"})
		svc := startedService(t, WithStore(store))

		_, err := svc.RecordRiskEvent(ctx, riskEvent("d1", 2, fixedNow.AddDate(0, 0, -1)))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When computing the score with the default window", func() {
			result, err := svc.CalculateScore(ctx, "org-1", "d1", "")

			convey.Convey("Then the fallback motive blends to 50 yellow", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Score, convey.ShouldEqual, 50)
				convey.So(result.Band, convey.ShouldEqual, scoring.BandYellow)
				convey.So(result.Parts.Motive, convey.ShouldEqual, scoring.FallbackMotiveScore)
				convey.So(result.Parts.Local, convey.ShouldEqual, 34)
			})

			convey.Convey("And the driver row carries the new score", func() {
				d, err := store.GetDriver(ctx, "org-1", "d1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.RiskScore, convey.ShouldEqual, 50)
			})

			convey.Convey("And a snapshot is appended with the window and clock", func() {
				snaps, err := store.ListSnapshots(ctx, "org-1", "d1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(snaps, convey.ShouldHaveLength, 1)
				convey.So(snaps[0].Score, convey.ShouldEqual, 50)
				convey.So(snaps[0].SourceWindow, convey.ShouldEqual, model.Window90d)
				convey.So(snaps[0].AsOf.Equal(fixedNow), convey.ShouldBeTrue)
				convey.So(snaps[0].Parts.Local, convey.ShouldEqual, 34)
			})
		})

		convey.Convey("When the window token is invalid", func() {
			_, err := svc.CalculateScore(ctx, "org-1", "d1", "45d")

			convey.Convey("Then the call fails without persisting anything", func() {
				convey.So(errors.Is(err, model.ErrInvalidWindow), convey.ShouldBeTrue)
				snaps, _ := store.ListSnapshots(ctx, "org-1", "d1")
				convey.So(snaps, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the driver is unknown", func() {
			_, err := svc.CalculateScore(ctx, "org-1", "missing", "")

			convey.Convey("Then the not-found error surfaces", func() {
				convey.So(errors.Is(err, repository.ErrDriverNotFound), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a linked driver with a live telematics score", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1", Name: "Dana", TelematicsID: "tx-1"})
		gw := telematics.NewInMemoryGateway(
			telematics.WithScores(map[string]float64{"tx-1": 80}),
			telematics.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
		)
		svc := startedService(t, WithStore(store), WithGateway(gw))

		_, err := svc.RecordRiskEvent(ctx, riskEvent("d1", 4, fixedNow.AddDate(0, 0, -2)))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When computing the score", func() {
			result, err := svc.CalculateScore(ctx, "org-1", "d1", "90d")

			convey.Convey("Then the provider score blends with the local contribution", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Score, convey.ShouldEqual, 69)
				convey.So(result.Parts.Motive, convey.ShouldEqual, 80)
				convey.So(result.Parts.Local, convey.ShouldEqual, 52)
			})
		})

		convey.Convey("When events fall outside the window", func() {
			_, err := svc.RecordRiskEvent(ctx, riskEvent("d1", 5, fixedNow.AddDate(0, 0, -40)))
			convey.So(err, convey.ShouldBeNil)

			result, err := svc.CalculateScore(ctx, "org-1", "d1", "30d")

			convey.Convey("Then only in-window events contribute", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Parts.Local, convey.ShouldEqual, 52)
			})
		})
	})

	convey.Convey("Given an unreachable telematics provider", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1", TelematicsID: "tx-1", RiskScore: 10})
		gw := telematics.NewInMemoryGateway(
			telematics.WithFailure(),
			telematics.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
		)
		svc := startedService(t, WithStore(store), WithGateway(gw))

		convey.Convey("When computing the score", func() {
			_, err := svc.CalculateScore(ctx, "org-1", "d1", "")

			convey.Convey("Then the call fails", func() {
				convey.So(errors.Is(err, telematics.ErrUnavailable), convey.ShouldBeTrue)
			})

			convey.Convey("And no partial write is left behind", func() {
				snaps, _ := store.ListSnapshots(ctx, "org-1", "d1")
				convey.So(snaps, convey.ShouldBeEmpty)

				d, err := store.GetDriver(ctx, "org-1", "d1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.RiskScore, convey.ShouldEqual, 10)
			})
		})
	})
}

func TestRecordRiskEvent(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1"})
		svc := startedService(t, WithStore(store))

		convey.Convey("When recording a telematics event twice", func() {
			event := riskEvent("d1", 3, fixedNow.AddDate(0, 0, -1))
			event.ID = "evt-1"
			event.Source = model.SourceTelematics

			first, err := svc.RecordRiskEvent(ctx, event)
			convey.So(err, convey.ShouldBeNil)
			second, err := svc.RecordRiskEvent(ctx, event)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the replay is flagged and dropped", func() {
				convey.So(first, convey.ShouldBeFalse)
				convey.So(second, convey.ShouldBeTrue)

				events, err := store.ListEventsSince(ctx, "org-1", "d1", time.Time{})
				convey.So(err, convey.ShouldBeNil)
				convey.So(events, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When recording the same manual event id twice", func() {
			event := riskEvent("d1", 3, fixedNow.AddDate(0, 0, -1))
			event.ID = "evt-1"

			first, err := svc.RecordRiskEvent(ctx, event)
			convey.So(err, convey.ShouldBeNil)
			second, err := svc.RecordRiskEvent(ctx, event)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then manual entries are not deduplicated", func() {
				convey.So(first, convey.ShouldBeFalse)
				convey.So(second, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the event has no id", func() {
			event := riskEvent("d1", 3, fixedNow.AddDate(0, 0, -1))

			duplicate, err := svc.RecordRiskEvent(ctx, event)

			convey.Convey("Then one is generated and the event records", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(duplicate, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the event is invalid", func() {
			event := riskEvent("d1", 9, fixedNow)

			_, err := svc.RecordRiskEvent(ctx, event)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, model.ErrInvalidSeverity), convey.ShouldBeTrue)
			})
		})
	})
}

func TestInterventionQueue(t *testing.T) {
	convey.Convey("Given drivers with contrasting risk", t, func() {
		ctx := context.Background()
		store := seededStore(ctx,
			model.Driver{ID: "d-high", OrgID: "org-1", Name: "High", RiskScore: 88},
			model.Driver{ID: "d-low", OrgID: "org-1", Name: "Low", RiskScore: 35},
		)
		svc := startedService(t, WithStore(store))

		_, err := svc.RecordRiskEvent(ctx, riskEvent("d-high", 5, fixedNow.Add(-2*time.Hour)))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When building the intervention queue", func() {
			queue, err := svc.InterventionQueue(ctx, "org-1")

			convey.Convey("Then the risky driver tops the queue with a coaching recommendation", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(queue, convey.ShouldHaveLength, 2)
				convey.So(queue[0].DriverID, convey.ShouldEqual, "d-high")
				convey.So(queue[0].Recommended, convey.ShouldContainSubstring, "Assign coaching plan")
				convey.So(queue[1].Action, convey.ShouldNotEqual, queue[0].Action)
			})
		})

		convey.Convey("When the risky driver already has an active plan", func() {
			_, err := svc.CreatePlan(ctx, "org-1", "d-high", model.EventSpeeding, 4, "coach-1")
			convey.So(err, convey.ShouldBeNil)

			queue, err := svc.InterventionQueue(ctx, "org-1")

			convey.Convey("Then the recommendation is suppressed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(queue[0].DriverID, convey.ShouldEqual, "d-high")
				convey.So(queue[0].Coached, convey.ShouldBeTrue)
				convey.So(queue[0].Recommended, convey.ShouldEqual, "Monitor driver")
			})
		})
	})
}

func TestCoachingLifecycle(t *testing.T) {
	convey.Convey("Given a driver needing coaching", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1", Name: "Dana"})
		svc := startedService(t, WithStore(store))

		convey.Convey("When creating a plan with default duration", func() {
			plan, err := svc.CreatePlan(ctx, "org-1", "d1", model.EventSpeeding, 0, "coach-1")

			convey.Convey("Then a four week schedule is laid out", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(plan.Status, convey.ShouldEqual, model.PlanActive)
				convey.So(plan.DurationWeeks, convey.ShouldEqual, 4)
				convey.So(plan.CheckIns, convey.ShouldHaveLength, 4)
				convey.So(plan.StartDate.Equal(fixedNow), convey.ShouldBeTrue)
				convey.So(plan.DueDate.Equal(fixedNow.AddDate(0, 0, 28)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When creating a plan for an unknown driver", func() {
			_, err := svc.CreatePlan(ctx, "org-1", "missing", model.EventSpeeding, 4, "coach-1")

			convey.Convey("Then the call fails", func() {
				convey.So(errors.Is(err, repository.ErrDriverNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When applying check-in transitions", func() {
			plan, err := svc.CreatePlan(ctx, "org-1", "d1", model.EventSpeeding, 4, "coach-1")
			convey.So(err, convey.ShouldBeNil)

			updated, err := svc.ApplyCheckIn(ctx, "org-1", plan.ID, coaching.TransitionRequest{
				Week:   1,
				Status: model.CheckInInProgress,
				Actor:  "coach-1",
			})

			convey.Convey("Then the transition persists with its audit trail", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated.CheckIns[0].Status, convey.ShouldEqual, model.CheckInInProgress)
				convey.So(updated.CheckIns[0].Audit, convey.ShouldHaveLength, 1)
				convey.So(updated.CheckIns[0].Audit[0].At.Equal(fixedNow), convey.ShouldBeTrue)

				stored, err := svc.GetPlan(ctx, "org-1", plan.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(stored.CheckIns[0].Status, convey.ShouldEqual, model.CheckInInProgress)
			})

			convey.Convey("And an illegal transition leaves the stored plan untouched", func() {
				convey.So(err, convey.ShouldBeNil)

				_, err := svc.ApplyCheckIn(ctx, "org-1", plan.ID, coaching.TransitionRequest{
					Week:   1,
					Status: model.CheckInPending,
					Actor:  "coach-1",
				})
				convey.So(errors.Is(err, coaching.ErrInvalidTransition), convey.ShouldBeTrue)

				stored, getErr := svc.GetPlan(ctx, "org-1", plan.ID)
				convey.So(getErr, convey.ShouldBeNil)
				convey.So(stored.CheckIns[0].Status, convey.ShouldEqual, model.CheckInInProgress)
				convey.So(stored.CheckIns[0].Audit, convey.ShouldHaveLength, 1)
			})
		})
	})
}

func TestOutcomeInsights(t *testing.T) {
	convey.Convey("Given a coached driver whose score fell", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1", Name: "Dana"})

		clock := fixedNow
		svc := New(
			WithStore(store),
			WithWorkerCount(1),
			WithClock(func() time.Time { return clock }),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		_, err := svc.CreatePlan(ctx, "org-1", "d1", model.EventHardBraking, 4, "coach-1")
		convey.So(err, convey.ShouldBeNil)

		// Two scoring passes: a risky baseline, then a cleaner rescore
		// after the in-window events age out.
		_, err = svc.RecordRiskEvent(ctx, riskEvent("d1", 5, clock.AddDate(0, 0, -1)))
		convey.So(err, convey.ShouldBeNil)
		_, err = svc.CalculateScore(ctx, "org-1", "d1", "30d")
		convey.So(err, convey.ShouldBeNil)

		clock = clock.AddDate(0, 0, 35)
		_, err = svc.CalculateScore(ctx, "org-1", "d1", "30d")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When evaluating outcomes", func() {
			insights, err := svc.OutcomeInsights(ctx, "org-1")

			convey.Convey("Then the plan trend is improved", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(insights, convey.ShouldHaveLength, 1)
				convey.So(insights[0].Trend, convey.ShouldEqual, outcome.TrendImproved)
				convey.So(insights[0].Delta, convey.ShouldNotBeNil)
				convey.So(*insights[0].Delta, convey.ShouldBeLessThan, 0)
			})
		})
	})
}

func TestRescoreFleet(t *testing.T) {
	convey.Convey("Given a fleet of drivers", t, func() {
		ctx := context.Background()
		store := seededStore(ctx,
			model.Driver{ID: "d1", OrgID: "org-1"},
			model.Driver{ID: "d2", OrgID: "org-1"},
			model.Driver{ID: "d3", OrgID: "org-2"},
		)
		svc := startedService(t, WithStore(store))

		convey.Convey("When rescoring one org", func() {
			accepted, err := svc.RescoreFleet(ctx, "org-1", "")

			convey.Convey("Then a job per org driver is accepted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(accepted, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the window token is invalid", func() {
			_, err := svc.RescoreFleet(ctx, "org-1", "2d")

			convey.Convey("Then the call fails", func() {
				convey.So(errors.Is(err, model.ErrInvalidWindow), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the org has no drivers", func() {
			accepted, err := svc.RescoreFleet(ctx, "org-empty", "")

			convey.Convey("Then nothing is enqueued and no error is raised", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(accepted, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestGetStats(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := seededStore(ctx, model.Driver{ID: "d1", OrgID: "org-1"})
		svc := startedService(t, WithStore(store))

		convey.Convey("When reading stats", func() {
			stats := svc.GetStats()

			convey.Convey("Then runtime gauges are exposed", func() {
				convey.So(stats["started"], convey.ShouldBeTrue)
				convey.So(stats["driversTracked"], convey.ShouldEqual, 1)
				convey.So(stats["defaultWindow"], convey.ShouldEqual, "90d")
			})
		})
	})
}
