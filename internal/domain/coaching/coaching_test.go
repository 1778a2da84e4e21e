package coaching

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

var at = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func schedule() []model.CheckIn {
	return NewSchedule(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 4, "coach-1")
}

func TestNewSchedule(t *testing.T) {
	convey.Convey("Given a plan start date and duration", t, func() {
		start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

		convey.Convey("When building a four week schedule", func() {
			checkIns := NewSchedule(start, 4, "coach-1")

			convey.Convey("Then one pending check-in exists per week", func() {
				convey.So(checkIns, convey.ShouldHaveLength, 4)
				for i, ci := range checkIns {
					convey.So(ci.Week, convey.ShouldEqual, i+1)
					convey.So(ci.Status, convey.ShouldEqual, model.CheckInPending)
					convey.So(ci.Assignee, convey.ShouldEqual, "coach-1")
				}
			})

			convey.Convey("And check-ins are spaced at weekly intervals", func() {
				convey.So(checkIns[0].ScheduledFor, convey.ShouldEqual, start)
				convey.So(checkIns[3].ScheduledFor, convey.ShouldEqual, start.AddDate(0, 0, 21))
			})
		})

		convey.Convey("When the duration is below one week", func() {
			checkIns := NewSchedule(start, 0, "coach-1")

			convey.Convey("Then a single week is scheduled", func() {
				convey.So(checkIns, convey.ShouldHaveLength, 1)
			})
		})
	})
}

func TestApplyTransition(t *testing.T) {
	convey.Convey("Given a pending check-in schedule", t, func() {
		checkIns := schedule()

		convey.Convey("When moving week 1 to In Progress", func() {
			updated, err := ApplyTransition(checkIns, TransitionRequest{
				Week:   1,
				Status: model.CheckInInProgress,
				Actor:  "coach-1",
				At:     at,
			})

			convey.Convey("Then the status advances and is audited", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated[0].Status, convey.ShouldEqual, model.CheckInInProgress)
				convey.So(updated[0].Audit, convey.ShouldHaveLength, 1)

				entry := updated[0].Audit[0]
				convey.So(entry.Field, convey.ShouldEqual, "status")
				convey.So(entry.From, convey.ShouldEqual, "Pending")
				convey.So(entry.To, convey.ShouldEqual, "In Progress")
				convey.So(entry.Actor, convey.ShouldEqual, "coach-1")
				convey.So(entry.At, convey.ShouldEqual, at)
				convey.So(entry.ID, convey.ShouldNotBeEmpty)
			})

			convey.Convey("And the other weeks are untouched", func() {
				convey.So(updated[1], convey.ShouldResemble, checkIns[1])
				convey.So(updated[2], convey.ShouldResemble, checkIns[2])
			})

			convey.Convey("And the input list is not mutated", func() {
				convey.So(checkIns[0].Status, convey.ShouldEqual, model.CheckInPending)
				convey.So(checkIns[0].Audit, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When completing a week directly from Pending", func() {
			updated, err := ApplyTransition(checkIns, TransitionRequest{
				Week:   2,
				Status: model.CheckInComplete,
				Actor:  "coach-1",
				At:     at,
			})

			convey.Convey("Then skipping In Progress is allowed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated[1].Status, convey.ShouldEqual, model.CheckInComplete)
			})
		})

		convey.Convey("When moving a completed week backwards", func() {
			completed, err := ApplyTransition(checkIns, TransitionRequest{
				Week:   1,
				Status: model.CheckInComplete,
				Actor:  "coach-1",
				At:     at,
			})
			convey.So(err, convey.ShouldBeNil)

			updated, err := ApplyTransition(completed, TransitionRequest{
				Week:   1,
				Status: model.CheckInPending,
				Actor:  "coach-1",
				At:     at,
			})

			convey.Convey("Then the transition is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, ErrInvalidTransition), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "invalid check-in transition")
				convey.So(updated, convey.ShouldBeNil)
			})

			convey.Convey("And the completed state is preserved", func() {
				convey.So(completed[0].Status, convey.ShouldEqual, model.CheckInComplete)
				convey.So(completed[0].Audit, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When updating notes without a status change", func() {
			notes := "Reviewed dashcam footage together"
			updated, err := ApplyTransition(checkIns, TransitionRequest{
				Week:  3,
				Notes: &notes,
				Actor: "coach-2",
				At:    at,
			})

			convey.Convey("Then the status stays Pending", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated[2].Status, convey.ShouldEqual, model.CheckInPending)
				convey.So(updated[2].Notes, convey.ShouldEqual, notes)
			})

			convey.Convey("And only a notes audit entry is appended", func() {
				convey.So(updated[2].Audit, convey.ShouldHaveLength, 1)
				convey.So(updated[2].Audit[0].Field, convey.ShouldEqual, "notes")
				convey.So(updated[2].Audit[0].From, convey.ShouldEqual, "")
				convey.So(updated[2].Audit[0].To, convey.ShouldEqual, notes)
			})
		})

		convey.Convey("When changing status and notes together", func() {
			notes := "Kickoff session held"
			updated, err := ApplyTransition(checkIns, TransitionRequest{
				Week:   1,
				Status: model.CheckInInProgress,
				Notes:  &notes,
				Actor:  "coach-1",
				At:     at,
			})

			convey.Convey("Then both mutations are audited separately", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated[0].Audit, convey.ShouldHaveLength, 2)
				convey.So(updated[0].Audit[0].Field, convey.ShouldEqual, "status")
				convey.So(updated[0].Audit[1].Field, convey.ShouldEqual, "notes")
			})
		})

		convey.Convey("When the week does not exist", func() {
			updated, err := ApplyTransition(checkIns, TransitionRequest{
				Week:   9,
				Status: model.CheckInComplete,
				Actor:  "coach-1",
			})

			convey.Convey("Then it fails with the unknown-week sentinel", func() {
				convey.So(errors.Is(err, ErrUnknownWeek), convey.ShouldBeTrue)
				convey.So(updated, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the target status is unrecognized", func() {
			updated, err := ApplyTransition(checkIns, TransitionRequest{
				Week:   1,
				Status: "Paused",
				Actor:  "coach-1",
			})

			convey.Convey("Then it fails with the unknown-status sentinel", func() {
				convey.So(errors.Is(err, ErrUnknownStatus), convey.ShouldBeTrue)
				convey.So(updated, convey.ShouldBeNil)
			})
		})

		convey.Convey("When repeating the same notes value", func() {
			notes := "same"
			first, err := ApplyTransition(checkIns, TransitionRequest{Week: 1, Notes: &notes, Actor: "coach-1", At: at})
			convey.So(err, convey.ShouldBeNil)

			second, err := ApplyTransition(first, TransitionRequest{Week: 1, Notes: &notes, Actor: "coach-1", At: at})

			convey.Convey("Then no duplicate audit entry is appended", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(second[0].Audit, convey.ShouldHaveLength, 1)
			})
		})
	})
}
