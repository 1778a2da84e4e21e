package scoring

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

func event(severity int) model.RiskEvent {
	return model.RiskEvent{
		ID:         "e1",
		OrgID:      "org-1",
		DriverID:   "d1",
		Type:       model.EventSpeeding,
		Severity:   severity,
		OccurredAt: time.Now().UTC(),
		Source:     model.SourceTelematics,
	}
}

func TestClassify(t *testing.T) {
	convey.Convey("Given the band thresholds", t, func() {
		convey.Convey("When classifying scores around the boundaries", func() {
			convey.Convey("Then 49 should be green", func() {
				convey.So(Classify(49), convey.ShouldEqual, BandGreen)
			})
			convey.Convey("And 50 should be yellow", func() {
				convey.So(Classify(50), convey.ShouldEqual, BandYellow)
			})
			convey.Convey("And 79 should be yellow", func() {
				convey.So(Classify(79), convey.ShouldEqual, BandYellow)
			})
			convey.Convey("And 80 should be red", func() {
				convey.So(Classify(80), convey.ShouldEqual, BandRed)
			})
			convey.Convey("And 0 should be green", func() {
				convey.So(Classify(0), convey.ShouldEqual, BandGreen)
			})
			convey.Convey("And 100 should be red", func() {
				convey.So(Classify(100), convey.ShouldEqual, BandRed)
			})
		})
	})
}

func TestLocalContribution(t *testing.T) {
	convey.Convey("Given a scoring engine with default calibration", t, func() {
		engine := NewEngine()

		convey.Convey("When there are no in-window events", func() {
			convey.Convey("Then the local contribution is zero", func() {
				convey.So(engine.LocalContribution(nil), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When there is a single severity 4 event", func() {
			local := engine.LocalContribution([]model.RiskEvent{event(4)})

			convey.Convey("Then the contribution is base plus four steps", func() {
				convey.So(local, convey.ShouldEqual, 52)
			})
		})

		convey.Convey("When events accumulate", func() {
			one := engine.LocalContribution([]model.RiskEvent{event(2)})
			two := engine.LocalContribution([]model.RiskEvent{event(2), event(2)})

			convey.Convey("Then more events yield a higher score", func() {
				convey.So(two, convey.ShouldBeGreaterThan, one)
			})

			convey.Convey("And worse events yield a higher score", func() {
				worse := engine.LocalContribution([]model.RiskEvent{event(5)})
				convey.So(worse, convey.ShouldBeGreaterThan, one)
			})
		})

		convey.Convey("When many severe events exceed the scale", func() {
			events := make([]model.RiskEvent, 10)
			for i := range events {
				events[i] = event(5)
			}

			convey.Convey("Then the contribution clamps at 100", func() {
				convey.So(engine.LocalContribution(events), convey.ShouldEqual, 100)
			})
		})
	})

	convey.Convey("Given a custom calibration", t, func() {
		engine := NewEngine(WithCalibration(10, 5))

		convey.Convey("When scoring a severity 2 event", func() {
			convey.Convey("Then the custom parameters apply", func() {
				convey.So(engine.LocalContribution([]model.RiskEvent{event(2)}), convey.ShouldEqual, 20)
			})
		})
	})

	convey.Convey("Given an invalid calibration", t, func() {
		engine := NewEngine(WithCalibration(-1, 0))

		convey.Convey("When scoring a severity 4 event", func() {
			convey.Convey("Then the defaults are kept", func() {
				convey.So(engine.LocalContribution([]model.RiskEvent{event(4)}), convey.ShouldEqual, 52)
			})
		})
	})
}

func TestBlend(t *testing.T) {
	convey.Convey("Given the fixed blend weights", t, func() {
		convey.Convey("When blending known motive and local values", func() {
			convey.Convey("Then 80/52 rounds to 69", func() {
				convey.So(Blend(80, 52), convey.ShouldEqual, 69)
			})
			convey.Convey("And 60/34 rounds to 50", func() {
				convey.So(Blend(60, 34), convey.ShouldEqual, 50)
			})
			convey.Convey("And 70/25 rounds to 52", func() {
				convey.So(Blend(70, 25), convey.ShouldEqual, 52)
			})
		})

		convey.Convey("When inputs exceed the scale", func() {
			convey.Convey("Then the composite clamps to [0,100]", func() {
				convey.So(Blend(200, 200), convey.ShouldEqual, 100)
				convey.So(Blend(-50, -50), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestCompute(t *testing.T) {
	convey.Convey("Given a scoring engine", t, func() {
		engine := NewEngine()

		convey.Convey("When computing with a telematics score of 80 and one severity 4 event", func() {
			result := engine.Compute(80, []model.RiskEvent{event(4)})

			convey.Convey("Then the composite is 69 in the yellow band", func() {
				convey.So(result.Score, convey.ShouldEqual, 69)
				convey.So(result.Band, convey.ShouldEqual, BandYellow)
			})

			convey.Convey("And the parts record both inputs", func() {
				convey.So(result.Parts.Motive, convey.ShouldEqual, 80)
				convey.So(result.Parts.Local, convey.ShouldEqual, 52)
			})
		})

		convey.Convey("When computing with the fallback motive and one severity 2 event", func() {
			result := engine.Compute(FallbackMotiveScore, []model.RiskEvent{event(2)})

			convey.Convey("Then the composite lands exactly on the yellow floor", func() {
				convey.So(result.Score, convey.ShouldEqual, 50)
				convey.So(result.Band, convey.ShouldEqual, BandYellow)
			})
		})

		convey.Convey("When computing with no events", func() {
			result := engine.Compute(40, nil)

			convey.Convey("Then the composite is the weighted motive alone", func() {
				convey.So(result.Score, convey.ShouldEqual, 24)
				convey.So(result.Band, convey.ShouldEqual, BandGreen)
				convey.So(result.Parts.Local, convey.ShouldEqual, 0)
			})
		})
	})
}
