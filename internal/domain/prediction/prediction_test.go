package prediction_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/prediction"
	. "github.com/smartystreets/goconvey/convey"
)

func obs(times ...string) []model.Observation {
	out := make([]model.Observation, 0, len(times))
	for _, ts := range times {
		o, err := model.NewObservation(ts, 1.0)
		if err != nil {
			panic(err)
		}
		out = append(out, o)
	}
	return out
}

func atMinutes(ms ...int) []model.Observation {
	out := make([]model.Observation, 0, len(ms))
	for _, m := range ms {
		out = append(out, model.Observation{ClockTime: clock.Format(m), MinuteOfDay: clock.Normalize(m)})
	}
	return out
}

func TestGaps(t *testing.T) {
	Convey("Given observations that cross midnight", t, func() {
		gaps := prediction.Gaps(obs("23:50", "23:55", "00:02"))

		Convey("Then negative gaps are corrected by a day", func() {
			So(gaps, ShouldResemble, []int{5, 7})
		})
	})

	Convey("Given fewer than two observations", t, func() {
		So(prediction.Gaps(obs("10:00")), ShouldBeNil)
	})
}

func TestEngine_Predict(t *testing.T) {
	Convey("Given the default engine", t, func() {
		engine := prediction.NewEngine()

		Convey("When gaps are a regular five minutes", func() {
			in := []model.Observation{
				{ClockTime: "09:00", Value: 1.2, MinuteOfDay: 540},
				{ClockTime: "09:05", Value: 3.0, MinuteOfDay: 545},
				{ClockTime: "09:10", Value: 2.5, MinuteOfDay: 550},
			}
			p, err := engine.Predict(in)

			Convey("Then the mid regime applies with the volatility floor", func() {
				So(err, ShouldBeNil)
				So(p.Set, ShouldBeTrue)
				So(p.Regime, ShouldEqual, prediction.RegimeMid)
				So(p.Gaps, ShouldResemble, [2]int{5, 5})
				So(p.AvgGap, ShouldEqual, 5)
				So(p.Volatility, ShouldEqual, 10)
				So(p.MinuteOfDay, ShouldEqual, 557)
				So(p.ClockTime, ShouldEqual, "09:17")
				So(p.Confidence, ShouldEqual, 73)
			})
		})

		Convey("When gaps are two and three minutes", func() {
			p, err := engine.Predict(atMinutes(595, 597, 600))

			Convey("Then the fast regime applies", func() {
				So(err, ShouldBeNil)
				So(p.Regime, ShouldEqual, prediction.RegimeFast)
				So(p.AvgGap, ShouldEqual, 2.5)
				So(p.Volatility, ShouldEqual, 0.5)
				So(p.MinuteOfDay, ShouldEqual, 604)
				So(p.ClockTime, ShouldEqual, "10:04")
				So(p.Confidence, ShouldEqual, 91)
			})
		})

		Convey("When gaps average above twenty", func() {
			p, err := engine.Predict(atMinutes(600, 630, 660))

			Convey("Then the slow regime applies", func() {
				So(err, ShouldBeNil)
				So(p.Regime, ShouldEqual, prediction.RegimeSlow)
				So(p.MinuteOfDay, ShouldEqual, 660+22)
				So(p.Confidence, ShouldEqual, 75)
			})
		})

		Convey("When the average gap is exactly twenty", func() {
			p, err := engine.Predict(atMinutes(600, 615, 640))

			Convey("Then the mid regime applies", func() {
				So(err, ShouldBeNil)
				So(p.AvgGap, ShouldEqual, 20)
				So(p.Regime, ShouldEqual, prediction.RegimeMid)
				So(p.MinuteOfDay, ShouldEqual, 640+22)
				So(p.Confidence, ShouldEqual, 88-1.5*5)
			})
		})

		Convey("When the prediction passes midnight", func() {
			p, err := engine.Predict(obs("23:50", "23:55", "23:58"))

			Convey("Then the raw minute is kept and the display wraps", func() {
				So(err, ShouldBeNil)
				So(p.MinuteOfDay, ShouldEqual, 1438+4)
				So(p.ClockTime, ShouldEqual, "00:02")
			})
		})

		Convey("When called twice with identical input", func() {
			in := obs("08:00", "08:07", "08:19")
			a, _ := engine.Predict(in)
			b, _ := engine.Predict(in)

			Convey("Then the results are identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When given the wrong number of observations", func() {
			for _, in := range [][]model.Observation{nil, obs("08:00", "08:05"), obs("08:00", "08:05", "08:10", "08:15")} {
				p, err := engine.Predict(in)
				So(errors.Is(err, prediction.ErrPrecondition), ShouldBeTrue)
				So(p.Set, ShouldBeFalse)
				So(p.ClockTime, ShouldEqual, clock.Unset)
			}
		})

		Convey("When sweeping synthetic triples", func() {
			ok := true
			for a := 0; a < 120; a += 3 {
				for b := 0; b < 120; b += 7 {
					p, err := engine.Predict(atMinutes(700, 700+a, 700+a+b))
					if err != nil || p.Confidence < 40 || p.Confidence > 98 || math.IsNaN(p.Confidence) {
						ok = false
					}
				}
			}

			Convey("Then confidence stays inside [40, 98]", func() {
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given an engine with a custom volatility floor", t, func() {
		engine := prediction.NewEngine(prediction.WithVolatilityFloor(4))
		p, err := engine.Predict(atMinutes(540, 545, 550))

		Convey("Then the floor feeds the confidence", func() {
			So(err, ShouldBeNil)
			So(p.Volatility, ShouldEqual, 4)
			So(p.Confidence, ShouldEqual, 82)
		})
	})

	Convey("Given an engine with tighter confidence bounds", t, func() {
		engine := prediction.NewEngine(prediction.WithConfidenceBounds(50, 90))
		p, _ := engine.Predict(atMinutes(597, 598, 600))

		Convey("Then the clamp uses them", func() {
			So(p.Confidence, ShouldEqual, 90)
			So(engine.Params().ConfidenceMin, ShouldEqual, 50)
			So(engine.Params().ConfidenceMax, ShouldEqual, 90)
		})
	})

	Convey("Given collapsed or inverted confidence bounds", t, func() {
		Convey("Then the defaults are kept", func() {
			for _, b := range [][2]float64{{70, 70}, {90, 50}, {-1, 60}} {
				params := prediction.NewEngine(prediction.WithConfidenceBounds(b[0], b[1])).Params()
				So(params.ConfidenceMin, ShouldEqual, 40)
				So(params.ConfidenceMax, ShouldEqual, 98)
			}
		})
	})
}

func TestClassifyRegime(t *testing.T) {
	Convey("Given regime boundaries", t, func() {
		So(prediction.ClassifyRegime(4.999), ShouldEqual, prediction.RegimeFast)
		So(prediction.ClassifyRegime(5), ShouldEqual, prediction.RegimeMid)
		So(prediction.ClassifyRegime(20), ShouldEqual, prediction.RegimeMid)
		So(prediction.ClassifyRegime(20.5), ShouldEqual, prediction.RegimeSlow)
		So(prediction.RegimeSlow.String(), ShouldEqual, "slow")
		So(prediction.Regime(42).String(), ShouldEqual, "unknown")
	})
}

func TestUnset(t *testing.T) {
	Convey("Given the unset sentinel", t, func() {
		p := prediction.Unset()

		So(p.Set, ShouldBeFalse)
		So(p.ClockTime, ShouldEqual, "--:--")
		So(p.Confidence, ShouldEqual, 0)
	})
}
