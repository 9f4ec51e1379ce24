package model_test

import (
	"testing"

	"github.com/okian/cadence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewObservation(t *testing.T) {
	Convey("Given a clock time and a value", t, func() {
		Convey("When the clock time is valid", func() {
			o, err := model.NewObservation("9:05", 1.2)

			Convey("Then minute of day is derived once", func() {
				So(err, ShouldBeNil)
				So(o.MinuteOfDay, ShouldEqual, 545)
				So(o.ClockTime, ShouldEqual, "9:05")
				So(o.DisplayTime(), ShouldEqual, "09:05")
				So(o.Value, ShouldEqual, 1.2)
			})
		})

		Convey("When the clock time is invalid", func() {
			_, err := model.NewObservation("25:00", 1.0)

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
