package main

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestRootCmdFlags(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		cmd := newRootCmd()

		convey.Convey("Defaults point at a local dashboard", func() {
			f := cmd.Flags()
			url, _ := f.GetString("url")
			scenarios, _ := f.GetInt("scenarios")
			timeout, _ := f.GetDuration("timeout")
			convey.So(url, convey.ShouldEqual, "http://localhost:9080")
			convey.So(scenarios, convey.ShouldEqual, defaultScenarios)
			convey.So(timeout, convey.ShouldEqual, 30*time.Second)
		})

		convey.Convey("Flags parse", func() {
			err := cmd.Flags().Parse([]string{"--scenarios", "5", "--seed", "7", "-v"})
			convey.So(err, convey.ShouldBeNil)
			seed, _ := cmd.Flags().GetUint64("seed")
			verbose, _ := cmd.Flags().GetBool("verbose")
			convey.So(seed, convey.ShouldEqual, uint64(7))
			convey.So(verbose, convey.ShouldBeTrue)
		})
	})
}
