package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/livescore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.ChangeQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.HubSendBuffer, convey.ShouldEqual, 64)
			convey.So(cfg.NATSSubject, convey.ShouldEqual, "livescore.events")
			convey.So(cfg.Criteria, convey.ShouldHaveLength, 2)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations are derived from milliseconds", func() {
			convey.So(cfg.HubWriteTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.HubPingInterval(), convey.ShouldEqual, 25*time.Second)
			convey.So(cfg.HubReadTimeout(), convey.ShouldEqual, time.Minute)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the read timeout does not exceed the ping interval", func() {
			cfg.HubReadTimeoutMS = cfg.HubPingIntervalMS

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a criterion has no positive maximum", func() {
			cfg.Criteria = []config.CriterionSeed{{Name: "Design", MaxScore: 0}}

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When criteria repeat a name", func() {
			cfg.Criteria = []config.CriterionSeed{{Name: "A", MaxScore: 1}, {Name: "A", MaxScore: 2}}

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the rate limit is disabled", func() {
			cfg.SubmitRatePerSec = 0

			convey.Convey("Then the config is still valid", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
