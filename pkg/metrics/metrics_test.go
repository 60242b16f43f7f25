package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.submissionsAccepted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_submissions_accepted_total"], ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording submissions", func() {
			before := testutil.ToFloat64(globalManager.submissionsAccepted)
			RecordSubmissionAccepted()
			RecordSubmissionRejected("out_of_range")

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.submissionsAccepted), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.submissionsRejected.WithLabelValues("out_of_range")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating the clock gauges", func() {
			UpdateClockActive(true)
			UpdateClockRemaining(42.5)

			Convey("Then the gauges reflect the last value", func() {
				So(testutil.ToFloat64(globalManager.clockActive), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.clockRemaining), ShouldEqual, 42.5)
			})

			UpdateClockActive(false)
			So(testutil.ToFloat64(globalManager.clockActive), ShouldEqual, 0)
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				UpdateScoreEntries(3)
				RecordRecomputeLatency(1.5)
				RecordLeaderboardUpdate()
				UpdateLeaderboardTeams(2)
				UpdateHubConnections(7)
				RecordHubBroadcast("leaderboard_update")
				RecordHubDrop("slow_consumer")
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordRelayPublish()
				RecordRelayReceive()
				RecordRelayDuplicate()
				RecordRelayError("publish")
				RecordKVError("put")
				RecordSessionReconnect("failed")
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 3)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.hubConnections), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.leaderboardTeams), ShouldEqual, 2)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		registry := GetRegistry()

		Convey("Then it is the registry the global manager writes to", func() {
			So(registry, ShouldEqual, customRegistry)
			RecordLeaderboardUpdate()
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
