package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerOptions(t *testing.T) {
	Convey("Given a manager built on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("portal"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithRefreshInterval(3*time.Second),
			WithConstLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then options are applied", func() {
			So(m.namespace, ShouldEqual, "test")
			So(m.RefreshInterval(), ShouldEqual, 3*time.Second)
			So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
		})

		Convey("And collectors are registered under the namespace", func() {
			m.registrations.WithLabelValues("created").Inc()
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "test_portal_registrations_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("And empty options keep defaults", func() {
			d := NewManager(WithNamespace(""), WithRefreshInterval(0), WithPrometheusRegistry(prometheus.NewRegistry()))
			So(d.namespace, ShouldEqual, "apas")
			So(d.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When journey outcomes are recorded", func() {
			before := testutil.ToFloat64(globalManager.quizOutcomes.WithLabelValues("tennis", "passed"))
			RecordQuizOutcome("tennis", true, 70)
			RecordFitnessOutcome(true, []string{"Daily medications require medical review"})

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.quizOutcomes.WithLabelValues("tennis", "passed")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.blockingReasons.WithLabelValues("Daily medications require medical review")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateLeaderboardSize(11)
			UpdateQueueSize(3)
			AddWorkerBusy(2)
			AddWorkerBusy(-2)

			Convey("Then they hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.leaderboardSize), ShouldEqual, 11)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerBusy), ShouldEqual, 0)
			})
		})

		Convey("When recorders without return values are called", func() {
			So(func() {
				RecordRegistration("created")
				RecordLogin("ok")
				RecordOTPVerification("verified")
				RecordSportSelection("tennis", "Beginner")
				RecordStageTransition("registered", "sport_selected")
				RecordRejectedSkip()
				RecordUploadDuplicate()
				RecordUploadBytes(1 << 20)
				RecordAnalysis("completed", 12)
				RecordAnalysisScore(81)
				RecordLeaderboardWrite("inserted")
				UpdateAthletesTotal(4)
				RecordRepositoryUpdateLatency(1)
				RecordRepositoryQueryLatency(1)
				IncrementSnapshotCount()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1)
				RecordRateLimited("/api/v1/auth/login")
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("full")
				UpdateWorkerCount(2)
				RecordWorkerProcessingLatency(5)
				RecordWorkerError()
				UpdateWorkerThroughput(0.5)
				RecordErrorByComponent("queue", "full")
				RecordErrorByEndpoint("/x", "GET", "not_found")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)
		})

		Convey("Then the registry exposes portal metrics", func() {
			RecordLogin("ok")
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "apas_portal_logins_total")
		})
	})
}
