package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithMetricPrefix("x"),
			WithHistogramBuckets([]float64{1, 2}),
			WithRefreshInterval(5*time.Second),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the manager reflects them", func() {
			So(m.namespace, ShouldEqual, "test")
			So(m.subsystem, ShouldEqual, "unit")
			So(m.refreshInterval, ShouldEqual, 5*time.Second)
			So(m.histogramBuckets, ShouldResemble, []float64{1, 2})
		})

		Convey("And metric names carry namespace, subsystem and prefix", func() {
			m.RecordPrediction(OutcomeSuccess, 10)
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "test_unit_x_predictions_total" {
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("And empty values keep the defaults", func() {
			d := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithInferenceBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			So(d.namespace, ShouldEqual, "forecast")
			So(d.refreshInterval, ShouldEqual, defaultRefreshInterval)
			So(d.inferenceBuckets, ShouldResemble, defaultInferenceBuckets)
			So(d.histogramBuckets, ShouldResemble, defaultHTTPBuckets)
		})

		Convey("And inference and prediction buckets are configurable", func() {
			d := NewManager(
				WithInferenceBuckets([]float64{0.1, 1}),
				WithPredictionBuckets([]float64{100, 1000}),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			So(d.inferenceBuckets, ShouldResemble, []float64{0.1, 1})
			So(d.valueBuckets, ShouldResemble, []float64{100, 1000})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When predictions are recorded", func() {
			m.RecordPrediction(OutcomeSuccess, 120)
			m.RecordPrediction(OutcomeSuccess, 80)
			m.RecordPrediction(OutcomeFailure, 0)

			Convey("Then counters are split by outcome", func() {
				So(testutil.ToFloat64(m.predictions.WithLabelValues(OutcomeSuccess)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.predictions.WithLabelValues(OutcomeFailure)), ShouldEqual, 1)
			})
		})

		Convey("When the model state is set", func() {
			m.SetModelLoaded(true, 100, 12)

			Convey("Then gauges reflect it", func() {
				So(testutil.ToFloat64(m.modelLoaded), ShouldEqual, 1)
				So(testutil.ToFloat64(m.modelTrees), ShouldEqual, 100)
				So(testutil.ToFloat64(m.modelLoadDuration), ShouldEqual, 12)
			})

			Convey("And an absent model flips the gauge", func() {
				m.SetModelLoaded(false, 0, 1)
				So(testutil.ToFloat64(m.modelLoaded), ShouldEqual, 0)
			})
		})

		Convey("When HTTP traffic and errors are recorded", func() {
			m.RecordHTTPRequest("predict", "POST", "400", 1.5)
			m.RecordError("predict", "POST", "invalid_feature_count", "medium")

			Convey("Then the labelled series exist", func() {
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("predict", "POST", "400")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.errorRateByEndpoint.WithLabelValues("predict", "POST", "invalid_feature_count")), ShouldEqual, 1)
			})
		})

		Convey("When recording is disabled", func() {
			off := NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
			off.RecordFixtureRun(OutcomeSuccess)

			So(off.Enabled(), ShouldBeFalse)
			So(testutil.ToFloat64(off.fixtureRuns.WithLabelValues(OutcomeSuccess)), ShouldEqual, 0)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(func() {
			RecordPrediction(OutcomeSuccess, 1)
			RecordInferenceLatency(0.2)
			RecordFixtureRun(OutcomeFailure)
			SetModelLoaded(false, 0, 0)
			RecordHTTPRequest("health", "GET", "200", 0.1)
			RecordError("predict", "POST", "model_unavailable", "high")
			UpdateSystem(1024, 4, 0.5)
		}, ShouldNotPanic)

		Convey("Then the custom registry exposes them", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			joined := strings.Join(names, ",")
			So(joined, ShouldContainSubstring, "forecast_sales_predictions_total")
			So(joined, ShouldContainSubstring, "forecast_sales_model_loaded")
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
