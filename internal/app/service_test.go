package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/corex-retail/sales-forecast/internal/adapters/predictor"
	service "github.com/corex-retail/sales-forecast/internal/app"
	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/internal/domain/types"
	"github.com/corex-retail/sales-forecast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const ensemblePath = "../adapters/predictor/testdata/ensemble.txt"

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scriptedModel returns raw outputs keyed by the month feature and fails for
// months listed in fail.
type scriptedModel struct {
	out  map[float64]float64
	fail map[float64]bool
}

func (m scriptedModel) Predict(x []float64) (float64, error) {
	if m.fail[x[0]] {
		return 0, errors.New("tree walk failed")
	}
	return m.out[x[0]], nil
}
func (m scriptedModel) NFeatures() int { return forecast.FeatureCount }
func (m scriptedModel) NTrees() int    { return 1 }

func started(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func decodeFeatures(s string) []any {
	d := json.NewDecoder(strings.NewReader(s))
	d.UseNumber()
	var out []any
	if err := d.Decode(&out); err != nil {
		panic(err)
	}
	return out
}

func TestService_Start(t *testing.T) {
	Convey("Given a service pointed at a valid artifact", t, func() {
		svc := started(service.WithModelPath(ensemblePath))
		defer svc.Stop()

		Convey("Then the model is loaded", func() {
			So(svc.ModelLoaded(), ShouldBeTrue)
			So(svc.Ready(), ShouldBeNil)
			So(svc.LoadError(), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})

		Convey("And starting twice is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.ModelLoaded(), ShouldBeTrue)
		})
	})

	Convey("Given a service pointed at a missing artifact", t, func() {
		svc := started(service.WithModelPath(filepath.Join(t.TempDir(), "absent.json")))
		defer svc.Stop()

		Convey("Then it still starts with the model absent", func() {
			So(svc.ModelLoaded(), ShouldBeFalse)
			So(forecast.KindOf(svc.LoadError()), ShouldEqual, forecast.KindArtifactNotFound)
			So(errors.Is(svc.Ready(), forecast.ErrModelUnavailable), ShouldBeTrue)
		})

		Convey("And stats expose the load failure", func() {
			stats := svc.GetStats()
			So(stats["model_loaded"], ShouldEqual, false)
			So(stats["load_error_kind"], ShouldEqual, string(forecast.KindArtifactNotFound))
		})
	})
}

func TestService_Predict(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with the test ensemble", t, func() {
		svc := started(service.WithModelPath(ensemblePath))

		Convey("When a valid vector is sent", func() {
			v, err := svc.Predict(ctx, decodeFeatures(`[16, 100000, 5, 1, 6]`))

			Convey("Then the model output is returned", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1125)
			})
		})

		Convey("When the raw model output is negative", func() {
			h, err := predictor.Load(ctx, predictor.WithPath(ensemblePath))
			So(err, ShouldBeNil)
			raw, err := h.Predict(forecast.FeatureVector{1, 0, 0, 0, 0})
			So(err, ShouldBeNil)
			So(raw, ShouldEqual, -50)

			v, err := svc.Predict(ctx, decodeFeatures(`[1, 0, 0, 0, 0]`))

			Convey("Then it is clamped to zero", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0)
			})
		})

		Convey("When the same vector is sent repeatedly", func() {
			first, _ := svc.Predict(ctx, decodeFeatures(`[12, 50000, 1, 1, 6]`))
			for i := 0; i < 10; i++ {
				v, err := svc.Predict(ctx, decodeFeatures(`[12, 50000, 1, 1, 6]`))
				So(err, ShouldBeNil)
				So(v, ShouldEqual, first)
			}
			So(first, ShouldEqual, 125)
		})

		Convey("When the vector has the wrong length", func() {
			for _, in := range []string{`[]`, `[1,2,3,4]`, `[1,2,3,4,5,6]`} {
				_, err := svc.Predict(ctx, decodeFeatures(in))
				So(forecast.KindOf(err), ShouldEqual, forecast.KindInvalidFeatureCount)
			}
			_, err := svc.Predict(ctx, nil)
			So(forecast.KindOf(err), ShouldEqual, forecast.KindInvalidFeatureCount)
		})

		Convey("When an element is not numeric", func() {
			_, err := svc.Predict(ctx, decodeFeatures(`[12, "lots", 1, 0, 6]`))
			So(forecast.KindOf(err), ShouldEqual, forecast.KindInvalidFeatureType)
		})

		Convey("Then stats count served and failed calls", func() {
			_, _ = svc.Predict(ctx, decodeFeatures(`[12, 50000, 1, 0, 6]`))
			_, _ = svc.Predict(ctx, decodeFeatures(`[12]`))
			stats := svc.GetStats()
			So(stats["predictions_served"], ShouldEqual, int64(1))
			So(stats["predictions_failed"], ShouldEqual, int64(1))
		})
	})

	Convey("Given a service without a model", t, func() {
		svc := started(service.WithModelPath(filepath.Join(t.TempDir(), "absent.json")))

		Convey("When even an invalid vector is sent", func() {
			_, err := svc.Predict(ctx, decodeFeatures(`[1]`))

			Convey("Then model availability is reported first", func() {
				So(forecast.KindOf(err), ShouldEqual, forecast.KindModelUnavailable)
				So(err.Error(), ShouldEqual, "Model not loaded")
			})
		})
	})

	Convey("Given a model that produces non-finite output", t, func() {
		h := predictor.NewHandle(scriptedModel{out: map[float64]float64{12: math.Inf(1)}}, predictor.Info{})
		svc := started(service.WithHandle(h))

		Convey("Then the call fails as an inference failure", func() {
			_, err := svc.Predict(ctx, decodeFeatures(`[12, 50000, 1, 0, 6]`))
			So(forecast.KindOf(err), ShouldEqual, forecast.KindInferenceFailure)
		})
	})
}

func TestService_TestPredictions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with the test ensemble", t, func() {
		svc := started(service.WithModelPath(ensemblePath))
		report, err := svc.TestPredictions(ctx)

		Convey("Then all three fixtures succeed in order", func() {
			So(err, ShouldBeNil)
			So(report.Results, ShouldHaveLength, 3)
			So(report.Results[0].Input, ShouldResemble, []float64{12, 50000, 1, 0, 6})
			So(report.Results[1].Input, ShouldResemble, []float64{16, 100000, 5, 1, 6})
			So(report.Results[2].Input, ShouldResemble, []float64{19, 150000, 2, 0, 6})
			So(*report.Results[0].Prediction, ShouldEqual, 25)
			So(report.ModelWorking, ShouldBeTrue)
			So(report.SuccessRate, ShouldEqual, "3/3")
		})
	})

	Convey("Given a model failing on the middle fixture", t, func() {
		h := predictor.NewHandle(scriptedModel{
			out:  map[float64]float64{12: -5, 19: 42},
			fail: map[float64]bool{16: true},
		}, predictor.Info{})
		svc := started(service.WithHandle(h))
		report, err := svc.TestPredictions(ctx)

		Convey("Then the other fixtures still run", func() {
			So(err, ShouldBeNil)
			So(report.Results, ShouldHaveLength, 3)
			So(report.Results[0].Status, ShouldEqual, types.StatusSuccess)
			So(*report.Results[0].Prediction, ShouldEqual, 0)
			So(report.Results[1].Status, ShouldEqual, types.StatusFailed)
			So(report.Results[1].Error, ShouldContainSubstring, "tree walk failed")
			So(report.Results[1].Prediction, ShouldBeNil)
			So(*report.Results[2].Prediction, ShouldEqual, 42)
			So(report.ModelWorking, ShouldBeTrue)
			So(report.SuccessRate, ShouldEqual, "2/3")
		})
	})

	Convey("Given a model failing on every fixture", t, func() {
		h := predictor.NewHandle(scriptedModel{fail: map[float64]bool{12: true, 16: true, 19: true}}, predictor.Info{})
		svc := started(service.WithHandle(h))
		report, err := svc.TestPredictions(ctx)

		Convey("Then the model is reported as not working", func() {
			So(err, ShouldBeNil)
			So(report.ModelWorking, ShouldBeFalse)
			So(report.SuccessRate, ShouldEqual, "0/3")
		})
	})

	Convey("Given a service without a model", t, func() {
		svc := started(service.WithModelPath(filepath.Join(t.TempDir(), "absent.json")))
		_, err := svc.TestPredictions(ctx)

		So(forecast.KindOf(err), ShouldEqual, forecast.KindModelUnavailable)
	})
}

func TestService_Health(t *testing.T) {
	Convey("Given a fixed clock", t, func() {
		at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
		clock := func() time.Time { return at }

		Convey("When the model is absent", func() {
			svc := started(service.WithModelPath(filepath.Join(t.TempDir(), "absent.json")), service.WithClock(clock))
			h := svc.Health(context.Background())

			Convey("Then health still reports healthy", func() {
				So(h.Status, ShouldEqual, "healthy")
				So(h.ModelLoaded, ShouldBeFalse)
				So(h.Timestamp, ShouldEqual, "2026-10-16T09:30:00Z")
			})
		})

		Convey("When the model is loaded", func() {
			svc := started(service.WithModelPath(ensemblePath), service.WithClock(clock))
			So(svc.Health(context.Background()).ModelLoaded, ShouldBeTrue)
		})
	})
}
