// Package predictor loads tree-ensemble artifacts and exposes them as an
// immutable, concurrency-safe Handle.
package predictor

import (
	"fmt"
	"time"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
)

// Model is a decoded tree ensemble. Implementations must not mutate shared
// state in Predict; a Handle calls it from many goroutines at once.
type Model interface {
	// Predict returns the raw regression output for one row.
	Predict(features []float64) (float64, error)
	// NFeatures is the feature count baked into the artifact.
	NFeatures() int
	// NTrees is the number of trees in the ensemble.
	NTrees() int
}

// Info describes a loaded artifact.
type Info struct {
	Path            string        `json:"path"`
	Format          string        `json:"format"`
	Trees           int           `json:"trees"`
	Features        int           `json:"features"`
	SmokePrediction float64       `json:"smoke_prediction"`
	LoadedAt        time.Time     `json:"loaded_at"`
	LoadDuration    time.Duration `json:"load_duration_ns"`
}

// Handle wraps a loaded Model. It is created once and never mutated.
type Handle struct {
	model Model
	info  Info
}

// NewHandle wraps an already decoded model.
func NewHandle(m Model, info Info) *Handle {
	return &Handle{model: m, info: info}
}

// Info returns the artifact description.
func (h *Handle) Info() Info { return h.info }

// Predict runs the model on v and returns the raw output. Library panics are
// recovered and reported as inference failures.
func (h *Handle) Predict(v forecast.FeatureVector) (out float64, err error) {
	const op = "predictor.predict"
	defer func() {
		if r := recover(); r != nil {
			out = 0
			err = forecast.WrapError(op, forecast.KindInferenceFailure, "Prediction failed",
				fmt.Errorf("%w: %v", ErrPredictorPanic, r))
		}
	}()
	raw, perr := h.model.Predict(v.Slice())
	if perr != nil {
		return 0, forecast.WrapError(op, forecast.KindInferenceFailure, "Prediction failed", perr)
	}
	return raw, nil
}
