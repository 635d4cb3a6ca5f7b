package predictor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/pkg/logger"
)

// Load reads the artifact, decodes it and runs one smoke prediction. It
// returns either a fully usable Handle or nil and a *forecast.Error of kind
// ArtifactNotFound or DeserializationFailure. Panics raised by decoders are
// recovered.
func Load(ctx context.Context, opts ...Option) (h *Handle, err error) {
	const op = "predictor.load"
	o := loadOptions{format: FormatAuto, smoke: forecast.SmokeVector}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("loader")
	}
	log := o.logger
	start := time.Now()

	defer func() {
		if err != nil {
			h = nil
			log.Error(ctx, "model load failed",
				logger.String("path", o.path),
				logger.String("kind", string(forecast.KindOf(err))),
				logger.Error(err))
		}
	}()

	st, statErr := os.Stat(o.path)
	switch {
	case errors.Is(statErr, fs.ErrNotExist) || o.path == "":
		return nil, forecast.WrapError(op, forecast.KindArtifactNotFound,
			"Model file not found", fmt.Errorf("%q", o.path))
	case statErr != nil:
		return nil, forecast.WrapError(op, forecast.KindDeserializationFailure, "Cannot read model file", statErr)
	case st.IsDir():
		return nil, forecast.WrapError(op, forecast.KindDeserializationFailure,
			"Cannot read model file", fmt.Errorf("%q is a directory", o.path))
	}

	format, err := resolveFormat(o.path, o.format)
	if err != nil {
		return nil, forecast.WrapError(op, forecast.KindDeserializationFailure, "Cannot load model", err)
	}

	model, err := decode(o.path, format)
	if err != nil {
		return nil, forecast.WrapError(op, forecast.KindDeserializationFailure, "Cannot load model", err)
	}
	if n := model.NFeatures(); n != forecast.FeatureCount {
		return nil, forecast.WrapError(op, forecast.KindDeserializationFailure, "Cannot load model",
			fmt.Errorf("%w: artifact expects %d features, service sends %d", ErrFeatureMismatch, n, forecast.FeatureCount))
	}

	handle := NewHandle(model, Info{
		Path:     o.path,
		Format:   format,
		Trees:    model.NTrees(),
		Features: model.NFeatures(),
	})
	smoke, err := handle.Predict(o.smoke)
	if err != nil {
		return nil, forecast.WrapError(op, forecast.KindDeserializationFailure, "Model smoke test failed", err)
	}
	handle.info.SmokePrediction = smoke
	handle.info.LoadedAt = time.Now().UTC()
	handle.info.LoadDuration = time.Since(start)

	log.Info(ctx, "model loaded",
		logger.String("path", o.path),
		logger.String("format", format),
		logger.Int("trees", handle.info.Trees),
		logger.Int("features", handle.info.Features))
	log.Info(ctx, "smoke prediction",
		logger.Any("input", o.smoke),
		logger.Float64("prediction", smoke))
	return handle, nil
}

// resolveFormat maps auto to a concrete format by file extension.
func resolveFormat(path, format string) (string, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	if format != FormatAuto {
		return format, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatLightGBMJSON, nil
	case ".txt":
		return FormatLightGBM, nil
	case ".model", ".bin", ".xgb":
		return FormatXGBoost, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format from %q", ErrUnknownFormat, filepath.Base(path))
	}
}

func decode(path, format string) (m Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: decoder panic: %v", ErrInvalidEnsemble, r)
		}
	}()
	switch format {
	case FormatLightGBM:
		return loadLightGBM(path)
	case FormatLightGBMJSON:
		return loadLightGBMJSON(path)
	case FormatXGBoost:
		return loadXGBoost(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
