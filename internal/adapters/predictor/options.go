package predictor

import (
	"fmt"
	"strings"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/pkg/logger"
)

// Supported artifact formats. FormatAuto picks one by file extension.
const (
	FormatAuto         = "auto"
	FormatLightGBM     = "lightgbm"
	FormatLightGBMJSON = "lightgbm-json"
	FormatXGBoost      = "xgboost"
)

// Formats lists every accepted format value.
var Formats = []string{FormatAuto, FormatLightGBM, FormatLightGBMJSON, FormatXGBoost}

// ParseFormat normalises s and rejects values Load does not understand.
// An empty string means FormatAuto.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	if f == "" {
		return FormatAuto, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Option applies a configuration option to Load.
type Option func(*loadOptions)

type loadOptions struct {
	path   string
	format string
	smoke  forecast.FeatureVector
	logger logger.Logger
}

// WithPath sets the artifact location.
func WithPath(path string) Option {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithFormat sets the artifact format; empty keeps auto-detection.
func WithFormat(format string) Option {
	return func(o *loadOptions) {
		if f := strings.ToLower(strings.TrimSpace(format)); f != "" {
			o.format = f
		}
	}
}

// WithSmokeVector overrides the vector used for the post-load check.
func WithSmokeVector(v forecast.FeatureVector) Option {
	return func(o *loadOptions) {
		o.smoke = v
	}
}

// WithLogger sets a custom logger for the loader.
func WithLogger(l logger.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
