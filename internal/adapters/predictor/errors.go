package predictor

import "errors"

// Sentinel kinds for predictor errors.
var (
	ErrUnknownFormat   = errors.New("unknown model format")
	ErrInvalidEnsemble = errors.New("invalid tree ensemble")
	ErrFeatureMismatch = errors.New("artifact feature count mismatch")
	ErrPredictorPanic  = errors.New("predictor panicked")
	ErrFeatureCount    = errors.New("wrong number of features")
)
