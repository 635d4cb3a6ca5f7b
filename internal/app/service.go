// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corex-retail/sales-forecast/internal/adapters/predictor"
	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/internal/domain/types"
	"github.com/corex-retail/sales-forecast/pkg/logger"
	"github.com/corex-retail/sales-forecast/pkg/metrics"
)

// modelState is published once by Start and never mutated afterwards.
type modelState struct {
	handle  *predictor.Handle
	loadErr error
}

// Service implements the API dependencies for the forecast service.
type Service struct {
	mu sync.Mutex

	// Configuration
	modelPath   string
	modelFormat string
	injected    *predictor.Handle

	state   atomic.Pointer[modelState]
	started bool

	now       func() time.Time
	startedAt time.Time

	served atomic.Int64
	failed atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithModelPath sets the artifact loaded by Start.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithModelFormat sets the artifact format; see predictor.Format*.
func WithModelFormat(format string) Option {
	return func(s *Service) {
		s.modelFormat = format
	}
}

// WithHandle supplies an already loaded handle; Start then skips loading.
func WithHandle(h *predictor.Handle) Option {
	return func(s *Service) {
		s.injected = h
	}
}

// WithClock overrides time.Now, used for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelFormat: predictor.FormatAuto,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the model exactly once. A load failure is logged and recorded;
// the service still starts and reports the model as unavailable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.startedAt = s.now()

	st := &modelState{handle: s.injected}
	if st.handle == nil {
		start := time.Now()
		h, err := predictor.Load(ctx,
			predictor.WithPath(s.modelPath),
			predictor.WithFormat(s.modelFormat),
			predictor.WithLogger(s.logger.Named("loader")),
		)
		st.handle, st.loadErr = h, err
		loadMs := float64(time.Since(start).Microseconds()) / 1e3
		if err != nil {
			s.log().Warn(ctx, "starting without a model; predictions will report unavailable",
				logger.String("model_path", s.modelPath), logger.Error(err))
			metrics.SetModelLoaded(false, 0, loadMs)
		} else {
			metrics.SetModelLoaded(true, h.Info().Trees, loadMs)
		}
	} else {
		metrics.SetModelLoaded(true, st.handle.Info().Trees, 0)
	}
	s.state.Store(st)

	s.started = true
	s.log().Info(ctx, "forecast service started", logger.Bool("model_loaded", st.handle != nil))
	return nil
}

// Stop marks the service stopped. The model handle needs no teardown.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.log().Info(context.Background(), "forecast service stopped",
		logger.Int("predictions_served", int(s.served.Load())),
		logger.Int("predictions_failed", int(s.failed.Load())))
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}

func (s *Service) handle() *predictor.Handle {
	if st := s.state.Load(); st != nil {
		return st.handle
	}
	return nil
}

// ModelLoaded reports whether a usable model is available.
func (s *Service) ModelLoaded() bool {
	return s.handle() != nil
}

// LoadError returns the startup load failure, if any.
func (s *Service) LoadError() error {
	if st := s.state.Load(); st != nil {
		return st.loadErr
	}
	return nil
}

// Ready returns a ModelUnavailable error when no model is loaded.
func (s *Service) Ready() error {
	if s.handle() == nil {
		return forecast.NewError("app.ready", forecast.KindModelUnavailable, "Model not loaded")
	}
	return nil
}

// Predict validates raw feature values and returns the clamped prediction.
// Checks run in order: model availability, feature count, feature types.
func (s *Service) Predict(ctx context.Context, values []any) (float64, error) {
	const op = "app.predict"
	out, err := s.predict(ctx, values)
	if err != nil {
		s.failed.Add(1)
		metrics.RecordPrediction(metrics.OutcomeFailure, 0)
		s.log().Warn(ctx, "prediction rejected",
			logger.String("op", op),
			logger.String("kind", string(forecast.KindOf(err))),
			logger.Any("features", values),
			logger.Error(err))
		return 0, err
	}
	s.served.Add(1)
	metrics.RecordPrediction(metrics.OutcomeSuccess, out)
	return out, nil
}

func (s *Service) predict(ctx context.Context, values []any) (float64, error) {
	h := s.handle()
	if h == nil {
		return 0, s.Ready()
	}
	v, err := forecast.Coerce(values)
	if err != nil {
		return 0, err
	}
	out, err := s.infer(h, v)
	if err != nil {
		return 0, err
	}
	s.log().Info(ctx, "prediction",
		logger.Any("features", v.Slice()),
		logger.Float64("prediction", out))
	return out, nil
}

// infer runs the model and applies the non-negative sales clamp.
func (s *Service) infer(h *predictor.Handle, v forecast.FeatureVector) (float64, error) {
	start := time.Now()
	raw, err := h.Predict(v)
	metrics.RecordInferenceLatency(float64(time.Since(start).Microseconds()) / 1e3)
	if err != nil {
		return 0, err
	}
	out, err := forecast.Clamp(raw)
	if err != nil {
		return 0, forecast.WrapError("app.infer", forecast.KindInferenceFailure, "Prediction failed", err)
	}
	return out, nil
}

// TestPredictions runs every fixture independently; one failing fixture does
// not stop the others.
func (s *Service) TestPredictions(ctx context.Context) (types.SelfTestReport, error) {
	h := s.handle()
	if h == nil {
		return types.SelfTestReport{}, s.Ready()
	}

	fixtures := forecast.Fixtures()
	report := types.SelfTestReport{Results: make([]types.FixtureResult, 0, len(fixtures))}
	ok := 0
	for _, v := range fixtures {
		res := types.FixtureResult{Input: v.Slice()}
		out, err := s.infer(h, v)
		if err != nil {
			res.Status = types.StatusFailed
			res.Error = err.Error()
			metrics.RecordFixtureRun(metrics.OutcomeFailure)
			s.log().Warn(ctx, "fixture failed", logger.Any("input", res.Input), logger.Error(err))
		} else {
			res.Status = types.StatusSuccess
			res.Prediction = &out
			ok++
			metrics.RecordFixtureRun(metrics.OutcomeSuccess)
		}
		report.Results = append(report.Results, res)
	}
	report.ModelWorking = ok > 0
	report.SuccessRate = fmt.Sprintf("%d/%d", ok, len(fixtures))
	s.log().Info(ctx, "self-test finished", logger.String("success_rate", report.SuccessRate))
	return report, nil
}

// Health never fails.
func (s *Service) Health(_ context.Context) types.HealthStatus {
	return types.HealthStatus{
		Status:      "healthy",
		ModelLoaded: s.ModelLoaded(),
		Timestamp:   s.now().UTC().Format(time.RFC3339Nano),
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	started, startedAt := s.started, s.startedAt
	s.mu.Unlock()

	stats := map[string]interface{}{
		"started":            started,
		"model_loaded":       s.ModelLoaded(),
		"predictions_served": s.served.Load(),
		"predictions_failed": s.failed.Load(),
	}
	if started {
		stats["uptime_seconds"] = s.now().Sub(startedAt).Seconds()
	}
	if h := s.handle(); h != nil {
		stats["model"] = h.Info()
	}
	if err := s.LoadError(); err != nil {
		stats["load_error"] = err.Error()
		stats["load_error_kind"] = string(forecast.KindOf(err))
	}
	return stats
}
