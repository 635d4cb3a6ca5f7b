// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/internal/domain/types"
	"github.com/corex-retail/sales-forecast/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ready reports ModelUnavailable when no model is loaded.
	Ready() error
	Predict(ctx context.Context, values []any) (float64, error)
	TestPredictions(ctx context.Context) (types.SelfTestReport, error)
	Health(ctx context.Context) types.HealthStatus
}

// Server wires HTTP routes for the forecast API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	predictHandler  *PredictHandler
	selfTestHandler *SelfTestHandler
	metricsHandler  http.Handler

	cors   CORS
	logger logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCORSOrigin sets the Access-Control-Allow-Origin value.
func WithCORSOrigin(origin string) ServerOption {
	return func(s *Server) {
		s.cors.AllowOrigin = origin
	}
}

// WithLogger sets the logger used by middleware.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		predictHandler:  NewPredictHandler(deps),
		selfTestHandler: NewSelfTestHandler(deps),
		metricsHandler:  NewMetricsHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.Handle("/predict", s.wrap(s.predictHandler.HandlePredict, "predict"))
	mux.Handle("/test_prediction", s.wrap(s.selfTestHandler.HandleTestPrediction, "test_prediction"))
	mux.Handle("/health", s.wrap(s.healthHandler.HandleHealth, "health"))
	mux.Handle("/stats", s.wrap(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", s.metricsHandler)
}

// wrap applies the middleware chain shared by every API route.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.Handler {
	return RequestIDMiddleware(
		MetricsMiddleware(
			RecoverMiddleware(s.cors.Wrap(h), s.logger),
			endpoint,
		),
	)
}

type errorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	ModelWorking *bool  `json:"model_working,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if rw, ok := w.(*responseWriter); ok {
		rw.errorType = code
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeKindError translates a domain error into its HTTP status and body.
func writeKindError(w http.ResponseWriter, err error) {
	kind := forecast.KindOf(err)
	writeError(w, statusForKind(kind), string(kind), err)
}

// statusForKind is the single mapping from error kinds to HTTP statuses.
func statusForKind(k forecast.Kind) int {
	switch k {
	case forecast.KindModelUnavailable, forecast.KindArtifactNotFound, forecast.KindDeserializationFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
