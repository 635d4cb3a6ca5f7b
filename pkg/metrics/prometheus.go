// Package metrics provides Prometheus metrics for the sales forecast service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Default histogram buckets. HTTP and inference latencies are in milliseconds.
var (
	defaultHTTPBuckets      = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}
	defaultInferenceBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}
	defaultValueBuckets     = prometheus.ExponentialBuckets(1, 4, 12)
)

// Manager manages all Prometheus metrics for the forecast service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	inferenceBuckets []float64
	valueBuckets     []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Inference Metrics
	predictions       *prometheus.CounterVec
	predictionValue   prometheus.Histogram
	inferenceLatency  prometheus.Histogram
	fixtureRuns       *prometheus.CounterVec
	modelLoaded       prometheus.Gauge
	modelLoadDuration prometheus.Gauge
	modelTrees        prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "forecast",
		subsystem:        "sales",
		histogramBuckets: defaultHTTPBuckets,
		inferenceBuckets: defaultInferenceBuckets,
		valueBuckets:     defaultValueBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("predictions_total"),
		Help:        "Total number of /predict calls by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.predictionValue = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_value"),
		Help:        "Distribution of clamped predicted sales values",
		Buckets:     m.valueBuckets,
		ConstLabels: labels,
	})

	m.inferenceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("inference_latency_milliseconds"),
		Help:        "Time spent inside the predictor per call",
		Buckets:     m.inferenceBuckets,
		ConstLabels: labels,
	})

	m.fixtureRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fixture_runs_total"),
		Help:        "Self-test fixture executions by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.modelLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_loaded"),
		Help:        "1 when a usable model is loaded, 0 otherwise",
		ConstLabels: labels,
	})

	m.modelLoadDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_load_duration_milliseconds"),
		Help:        "Duration of the startup model load including the smoke prediction",
		ConstLabels: labels,
	})

	m.modelTrees = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_trees"),
		Help:        "Number of trees in the loaded ensemble",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by kind and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and kind",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_bytes"),
		Help:        "Heap bytes allocated",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutines"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordPrediction records the outcome of a prediction request. The value is
// only observed on success.
func (m *Manager) RecordPrediction(outcome string, value float64) {
	if !m.enabled {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.predictionValue.Observe(value)
	}
}

// RecordInferenceLatency records time spent in the predictor.
func (m *Manager) RecordInferenceLatency(latencyMs float64) {
	if !m.enabled {
		return
	}
	m.inferenceLatency.Observe(latencyMs)
}

// RecordFixtureRun records one self-test fixture execution.
func (m *Manager) RecordFixtureRun(outcome string) {
	if !m.enabled {
		return
	}
	m.fixtureRuns.WithLabelValues(outcome).Inc()
}

// SetModelLoaded records the model state after startup.
func (m *Manager) SetModelLoaded(loaded bool, trees int, loadMs float64) {
	if !m.enabled {
		return
	}
	if loaded {
		m.modelLoaded.Set(1)
	} else {
		m.modelLoaded.Set(0)
	}
	m.modelTrees.Set(float64(trees))
	m.modelLoadDuration.Set(loadMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError records an error against its endpoint and kind.
func (m *Manager) RecordError(endpoint, method, errorType, severity string) {
	if !m.enabled {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystem records memory, goroutine and GC figures.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, gcPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if gcPauseMs > 0 {
		m.systemGCPauseTime.Observe(gcPauseMs)
	}
}

// Package-level helpers delegate to the global manager.

// RecordPrediction records a prediction outcome on the global manager.
func RecordPrediction(outcome string, value float64) { globalManager.RecordPrediction(outcome, value) }

// RecordInferenceLatency records predictor latency on the global manager.
func RecordInferenceLatency(latencyMs float64) { globalManager.RecordInferenceLatency(latencyMs) }

// RecordFixtureRun records a fixture outcome on the global manager.
func RecordFixtureRun(outcome string) { globalManager.RecordFixtureRun(outcome) }

// SetModelLoaded records the model state on the global manager.
func SetModelLoaded(loaded bool, trees int, loadMs float64) {
	globalManager.SetModelLoaded(loaded, trees, loadMs)
}

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordError records an error on the global manager.
func RecordError(endpoint, method, errorType, severity string) {
	globalManager.RecordError(endpoint, method, errorType, severity)
}

// UpdateSystem records process figures on the global manager.
func UpdateSystem(memBytes uint64, goroutines int, gcPauseMs float64) {
	globalManager.UpdateSystem(memBytes, goroutines, gcPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
