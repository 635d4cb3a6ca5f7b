// Package probe exercises a running forecast service over HTTP: liveness,
// the fixture self-test, concurrent identical predictions and input
// rejection.
package probe

import (
	"errors"
	"time"

	"github.com/corex-retail/sales-forecast/internal/domain/types"
)

// Defaults used when Config fields are zero.
const (
	DefaultBaseURL  = "http://localhost:5000"
	DefaultRequests = 200
	DefaultWorkers  = 8
	DefaultTimeout  = 10 * time.Second
)

// Sentinel kinds for probe failures.
var (
	ErrUnhealthy      = errors.New("service unhealthy")
	ErrModelNotLoaded = errors.New("service reports no model loaded")
	ErrVerification   = errors.New("probe verification failed")
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Requests int           // Number of /predict calls
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Features []float64     // Vector sent on every /predict call
	Verbose  bool          // Log every response
}

func (c *Config) normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Requests <= 0 {
		c.Requests = DefaultRequests
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// RejectionCheck is the outcome of one deliberately invalid request.
type RejectionCheck struct {
	Name       string `json:"name"`
	WantStatus int    `json:"want_status"`
	WantCode   string `json:"want_code"`
	Status     int    `json:"status"`
	Code       string `json:"code"`
	Passed     bool   `json:"passed"`
}

// Report holds probe results.
type Report struct {
	Health     types.HealthStatus    `json:"health"`
	SelfTest   *types.SelfTestReport `json:"self_test,omitempty"`
	Requests   int                   `json:"requests"`
	Successful int                   `json:"successful"`
	Failed     int                   `json:"failed"`
	// Predictions maps each distinct returned value to its count. A
	// deterministic model yields exactly one key.
	Predictions map[float64]int  `json:"-"`
	Rejections  []RejectionCheck `json:"rejections"`
	StartTime   time.Time        `json:"start_time"`
	Duration    time.Duration    `json:"duration"`
}

// Distinct returns the number of distinct prediction values observed.
func (r *Report) Distinct() int { return len(r.Predictions) }
