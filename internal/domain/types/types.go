// Package types contains response shapes shared by the service and HTTP layers.
package types

// Fixture status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// FixtureResult is the outcome of one self-test fixture.
type FixtureResult struct {
	Input      []float64 `json:"input"`
	Prediction *float64  `json:"prediction,omitempty"`
	Error      string    `json:"error,omitempty"`
	Status     string    `json:"status"`
}

// SelfTestReport is returned by GET /test_prediction.
type SelfTestReport struct {
	Results      []FixtureResult `json:"test_results"`
	ModelWorking bool            `json:"model_working"`
	SuccessRate  string          `json:"success_rate"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Timestamp   string `json:"timestamp"`
}

// PredictionResponse is returned by POST /predict.
type PredictionResponse struct {
	Prediction []float64 `json:"prediction"`
}
