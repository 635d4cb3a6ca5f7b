package api

import (
	"net/http"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
)

// SelfTestHandler runs the built-in fixtures against the loaded model.
type SelfTestHandler struct {
	deps Dependencies
}

// NewSelfTestHandler creates a new self-test handler.
func NewSelfTestHandler(deps Dependencies) *SelfTestHandler {
	return &SelfTestHandler{deps: deps}
}

// HandleTestPrediction handles GET /test_prediction requests.
func (h *SelfTestHandler) HandleTestPrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	report, err := h.deps.TestPredictions(r.Context())
	if err != nil {
		kind := forecast.KindOf(err)
		if rw, ok := w.(*responseWriter); ok {
			rw.errorType = string(kind)
		}
		working := false
		writeJSON(w, statusForKind(kind), errorResponse{
			Error:        err.Error(),
			Code:         string(kind),
			ModelWorking: &working,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
