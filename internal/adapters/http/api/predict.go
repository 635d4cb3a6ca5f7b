package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/internal/domain/types"
)

// maxPredictBody bounds the request body of POST /predict.
const maxPredictBody = 64 << 10

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// predictRequest keeps features raw so a non-array value can be reported as
// a feature count problem rather than a malformed body.
type predictRequest struct {
	Features json.RawMessage `json:"features"`
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	// Availability is reported before anything about the request body.
	if err := h.deps.Ready(); err != nil {
		writeKindError(w, err)
		return
	}

	values, err := decodeFeatures(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err != nil {
		writeKindError(w, err)
		return
	}

	pred, err := h.deps.Predict(r.Context(), values)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PredictionResponse{Prediction: []float64{pred}})
}

// decodeFeatures extracts the features list from a JSON body. A missing or
// null features key yields nil so that count validation reports it.
func decodeFeatures(body io.Reader) ([]any, error) {
	const op = "api.decodeFeatures"

	var req predictRequest
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, forecast.NewError(op, forecast.KindInvalidRequest, "Request body must be a JSON object")
		}
		return nil, forecast.WrapError(op, forecast.KindInvalidRequest, "Invalid JSON body", err)
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, forecast.NewError(op, forecast.KindInvalidRequest, "Invalid JSON body: unexpected data after JSON object")
	}

	raw := bytes.TrimSpace(req.Features)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var values []any
	fdec := json.NewDecoder(bytes.NewReader(raw))
	fdec.UseNumber()
	if err := fdec.Decode(&values); err != nil {
		return nil, forecast.NewError(op, forecast.KindInvalidFeatureCount,
			fmt.Sprintf("features must be a list of %d values", forecast.FeatureCount))
	}
	return values, nil
}
