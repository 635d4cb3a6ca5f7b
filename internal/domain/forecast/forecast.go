// Package forecast contains the domain types shared by the model loader,
// the prediction service and the HTTP layer.
package forecast

import (
	"fmt"
	"math"
)

// FeatureCount is the fixed length of every feature vector accepted by the model.
const FeatureCount = 5

// FeatureVector is an ordered set of model inputs. Position is significant:
//
//	0 month
//	1 monetary/volume figure
//	2 category or store index
//	3 binary flag
//	4 day-of-week index
type FeatureVector [FeatureCount]float64

// Slice returns the vector as a freshly allocated slice, the shape inference
// libraries expect.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// SmokeVector is run once by the loader to confirm an artifact is usable.
var SmokeVector = FeatureVector{12, 50000, 1, 0, 6}

var fixtures = [...]FeatureVector{
	{12, 50000, 1, 0, 6},
	{16, 100000, 5, 1, 6},
	{19, 150000, 2, 0, 6},
}

// Fixtures returns the self-test inputs in their fixed order.
func Fixtures() []FeatureVector {
	out := make([]FeatureVector, len(fixtures))
	copy(out, fixtures[:])
	return out
}

// Clamp converts a raw model output into a sales figure. Sales cannot be
// negative, so negative outputs become zero. Non-finite outputs are rejected
// because they cannot be represented in a JSON response.
func Clamp(raw float64) (float64, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("model returned non-finite value %v", raw)
	}
	return math.Max(0, raw), nil
}
