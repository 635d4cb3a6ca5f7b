package predictor

import (
	"fmt"
	"os"

	"github.com/dmitryikh/leaves"
)

// leavesModel adapts a LightGBM or XGBoost ensemble decoded by leaves.
// Raw scores are returned; regression objectives need no transformation.
type leavesModel struct {
	ensemble *leaves.Ensemble
}

func loadLightGBM(path string) (*leavesModel, error) {
	e, err := leaves.LGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnsemble, err)
	}
	return &leavesModel{ensemble: e}, nil
}

func loadLightGBMJSON(path string) (*leavesModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	e, err := leaves.LGEnsembleFromJSON(f, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnsemble, err)
	}
	return &leavesModel{ensemble: e}, nil
}

func loadXGBoost(path string) (*leavesModel, error) {
	e, err := leaves.XGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnsemble, err)
	}
	return &leavesModel{ensemble: e}, nil
}

func (m *leavesModel) Predict(features []float64) (float64, error) {
	if len(features) != m.ensemble.NFeatures() {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrFeatureCount, m.ensemble.NFeatures(), len(features))
	}
	out := make([]float64, m.ensemble.NOutputGroups())
	if len(out) == 0 {
		return 0, fmt.Errorf("%w: ensemble has no output groups", ErrInvalidEnsemble)
	}
	if err := m.ensemble.Predict(features, 0, out); err != nil {
		return 0, err
	}
	return out[0], nil
}

func (m *leavesModel) NFeatures() int { return m.ensemble.NFeatures() }

func (m *leavesModel) NTrees() int { return m.ensemble.NEstimators() }
