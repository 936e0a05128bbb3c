package artifact

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/liamcoop/credit/scoring"
)

// LinearModel predicts intercept + weights·x
type LinearModel struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

func (m *LinearModel) Predict(v scoring.FeatureVector) (float64, error) {
	if len(v) != len(m.Weights) {
		return 0, fmt.Errorf("linear model expects %d features, got %d", len(m.Weights), len(v))
	}
	return m.Intercept + floats.Dot(m.Weights, v), nil
}

// LinearExplainer attributes weight_i * (x_i - baseline_i) to each feature,
// the exact additive attribution of a linear model against a mean baseline.
type LinearExplainer struct {
	Weights  []float64
	Baseline []float64
}

func (e *LinearExplainer) Attribute(v scoring.FeatureVector) ([]float64, error) {
	if len(v) != len(e.Weights) {
		return nil, fmt.Errorf("linear explainer expects %d features, got %d", len(e.Weights), len(v))
	}
	out := make([]float64, len(v))
	floats.SubTo(out, v, e.Baseline)
	floats.Mul(out, e.Weights)
	return out, nil
}
