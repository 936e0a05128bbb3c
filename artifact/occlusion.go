package artifact

import (
	"fmt"

	"github.com/liamcoop/credit/scoring"
)

// OcclusionExplainer attributes to feature i the change in prediction when x_i
// is replaced by its baseline value. It works with any Predictor.
type OcclusionExplainer struct {
	Model    scoring.Predictor
	Baseline []float64
}

func (e *OcclusionExplainer) Attribute(v scoring.FeatureVector) ([]float64, error) {
	if len(v) != len(e.Baseline) {
		return nil, fmt.Errorf("occlusion explainer expects %d features, got %d", len(e.Baseline), len(v))
	}

	full, err := e.Model.Predict(v)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(v))
	probe := make(scoring.FeatureVector, len(v))
	for i := range v {
		copy(probe, v)
		probe[i] = e.Baseline[i]
		without, err := e.Model.Predict(probe)
		if err != nil {
			return nil, err
		}
		out[i] = full - without
	}
	return out, nil
}
