package scoring

import (
	"fmt"
	"math"
)

// Predictor is a trained model producing a raw score for a feature vector
type Predictor interface {
	Predict(v FeatureVector) (float64, error)
}

// Attributor returns one signed contribution per column for a feature vector
type Attributor interface {
	Attribute(v FeatureVector) ([]float64, error)
}

// PredictorFunc adapts a function to Predictor
type PredictorFunc func(v FeatureVector) (float64, error)

func (f PredictorFunc) Predict(v FeatureVector) (float64, error) {
	return f(v)
}

// AttributorFunc adapts a function to Attributor
type AttributorFunc func(v FeatureVector) ([]float64, error)

func (f AttributorFunc) Attribute(v FeatureVector) ([]float64, error) {
	return f(v)
}

// FallbackScore is the rule used when no trained predictor could be loaded.
// 300 plus half the monthly top-up, with the top-up contribution capped at 300.
func FallbackScore(avgMonthlyTopup float64) int {
	score := MinScore + math.Min(avgMonthlyTopup*0.5, 300)
	if math.IsNaN(score) || score < MinScore {
		return MinScore
	}
	return min(MaxScore, int(math.Floor(score)))
}

// clipScore bounds a raw model output and truncates it
func clipScore(raw float64) (int, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("predictor returned %v: %w", raw, ErrNonFinite)
	}
	return int(math.Max(MinScore, math.Min(MaxScore, raw))), nil
}
