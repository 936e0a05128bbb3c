package scoring

import (
	"errors"
	"fmt"
)

// Artifacts are the three externally produced inputs of the trained variant
type Artifacts struct {
	Predictor  Predictor
	Attributor Attributor
	Columns    ColumnOrder
}

// ArtifactLoader produces Artifacts or reports why it could not
type ArtifactLoader interface {
	Load() (*Artifacts, error)
}

// ArtifactLoaderFunc adapts a function to ArtifactLoader
type ArtifactLoaderFunc func() (*Artifacts, error)

func (f ArtifactLoaderFunc) Load() (*Artifacts, error) {
	return f()
}

// PredictorState is either trained or fallback, fixed for the life of an Engine.
// The set is closed: only NewTrainedState and FallbackState build one.
type PredictorState interface {
	Mode() Mode
	score(p PersonProfile) (int, FeatureVector, error)
	explain(v FeatureVector, baseScore int) (factorSummary, error)
}

// NewTrainedState validates loaded artifacts and wraps them
func NewTrainedState(a *Artifacts) (PredictorState, error) {
	switch {
	case a == nil:
		return nil, &ArtifactLoadError{Artifact: "bundle", Err: errors.New("loader returned no artifacts")}
	case a.Predictor == nil:
		return nil, &ArtifactLoadError{Artifact: "model", Err: errors.New("missing predictor")}
	case a.Attributor == nil:
		return nil, &ArtifactLoadError{Artifact: "explainer", Err: errors.New("missing attributor")}
	case len(a.Columns) == 0:
		return nil, &ArtifactLoadError{Artifact: "columns", Err: errors.New("empty column order")}
	}

	columns := make(ColumnOrder, len(a.Columns))
	copy(columns, a.Columns)
	return &trainedState{predictor: a.Predictor, attributor: a.Attributor, columns: columns}, nil
}

// FallbackState returns the rule-based variant
func FallbackState() PredictorState {
	return fallbackState{}
}

// LoadState runs the loader once. On any failure it returns the fallback state
// together with the reason, so callers can log it and carry on.
func LoadState(loader ArtifactLoader) (PredictorState, error) {
	if loader == nil {
		return FallbackState(), &ArtifactLoadError{Artifact: "bundle", Err: errors.New("no artifact loader configured")}
	}

	artifacts, err := loader.Load()
	if err != nil {
		var loadErr *ArtifactLoadError
		if !errors.As(err, &loadErr) {
			err = &ArtifactLoadError{Artifact: "bundle", Err: err}
		}
		return FallbackState(), err
	}

	state, err := NewTrainedState(artifacts)
	if err != nil {
		return FallbackState(), err
	}
	return state, nil
}

type trainedState struct {
	predictor  Predictor
	attributor Attributor
	columns    ColumnOrder
}

func (s *trainedState) Mode() Mode {
	return ModeTrained
}

func (s *trainedState) score(p PersonProfile) (int, FeatureVector, error) {
	vec, err := PrepareFeatures(p, s.columns)
	if err != nil {
		return 0, nil, err
	}

	var raw float64
	err = guard("predict", func() (err error) {
		raw, err = s.predictor.Predict(vec)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	score, err := clipScore(raw)
	if err != nil {
		return 0, nil, err
	}
	return score, vec, nil
}

func (s *trainedState) explain(v FeatureVector, baseScore int) (factorSummary, error) {
	var values []float64
	err := guard("attribute", func() (err error) {
		values, err = s.attributor.Attribute(v)
		return err
	})
	if err != nil {
		return factorSummary{}, err
	}
	return summarizeContributions(s.columns, values, baseScore)
}

type fallbackState struct{}

func (fallbackState) Mode() Mode {
	return ModeFallback
}

func (fallbackState) score(p PersonProfile) (int, FeatureVector, error) {
	return FallbackScore(p.AvgMonthlyTopup), nil, nil
}

func (fallbackState) explain(FeatureVector, int) (factorSummary, error) {
	return factorSummary{
		positives: []string{},
		negatives: []string{},
		narrative: FallbackNarrative,
	}, nil
}

// guard runs an external model call and turns a panic into an error
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
