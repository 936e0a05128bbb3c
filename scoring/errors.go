package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrNonFinite is returned when a predictor or attributor produces NaN or Inf
	ErrNonFinite = errors.New("non-finite model output")

	// ErrAttributionWidth is returned when an attributor returns the wrong number of values
	ErrAttributionWidth = errors.New("attribution width does not match column order")
)

// FeatureMismatchError reports a column the PersonProfile cannot supply
type FeatureMismatchError struct {
	Feature string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature %q is not derivable from a person profile", e.Feature)
}

// ArtifactLoadError reports a failure to load one of the trained artifacts.
// It only ever surfaces as a diagnostic at engine construction.
type ArtifactLoadError struct {
	Artifact string // "columns", "model" or "explainer"
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
	}
	return fmt.Sprintf("load %s artifact: %v", e.Artifact, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

// DecisionError wraps every failure returned by Engine.Score and Engine.Explain
type DecisionError struct {
	Op     string
	UserID string
	Err    error
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("%s for user %q failed: %v", e.Op, e.UserID, e.Err)
}

func (e *DecisionError) Unwrap() error {
	return e.Err
}
