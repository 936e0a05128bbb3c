// Package artifact reads and writes the trained model bundle: the column order,
// the score model and the explainer, each as a versioned JSON document in one
// directory.
package artifact

import (
	"errors"

	"github.com/liamcoop/credit/scoring"
)

// FormatVersion is the only document version this package reads and writes
const FormatVersion = 1

const (
	ColumnsFile   = "columns.json"
	ModelFile     = "model.json"
	ExplainerFile = "explainer.json"
)

// Model kinds
const (
	KindLinear = "linear"
	KindForest = "forest"
)

// Explainer kinds
const (
	ExplainerLinear    = "linear"
	ExplainerOcclusion = "occlusion"
)

var (
	// ErrVersionMismatch is returned for documents written by another format version
	ErrVersionMismatch = errors.New("unsupported artifact format version")

	// ErrUnknownKind is returned for a model or explainer kind this package cannot build
	ErrUnknownKind = errors.New("unknown artifact kind")
)

// ColumnsDoc is the on-disk form of the column order
type ColumnsDoc struct {
	FormatVersion int                 `json:"format_version"`
	Columns       scoring.ColumnOrder `json:"columns"`
}

// ModelDoc is the on-disk form of the score model. Exactly one of Linear and
// Forest is set, matching Kind.
type ModelDoc struct {
	FormatVersion int          `json:"format_version"`
	Kind          string       `json:"kind"`
	NFeatures     int          `json:"n_features"`
	Linear        *LinearModel `json:"linear,omitempty"`
	Forest        *ForestModel `json:"forest,omitempty"`
}

// ExplainerDoc is the on-disk form of the attributor.
// Weights is only used by the linear kind.
type ExplainerDoc struct {
	FormatVersion int       `json:"format_version"`
	Kind          string    `json:"kind"`
	NFeatures     int       `json:"n_features"`
	Baseline      []float64 `json:"baseline"`
	Weights       []float64 `json:"weights,omitempty"`
}

// Bundle is everything Save writes
type Bundle struct {
	Columns   scoring.ColumnOrder
	Model     ModelDoc
	Explainer ExplainerDoc
}
