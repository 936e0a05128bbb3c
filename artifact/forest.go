package artifact

import (
	"errors"
	"fmt"
	"math"

	randomforest "github.com/malaschitz/randomForest"
	"gonum.org/v1/gonum/floats"

	"github.com/liamcoop/credit/scoring"
)

// ForestModel is a random forest classifier over score bands of BandWidth
// points starting at scoring.MinScore. The prediction is the vote-weighted
// mean of the band centres.
type ForestModel struct {
	BandWidth float64              `json:"band_width"`
	Forest    *randomforest.Forest `json:"forest"`
}

// BandOf returns the class index of score for a band width
func BandOf(score, bandWidth float64) int {
	band := int((score - scoring.MinScore) / bandWidth)
	maxBand := int((scoring.MaxScore - scoring.MinScore) / bandWidth)
	return max(0, min(maxBand, band))
}

// BandCentre returns the score at the middle of band k
func BandCentre(k int, bandWidth float64) float64 {
	return scoring.MinScore + bandWidth*(float64(k)+0.5)
}

func (m *ForestModel) Predict(v scoring.FeatureVector) (float64, error) {
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return 0, errors.New("forest model has no trees")
	}
	if m.Forest.Features != 0 && len(v) != m.Forest.Features {
		return 0, fmt.Errorf("forest expects %d features, got %d", m.Forest.Features, len(v))
	}

	votes := m.Forest.Vote(v)
	total := floats.Sum(votes)
	if total <= 0 {
		return 0, errors.New("forest returned no votes")
	}

	var expected float64
	for k, vote := range votes {
		expected += vote / total * BandCentre(k, m.BandWidth)
	}
	return expected, nil
}

// portable returns a copy of m without training data and with every
// non-finite statistic zeroed. Training leaves NaN in empty branches,
// which a vote never reaches and encoding/json cannot represent.
func (m *ForestModel) portable() *ForestModel {
	forest := *m.Forest
	forest.Data.X = nil
	forest.Data.Class = nil
	forest.FeatureImportance = finiteSlice(forest.FeatureImportance)

	forest.Trees = make([]randomforest.Tree, len(m.Forest.Trees))
	for i, tree := range m.Forest.Trees {
		tree.Validation = finite(tree.Validation)
		tree.Root = finiteBranch(tree.Root)
		forest.Trees[i] = tree
	}
	return &ForestModel{BandWidth: m.BandWidth, Forest: &forest}
}

func finiteBranch(b randomforest.Branch) randomforest.Branch {
	b.Gini = finite(b.Gini)
	b.GiniGain = finite(b.GiniGain)
	b.LeafValue = finiteSlice(b.LeafValue)
	if b.Branch0 != nil {
		child := finiteBranch(*b.Branch0)
		b.Branch0 = &child
	}
	if b.Branch1 != nil {
		child := finiteBranch(*b.Branch1)
		b.Branch1 = &child
	}
	return b
}

func finiteSlice(values []float64) []float64 {
	if values == nil {
		return nil
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = finite(v)
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
