package training

import (
	"errors"
	"fmt"

	randomforest "github.com/malaschitz/randomForest"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/liamcoop/credit/artifact"
	"github.com/liamcoop/credit/scoring"
)

// DefaultBandWidth splits 300..900 into 24 bands for the forest classifier
const DefaultBandWidth = 25

// Options selects the model family
type Options struct {
	Kind      string // artifact.KindLinear or artifact.KindForest
	Trees     int
	BandWidth float64
}

// Report summarises a training run
type Report struct {
	Kind              string
	TrainRows         int
	TestRows          int
	RSquared          float64
	FeatureImportance map[string]float64
}

// FitLinear solves the least squares problem [1 X] c = y by QR factorization
func FitLinear(d *Dataset) (*artifact.LinearModel, error) {
	rows, cols := len(d.X), len(d.Columns)
	if rows <= cols {
		return nil, fmt.Errorf("need more than %d rows to fit %d columns, got %d", cols, cols, rows)
	}

	a := mat.NewDense(rows, cols+1, nil)
	for i, row := range d.X {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}
	b := mat.NewDense(rows, 1, append([]float64(nil), d.Y...))
	c := mat.NewDense(cols+1, 1, nil)

	qr := new(mat.QR)
	qr.Factorize(a)
	if err := qr.SolveTo(c, false, b); err != nil {
		return nil, fmt.Errorf("least squares solve: %w", err)
	}

	weights := make([]float64, cols)
	for j := range weights {
		weights[j] = c.At(j+1, 0)
	}
	return &artifact.LinearModel{Intercept: c.At(0, 0), Weights: weights}, nil
}

// FitForest trains a random forest over score bands of bandWidth points
func FitForest(d *Dataset, trees int, bandWidth float64) (*artifact.ForestModel, error) {
	if len(d.X) == 0 {
		return nil, errors.New("empty dataset")
	}
	if trees <= 0 || bandWidth <= 0 {
		return nil, fmt.Errorf("trees and band width must be positive, got %d and %v", trees, bandWidth)
	}

	classes := make([]int, len(d.Y))
	for i, y := range d.Y {
		classes[i] = artifact.BandOf(y, bandWidth)
	}

	forest := &randomforest.Forest{}
	forest.Data = randomforest.ForestData{X: d.X, Class: classes}
	forest.Train(trees)
	return &artifact.ForestModel{BandWidth: bandWidth, Forest: forest}, nil
}

// RSquared scores p against the held-out rows of d
func RSquared(p scoring.Predictor, d *Dataset) (float64, error) {
	if len(d.X) == 0 {
		return 0, errors.New("empty dataset")
	}
	estimates := make([]float64, len(d.X))
	for i, row := range d.X {
		v, err := p.Predict(row)
		if err != nil {
			return 0, fmt.Errorf("predict row %d: %w", i, err)
		}
		estimates[i] = v
	}
	return stat.RSquaredFrom(estimates, d.Y, nil), nil
}

// Build fits a model on 80% of d, evaluates it on the rest and returns a
// bundle ready for artifact.Save. Linear models get the exact linear
// explainer; forests get occlusion against the column means.
func Build(d *Dataset, opts Options) (artifact.Bundle, *Report, error) {
	train, test := d.Split(0.8)
	baseline := d.Baseline()
	width := len(d.Columns)

	bundle := artifact.Bundle{
		Columns: d.Columns,
		Model:   artifact.ModelDoc{Kind: opts.Kind, NFeatures: width},
		Explainer: artifact.ExplainerDoc{
			NFeatures: width,
			Baseline:  baseline,
		},
	}
	report := &Report{Kind: opts.Kind, TrainRows: len(train.X), TestRows: len(test.X)}

	var model scoring.Predictor
	switch opts.Kind {
	case artifact.KindLinear:
		linear, err := FitLinear(train)
		if err != nil {
			return artifact.Bundle{}, nil, err
		}
		bundle.Model.Linear = linear
		bundle.Explainer.Kind = artifact.ExplainerLinear
		bundle.Explainer.Weights = linear.Weights
		model = linear

	case artifact.KindForest:
		bandWidth := opts.BandWidth
		if bandWidth == 0 {
			bandWidth = DefaultBandWidth
		}
		forest, err := FitForest(train, opts.Trees, bandWidth)
		if err != nil {
			return artifact.Bundle{}, nil, err
		}
		bundle.Model.Forest = forest
		bundle.Explainer.Kind = artifact.ExplainerOcclusion
		model = forest

		if imp := forest.Forest.FeatureImportance; len(imp) == width {
			report.FeatureImportance = make(map[string]float64, width)
			for j, name := range d.Columns {
				report.FeatureImportance[name] = imp[j]
			}
		}

	default:
		return artifact.Bundle{}, nil, fmt.Errorf("%w: model %q", artifact.ErrUnknownKind, opts.Kind)
	}

	r2, err := RSquared(model, test)
	if err != nil {
		return artifact.Bundle{}, nil, err
	}
	report.RSquared = r2
	return bundle, report, nil
}
