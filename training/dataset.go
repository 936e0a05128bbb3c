// Package training builds model bundles from a synthetic population of
// mobile-money users.
package training

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/liamcoop/credit/scoring"
)

// Dataset is a design matrix in scoring.DefaultColumnOrder with its target scores
type Dataset struct {
	Columns scoring.ColumnOrder
	X       [][]float64
	Y       []float64
}

var referralChoices = []float64{0, 0, 0, 1, 2, 3, 5}

// Synthesize draws n users from fixed distributions and scores them with a
// noisy repayment-probability rule. The same seed gives the same dataset.
func Synthesize(n int, seed uint64) *Dataset {
	src := rand.NewPCG(seed, seed^0x5bd1e995)
	rng := rand.New(src)

	balance := distuv.Exponential{Rate: 1.0 / 5000, Src: src}
	topup := distuv.Normal{Mu: 500, Sigma: 200, Src: src}
	txCount := distuv.Poisson{Lambda: 30, Src: src}
	smartPhone := distuv.Bernoulli{P: 0.7, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: 0.05, Src: src}

	d := &Dataset{
		Columns: append(scoring.ColumnOrder(nil), scoring.DefaultColumnOrder...),
		X:       make([][]float64, 0, n),
		Y:       make([]float64, 0, n),
	}
	for range n {
		row := []float64{
			balance.Rand(),
			topup.Rand(),
			txCount.Rand(),
			referralChoices[rng.IntN(len(referralChoices))],
			smartPhone.Rand(),
			float64(18 + rng.IntN(47)),
		}
		d.X = append(d.X, row)
		d.Y = append(d.Y, targetScore(row, noise.Rand()))
	}
	return d
}

// targetScore expects a row in scoring.DefaultColumnOrder
func targetScore(row []float64, noise float64) float64 {
	prob := 0.3*clip01(row[0]/10000) +
		0.2*clip01(row[1]/1000) +
		0.3*clip01(row[3]/5) +
		0.1*clip01(row[2]/100) +
		0.1*row[4] +
		noise
	score := prob*600 + scoring.MinScore
	return math.Floor(math.Max(scoring.MinScore, math.Min(scoring.MaxScore, score)))
}

func clip01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Baseline returns the per-column mean, the reference point for attributions
func (d *Dataset) Baseline() []float64 {
	out := make([]float64, len(d.Columns))
	col := make([]float64, len(d.X))
	for j := range d.Columns {
		for i, row := range d.X {
			col[i] = row[j]
		}
		out[j] = stat.Mean(col, nil)
	}
	return out
}

// Split returns the first frac of rows and the rest
func (d *Dataset) Split(frac float64) (*Dataset, *Dataset) {
	cut := int(float64(len(d.X)) * frac)
	cut = max(0, min(len(d.X), cut))
	head := &Dataset{Columns: d.Columns, X: d.X[:cut], Y: d.Y[:cut]}
	tail := &Dataset{Columns: d.Columns, X: d.X[cut:], Y: d.Y[cut:]}
	return head, tail
}
