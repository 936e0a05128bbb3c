package scoring

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackNarrative is the explanation given when no trained model is loaded
const FallbackNarrative = "Score generated using rule-based fallback logic."

// MaxFactors is the number of top contributors reported in an explanation
const MaxFactors = 3

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ")

// FeatureLabel turns a column name into a display label, e.g.
// "transaction_count_last_90_days" -> "Transaction Count Last 90 Days"
func FeatureLabel(name string) string {
	// Casers keep state between calls and must not be shared across goroutines
	return cases.Title(language.Und).String(separatorReplacer.Replace(name))
}

// RankContributions orders column indices by descending absolute contribution.
// Equal magnitudes keep ascending column order.
func RankContributions(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		if c := cmp.Compare(math.Abs(values[b]), math.Abs(values[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return idx
}

// factorSummary is the ranked, labelled part of an Explanation
type factorSummary struct {
	positives []string
	negatives []string
	narrative string
}

func summarizeContributions(columns ColumnOrder, values []float64, baseScore int) (factorSummary, error) {
	if len(values) != len(columns) {
		return factorSummary{}, fmt.Errorf("got %d values for %d columns: %w", len(values), len(columns), ErrAttributionWidth)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return factorSummary{}, fmt.Errorf("attribution for %s is %v: %w", columns[i], v, ErrNonFinite)
		}
	}

	summary := factorSummary{positives: []string{}, negatives: []string{}}
	if len(columns) == 0 {
		return summary, nil
	}

	ranked := RankContributions(values)
	for _, i := range ranked[:min(MaxFactors, len(ranked))] {
		label := FeatureLabel(columns[i])
		points := formatPoints(values[i])
		if values[i] > 0 {
			summary.positives = append(summary.positives,
				fmt.Sprintf("High %s impacted score positively (+%s pts)", label, points))
		} else {
			summary.negatives = append(summary.negatives,
				fmt.Sprintf("Low/Negative %s impacted score negatively (%s pts)", label, points))
		}
	}

	summary.narrative = fmt.Sprintf("Based on the model analysis, the Credit Score of %d is primarily driven by %s.",
		baseScore, separatorReplacer.Replace(columns[ranked[0]]))
	return summary, nil
}

// formatPoints truncates v toward zero without going through a fixed-width int
func formatPoints(v float64) string {
	t := math.Trunc(v)
	if t == 0 {
		t = 0
	}
	return strconv.FormatFloat(t, 'f', 0, 64)
}
