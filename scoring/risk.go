package scoring

import "github.com/shopspring/decimal"

// Tier thresholds and loan limits of the built-in policy
const (
	LowRiskThreshold    = 750
	MediumRiskThreshold = 600
)

var (
	LowRiskLoanLimit    = decimal.NewFromInt(50000)
	MediumRiskLoanLimit = decimal.NewFromInt(20000)
)

// RiskClassifier maps a score to a risk assessment.
// Implementations must be total over [MinScore, MaxScore] and must not fail.
type RiskClassifier interface {
	Classify(score int) RiskAssessment
}

// RiskClassifierFunc adapts a function to RiskClassifier
type RiskClassifierFunc func(score int) RiskAssessment

func (f RiskClassifierFunc) Classify(score int) RiskAssessment {
	return f(score)
}

// ClassifyRisk is the built-in tiering: >= 750 Low, >= 600 Medium, otherwise High
func ClassifyRisk(score int) RiskAssessment {
	switch {
	case score >= LowRiskThreshold:
		return RiskAssessment{Risk: RiskLow, Approved: true, LoanLimit: LowRiskLoanLimit}
	case score >= MediumRiskThreshold:
		return RiskAssessment{Risk: RiskMedium, Approved: true, LoanLimit: MediumRiskLoanLimit}
	default:
		return RiskAssessment{Risk: RiskHigh, Approved: false, LoanLimit: decimal.Zero}
	}
}
