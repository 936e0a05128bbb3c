package scoring

import "github.com/shopspring/decimal"

// Score bounds shared by every predictor variant
const (
	MinScore = 300
	MaxScore = 900
)

// PersonProfile is the raw input for a decision.
// Only six fields feed a model; the rest identify the person.
type PersonProfile struct {
	UserID                  string
	Name                    string
	Age                     int
	Location                string
	WalletBalance           float64
	AvgMonthlyTopup         float64
	AvgTransactionValue     float64
	TransactionCount90d     int
	HasSmartPhone           bool
	CommunityTrustReferrals int
}

// ColumnOrder is the ordered list of feature names a predictor was fit against
type ColumnOrder []string

// FeatureVector holds one value per column of the ColumnOrder it was prepared for
type FeatureVector []float64

// RiskTier is one of Low, Medium or High
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// Valid reports whether t is one of the three known tiers
func (t RiskTier) Valid() bool {
	switch t {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Mode identifies which predictor variant produced a result
type Mode string

const (
	ModeTrained  Mode = "trained"
	ModeFallback Mode = "fallback"
)

// RiskAssessment is the outcome of classifying a score
type RiskAssessment struct {
	Risk      RiskTier
	Approved  bool
	LoanLimit decimal.Decimal
}

// ScoreDecision is returned by Engine.Score
type ScoreDecision struct {
	UserID        string
	CreditScore   int
	RiskLevel     RiskTier
	Approved      bool
	MaxLoanAmount decimal.Decimal
	Mode          Mode
}

// Explanation is returned by Engine.Explain.
// PositiveFactors and NegativeFactors together never hold more than three entries.
type Explanation struct {
	UserID          string
	BaseScore       int
	PositiveFactors []string
	NegativeFactors []string
	Narrative       string
	Mode            Mode
}
