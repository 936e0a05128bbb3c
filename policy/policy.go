package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"github.com/liamcoop/credit/scoring"
)

// Tier is one ordered rule of a risk policy.
// Expression is a CEL boolean over the integer variable `score`.
type Tier struct {
	Name       scoring.RiskTier
	Expression string
	Approved   bool
	LoanLimit  decimal.Decimal
}

// DefaultTiers reproduces the built-in scoring.ClassifyRisk table
func DefaultTiers() []Tier {
	return []Tier{
		{Name: scoring.RiskLow, Expression: "score >= 750", Approved: true, LoanLimit: scoring.LowRiskLoanLimit},
		{Name: scoring.RiskMedium, Expression: "score >= 600", Approved: true, LoanLimit: scoring.MediumRiskLoanLimit},
		{Name: scoring.RiskHigh, Expression: "true", Approved: false, LoanLimit: decimal.Zero},
	}
}

// Policy is a compiled risk policy. Tiers are evaluated once per possible score
// at construction, so Classify is a lookup that cannot fail.
type Policy struct {
	tiers []Tier
	table []scoring.RiskAssessment // index: score - scoring.MinScore
}

// New compiles tiers and checks that they cover every score in range
func New(tiers []Tier) (*Policy, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("policy must contain at least one tier")
	}

	env, err := cel.NewEnv(cel.Variable("score", cel.IntType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs := make([]cel.Program, len(tiers))
	for i, tier := range tiers {
		if err := validateTier(tier); err != nil {
			return nil, fmt.Errorf("tier %d: %w", i, err)
		}
		prog, err := compileTier(env, tier.Expression)
		if err != nil {
			return nil, fmt.Errorf("tier %d (%s): %w", i, tier.Name, err)
		}
		programs[i] = prog
	}

	table := make([]scoring.RiskAssessment, scoring.MaxScore-scoring.MinScore+1)
	for score := scoring.MinScore; score <= scoring.MaxScore; score++ {
		idx, err := firstMatch(programs, score)
		if err != nil {
			return nil, err
		}
		t := tiers[idx]
		table[score-scoring.MinScore] = scoring.RiskAssessment{
			Risk:      t.Name,
			Approved:  t.Approved,
			LoanLimit: t.LoanLimit,
		}
	}

	stored := make([]Tier, len(tiers))
	copy(stored, tiers)
	return &Policy{tiers: stored, table: table}, nil
}

// Default returns the compiled built-in policy
func Default() *Policy {
	p, err := New(DefaultTiers())
	if err != nil {
		panic(fmt.Sprintf("default risk policy does not compile: %v", err))
	}
	return p
}

// Classify returns the assessment of the first tier matching score.
// Scores outside [MinScore, MaxScore] are held to the nearest bound.
func (p *Policy) Classify(score int) scoring.RiskAssessment {
	score = max(scoring.MinScore, min(scoring.MaxScore, score))
	return p.table[score-scoring.MinScore]
}

// Tiers returns a copy of the policy's tiers
func (p *Policy) Tiers() []Tier {
	out := make([]Tier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

func validateTier(t Tier) error {
	if !t.Name.Valid() {
		return fmt.Errorf("unknown risk tier %q (must be one of Low, Medium, High)", t.Name)
	}
	if t.Expression == "" {
		return fmt.Errorf("tier %s has an empty expression", t.Name)
	}
	if t.LoanLimit.IsNegative() {
		return fmt.Errorf("tier %s has a negative loan limit %s", t.Name, t.LoanLimit)
	}
	if !t.Approved && !t.LoanLimit.IsZero() {
		return fmt.Errorf("tier %s is not approved but has loan limit %s", t.Name, t.LoanLimit)
	}
	return nil
}

func compileTier(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q must evaluate to bool, got %s", expression, ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

func firstMatch(programs []cel.Program, score int) (int, error) {
	vars := map[string]any{"score": int64(score)}
	for i, prog := range programs {
		out, _, err := prog.Eval(vars)
		if err != nil {
			return 0, fmt.Errorf("tier %d failed for score %d: %w", i, score, err)
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no tier matches score %d; the last tier should match every score", score)
}
