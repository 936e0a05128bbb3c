package scoring

import (
	"log/slog"
	"strings"
)

// Engine scores and explains person profiles against a PredictorState fixed at
// construction. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	state  PredictorState
	risk   RiskClassifier
	logger *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for construction diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(en *Engine) {
		if l != nil {
			en.logger = l
		}
	}
}

// WithRiskClassifier replaces the built-in tiering
func WithRiskClassifier(rc RiskClassifier) Option {
	return func(en *Engine) {
		if rc != nil {
			en.risk = rc
		}
	}
}

// NewEngine loads artifacts once and fixes the predictor state for the
// lifetime of the engine. A failed load is logged as a warning and the
// engine permanently uses the fallback rule.
func NewEngine(loader ArtifactLoader, opts ...Option) *Engine {
	en := newEngine(opts)

	state, err := LoadState(loader)
	if err != nil {
		en.logger.Warn("could not load trained artifacts, using rule-based fallback",
			"error", err)
	}
	en.state = state
	en.logStartup()
	return en
}

// NewEngineWithState builds an engine around an existing state
func NewEngineWithState(state PredictorState, opts ...Option) *Engine {
	en := newEngine(opts)
	if state == nil {
		state = FallbackState()
	}
	en.state = state
	en.logStartup()
	return en
}

func newEngine(opts []Option) *Engine {
	en := &Engine{
		risk:   RiskClassifierFunc(ClassifyRisk),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(en)
	}
	return en
}

func (en *Engine) logStartup() {
	ts, ok := en.state.(*trainedState)
	if !ok {
		en.logger.Info("scoring engine ready", "mode", ModeFallback)
		return
	}

	var unknown []string
	for _, name := range ts.columns {
		if !IsKnownFeature(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		en.logger.Warn("column order names features a profile cannot supply; every decision will fail",
			"columns", strings.Join(unknown, ","))
	}
	en.logger.Info("scoring engine ready", "mode", ModeTrained, "columns", len(ts.columns))
}

// Mode reports which predictor variant the engine is using
func (en *Engine) Mode() Mode {
	return en.state.Mode()
}

// Score computes the credit score of p and classifies it
func (en *Engine) Score(p PersonProfile) (*ScoreDecision, error) {
	score, _, err := en.state.score(p)
	if err != nil {
		return nil, &DecisionError{Op: "score", UserID: p.UserID, Err: err}
	}
	return en.decide(p.UserID, score), nil
}

// Explain recomputes the score of p and reports the features that drove it
func (en *Engine) Explain(p PersonProfile) (*Explanation, error) {
	score, vec, err := en.state.score(p)
	if err != nil {
		return nil, &DecisionError{Op: "explain", UserID: p.UserID, Err: err}
	}

	summary, err := en.state.explain(vec, score)
	if err != nil {
		return nil, &DecisionError{Op: "explain", UserID: p.UserID, Err: err}
	}

	return &Explanation{
		UserID:          p.UserID,
		BaseScore:       score,
		PositiveFactors: summary.positives,
		NegativeFactors: summary.negatives,
		Narrative:       summary.narrative,
		Mode:            en.state.Mode(),
	}, nil
}

func (en *Engine) decide(userID string, score int) *ScoreDecision {
	assessment := en.risk.Classify(score)
	return &ScoreDecision{
		UserID:        userID,
		CreditScore:   score,
		RiskLevel:     assessment.Risk,
		Approved:      assessment.Approved,
		MaxLoanAmount: assessment.LoanLimit,
		Mode:          en.state.Mode(),
	}
}
