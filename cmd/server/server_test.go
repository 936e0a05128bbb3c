package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/credit/artifact"
	"github.com/liamcoop/credit/audit"
	"github.com/liamcoop/credit/internal/logger"
	"github.com/liamcoop/credit/scoring"
)

func userPayload() map[string]any {
	return map[string]any{
		"user_id":                        "user-42",
		"name":                           "Amina",
		"age":                            34,
		"location":                       "Kisumu",
		"wallet_balance":                 4200.0,
		"avg_monthly_topup":              1000.0,
		"avg_transaction_val":            35.5,
		"transaction_count_last_90_days": 42,
		"has_smart_phone":                false,
		"community_trust_referrals":      0,
	}
}

func fallbackServer(t *testing.T, opts Options) *Server {
	t.Helper()
	return NewServer(scoring.NewEngineWithState(scoring.FallbackState()), opts)
}

func trainedServer(t *testing.T, opts Options) *Server {
	t.Helper()
	state, err := scoring.NewTrainedState(&scoring.Artifacts{
		Predictor:  &artifact.LinearModel{Intercept: 400, Weights: []float64{0.01, 0.2}},
		Attributor: &artifact.LinearExplainer{Weights: []float64{0.01, 0.2}, Baseline: []float64{1000, 500}},
		Columns:    scoring.ColumnOrder{scoring.FeatureWalletBalance, scoring.FeatureAvgMonthlyTopup},
	})
	require.NoError(t, err)
	return NewServer(scoring.NewEngineWithState(state), opts)
}

func failingServer(t *testing.T) *Server {
	t.Helper()
	state, err := scoring.NewTrainedState(&scoring.Artifacts{
		Predictor: scoring.PredictorFunc(func(scoring.FeatureVector) (float64, error) {
			return 0, errors.New("model exploded")
		}),
		Attributor: scoring.AttributorFunc(func(v scoring.FeatureVector) ([]float64, error) {
			return make([]float64, len(v)), nil
		}),
		Columns: scoring.DefaultColumnOrder,
	})
	require.NoError(t, err)
	return NewServer(scoring.NewEngineWithState(state), Options{})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// TestRootAndHealth verifies the banner and health endpoints
func TestRootAndHealth(t *testing.T) {
	s := fallbackServer(t, Options{})

	rec := doJSON(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["message"], "running")

	rec = doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)

	rec = doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", decode[HealthResponse](t, rec).Status)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// TestReadiness verifies the engine mode is reported and the database is checked
func TestReadiness(t *testing.T) {
	rec := doJSON(t, fallbackServer(t, Options{}), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "fallback", resp.Mode)
	assert.NotContains(t, resp.Checks, "postgres")

	rec = doJSON(t, trainedServer(t, Options{DB: fakePinger{}}), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[HealthResponse](t, rec)
	assert.Equal(t, "trained", resp.Mode)
	assert.Equal(t, "UP", resp.Checks["postgres"])

	rec = doJSON(t, fallbackServer(t, Options{DB: fakePinger{err: errors.New("connection refused")}}), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DOWN", decode[HealthResponse](t, rec).Status)
}

// TestScoreFallback verifies the rule-based score over HTTP
func TestScoreFallback(t *testing.T) {
	s := fallbackServer(t, Options{})

	rec := doJSON(t, s, http.MethodPost, "/score", userPayload())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[CreditScoreResponse](t, rec)
	assert.Equal(t, CreditScoreResponse{
		UserID:         "user-42",
		CreditScore:    600,
		RiskLevel:      "Medium",
		ApprovalStatus: true,
		MaxLoanAmount:  20000,
	}, resp)
	assert.NotEmpty(t, rec.Header().Get(decisionIDHeader))
}

// TestScoreTrained verifies a trained engine drives the response
func TestScoreTrained(t *testing.T) {
	rec := doJSON(t, trainedServer(t, Options{}), http.MethodPost, "/score", userPayload())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[CreditScoreResponse](t, rec)
	assert.Equal(t, 642, resp.CreditScore)
	assert.Equal(t, "Medium", resp.RiskLevel)
}

// TestExplainFallback verifies the fixed narrative and empty factor arrays
func TestExplainFallback(t *testing.T) {
	rec := doJSON(t, fallbackServer(t, Options{}), http.MethodPost, "/explain", userPayload())
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{
		"user_id": "user-42",
		"base_score": 600,
		"top_positive_factors": [],
		"top_negative_factors": [],
		"narrative_explanation": "Score generated using rule-based fallback logic."
	}`, rec.Body.String())
}

// TestExplainTrained verifies ranked factors and narrative from the linear explainer
func TestExplainTrained(t *testing.T) {
	rec := doJSON(t, trainedServer(t, Options{}), http.MethodPost, "/explain", userPayload())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ExplanationResponse](t, rec)
	assert.Equal(t, 642, resp.BaseScore)
	assert.Equal(t, []string{
		"High Avg Monthly Topup impacted score positively (+100 pts)",
		"High Wallet Balance impacted score positively (+32 pts)",
	}, resp.TopPositiveFactors)
	assert.Empty(t, resp.TopNegativeFactors)
	assert.Equal(t, "Based on the model analysis, the Credit Score of 642 is primarily driven by avg monthly topup.",
		resp.NarrativeExplanation)
}

// TestScoreValidation verifies malformed and incomplete bodies are rejected with 400
func TestScoreValidation(t *testing.T) {
	s := fallbackServer(t, Options{})

	missing := userPayload()
	delete(missing, "wallet_balance")
	delete(missing, "has_smart_phone")

	wrongType := userPayload()
	wrongType["age"] = "thirty"

	negativeCounts := userPayload()
	negativeCounts["transaction_count_last_90_days"] = -5
	negativeCounts["community_trust_referrals"] = -3

	testCases := []struct {
		name    string
		body    any
		details []string
	}{
		{"malformed json", "{", nil},
		{"missing fields", missing, []string{"wallet_balance is required", "has_smart_phone is required"}},
		{"wrong type", wrongType, nil},
		{"empty object", map[string]any{}, []string{"user_id is required"}},
		{"negative counts", negativeCounts, []string{
			"transaction_count_last_90_days must be at least 0",
			"community_trust_referrals must be at least 0",
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, path := range []string{"/score", "/explain"} {
				rec := doJSON(t, s, http.MethodPost, path, tc.body)
				require.Equal(t, http.StatusBadRequest, rec.Code, "%s: %s", path, rec.Body.String())

				body := decode[map[string]string](t, rec)
				assert.NotEmpty(t, body["error"])
				for _, d := range tc.details {
					assert.Contains(t, body["details"], d)
				}
			}
		})
	}
}

// TestZeroValuesAreAccepted verifies false and zero are not treated as missing
func TestZeroValuesAreAccepted(t *testing.T) {
	payload := userPayload()
	payload["avg_monthly_topup"] = 0
	payload["wallet_balance"] = 0
	payload["transaction_count_last_90_days"] = 0
	payload["community_trust_referrals"] = 0

	rec := doJSON(t, fallbackServer(t, Options{}), http.MethodPost, "/score", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 300, decode[CreditScoreResponse](t, rec).CreditScore)
}

// TestEngineFailureIs500 verifies core errors surface as 500 with details
func TestEngineFailureIs500(t *testing.T) {
	s := failingServer(t)

	for _, path := range []string{"/score", "/explain"} {
		rec := doJSON(t, s, http.MethodPost, path, userPayload())
		require.Equal(t, http.StatusInternalServerError, rec.Code, path)

		body := decode[map[string]string](t, rec)
		assert.NotEmpty(t, body["error"])
		assert.Contains(t, body["details"], "model exploded")
		assert.Empty(t, rec.Header().Get(decisionIDHeader))
	}
}

// TestDecisionLookup verifies recorded decisions can be fetched by ID and user
func TestDecisionLookup(t *testing.T) {
	s := fallbackServer(t, Options{})

	first := doJSON(t, s, http.MethodPost, "/score", userPayload())
	require.Equal(t, http.StatusOK, first.Code)
	second := doJSON(t, s, http.MethodPost, "/explain", userPayload())
	require.Equal(t, http.StatusOK, second.Code)

	id := first.Header().Get(decisionIDHeader)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/decisions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[audit.Record](t, rec)
	assert.Equal(t, audit.KindScore, got.Kind)
	assert.Equal(t, 600, got.CreditScore)
	assert.Equal(t, scoring.ModeFallback, got.Mode)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/users/user-42/decisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		UserID    string          `json:"user_id"`
		Decisions []*audit.Record `json:"decisions"`
	}](t, rec)
	require.Len(t, list.Decisions, 2)
	assert.Equal(t, audit.KindExplain, list.Decisions[0].Kind)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/users/user-42/decisions?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"explain"`)
	assert.NotContains(t, rec.Body.String(), `"kind":"score"`)
}

// TestDecisionLookupErrors verifies bad IDs, unknown IDs and bad limits
func TestDecisionLookupErrors(t *testing.T) {
	s := fallbackServer(t, Options{})

	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, http.MethodGet, "/api/v1/decisions/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, "/api/v1/decisions/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, http.MethodGet, "/api/v1/users/u/decisions?limit=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, http.MethodGet, "/api/v1/users/u/decisions?limit=abc", nil).Code)
}

type failingStore struct{ audit.Store }

func (failingStore) Add(context.Context, *audit.Record) error { return errors.New("disk full") }

// TestAuditFailureDoesNotFailRequest verifies recording is best effort
func TestAuditFailureDoesNotFailRequest(t *testing.T) {
	s := fallbackServer(t, Options{Store: failingStore{}})

	rec := doJSON(t, s, http.MethodPost, "/score", userPayload())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(decisionIDHeader))

	metrics := doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Contains(t, metrics.Body.String(), "credit_audit_failures_total 1")
}

// TestMetricsEndpoint verifies decisions are counted by mode and risk
func TestMetricsEndpoint(t *testing.T) {
	s := fallbackServer(t, Options{})
	doJSON(t, s, http.MethodPost, "/score", userPayload())

	rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `credit_decisions_total{mode="fallback",op="score",risk="Medium"} 1`)
}

// TestCORSPreflight verifies browsers may call the API from any origin by default
func TestCORSPreflight(t *testing.T) {
	s := fallbackServer(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/score", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	restricted := fallbackServer(t, Options{CORSOrigins: []string{"https://app.example"}})
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// TestLogLevelEndpoint verifies the log level can be read and changed at runtime
func TestLogLevelEndpoint(t *testing.T) {
	previous := logger.GetLevel()
	t.Cleanup(func() { logger.SetLevel(previous) })

	s := fallbackServer(t, Options{})

	rec := doJSON(t, s, http.MethodPut, "/admin/log-level", map[string]string{"level": "debug"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DEBUG", decode[LogLevelResponse](t, rec).Level)
	assert.Equal(t, logger.LevelDebug, logger.GetLevel())

	rec = doJSON(t, s, http.MethodGet, "/admin/log-level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DEBUG", decode[LogLevelResponse](t, rec).Level)

	testCases := []struct {
		name    string
		body    any
		details string
	}{
		{"unknown level", map[string]string{"level": "loud"}, "unknown log level"},
		{"missing level", map[string]string{}, "level is required"},
		{"malformed json", "{", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPut, "/admin/log-level", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decode[map[string]string](t, rec)["details"], tc.details)
		})
	}
	assert.Equal(t, logger.LevelDebug, logger.GetLevel(), "rejected requests must not change the level")
}
