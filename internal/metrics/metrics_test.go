package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDecision(t *testing.T) {
	m := New("trained")

	m.ObserveDecision("score", "trained", "Low", time.Millisecond)
	m.ObserveDecision("score", "trained", "Low", time.Millisecond)
	m.ObserveDecision("explain", "trained", "High", time.Millisecond)
	m.ObserveFailure("score", time.Millisecond)
	m.ObserveAuditFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("score", "trained", "Low")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("explain", "trained", "High")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("score")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New("fallback")
	m.ObserveDecision("score", "fallback", "Medium", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `credit_decisions_total{mode="fallback",op="score",risk="Medium"} 1`)
	assert.Contains(t, string(body), `credit_engine_info{mode="fallback"} 1`)
	assert.Contains(t, string(body), "credit_log_errors_total")
}

func TestNewUsesPrivateRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New("trained")
		New("trained")
	})
}
