package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/credit/internal/logger"
)

const namespace = "credit"

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	failures      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	auditFailures prometheus.Counter
}

// New registers the collectors. mode is the engine's fixed predictor mode.
func New(mode string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Score and explain results by operation, predictor mode and risk tier.",
		}, []string{"op", "mode", "risk"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_failures_total",
			Help:      "Score and explain calls that returned an error.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time spent in the scoring engine.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Decisions that could not be written to the audit store.",
		}),
	}

	m.registry.MustRegister(
		m.decisions,
		m.failures,
		m.latency,
		m.auditFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "engine_info",
			Help:        "Always 1, labelled with the predictor mode.",
			ConstLabels: prometheus.Labels{"mode": mode},
		}, func() float64 { return 1 }),
		logCounter("log_errors_total", "Errors logged, before sampling.", &logger.TotalErrors),
		logCounter("log_warnings_total", "Warnings logged, before sampling.", &logger.TotalWarnings),
		logCounter("http_5xx_total", "Responses with a 5xx status.", &logger.Total5xxErrors),
		logCounter("http_4xx_total", "Responses with a 4xx status.", &logger.Total4xxErrors),
		logCounter("http_slow_requests_total", "Requests slower than the slow threshold.", &logger.SlowRequests),
	)
	return m
}

type int64Loader interface {
	Load() int64
}

func logCounter(name, help string, c int64Loader) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(c.Load()) })
}

// ObserveDecision records a successful call
func (m *Metrics) ObserveDecision(op, mode, risk string, took time.Duration) {
	m.decisions.WithLabelValues(op, mode, risk).Inc()
	m.latency.WithLabelValues(op).Observe(took.Seconds())
}

// ObserveFailure records a failed call
func (m *Metrics) ObserveFailure(op string, took time.Duration) {
	m.failures.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(took.Seconds())
}

// ObserveAuditFailure records a decision that was not persisted
func (m *Metrics) ObserveAuditFailure() {
	m.auditFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
