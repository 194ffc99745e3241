package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage outcome labels.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	StageInvocationsTotal *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec

	// Session metrics
	SessionsActive       prometheus.Gauge
	SessionsCreatedTotal prometheus.Counter
	SessionsExpiredTotal prometheus.Counter
	SessionsDeletedTotal prometheus.Counter

	// Conversation metrics
	QuestionsTotal      prometheus.Counter
	QuestionErrorsTotal prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Pipeline metrics
		StageInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stage_invocations_total",
				Help: "Total number of pipeline stage invocations",
			},
			[]string{"stage", "status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Duration of pipeline stage invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		// Session metrics
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Number of live sessions in the store",
			},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_expired_total",
				Help: "Total number of sessions removed by the expiry sweep",
			},
		),
		SessionsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_deleted_total",
				Help: "Total number of sessions explicitly deleted",
			},
		),

		// Conversation metrics
		QuestionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "questions_total",
				Help: "Total number of follow-up questions asked",
			},
		),
		QuestionErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "question_errors_total",
				Help: "Total number of follow-up questions that failed",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	// Pipeline metrics
	m.registry.MustRegister(m.StageInvocationsTotal)
	m.registry.MustRegister(m.StageDuration)

	// Session metrics
	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsCreatedTotal)
	m.registry.MustRegister(m.SessionsExpiredTotal)
	m.registry.MustRegister(m.SessionsDeletedTotal)

	// Conversation metrics
	m.registry.MustRegister(m.QuestionsTotal)
	m.registry.MustRegister(m.QuestionErrorsTotal)
}

// ObserveStage records one stage invocation. Safe on a nil receiver so
// callers can treat metrics as optional.
func (m *Metrics) ObserveStage(stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageInvocationsTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
