// Package metrics exposes the Prometheus collectors shared by the
// turbostart processes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	LedgerOperations      *prometheus.CounterVec
	ArtifactsCreated      prometheus.Counter
	ReferralBonuses       prometheus.Counter
	ActivityWriteFailures prometheus.Counter
	RenderJobs            *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LedgerOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbostart",
			Name:      "ledger_operations_total",
			Help:      "Balance-changing operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		ArtifactsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turbostart",
			Name:      "artifacts_created_total",
			Help:      "Artifacts persisted after an accepted debit.",
		}),
		ReferralBonuses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turbostart",
			Name:      "referral_bonuses_total",
			Help:      "Referral bonuses paid out.",
		}),
		ActivityWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turbostart",
			Name:      "activity_write_failures_total",
			Help:      "Audit entries that could not be persisted.",
		}),
		RenderJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbostart",
			Name:      "render_jobs_total",
			Help:      "Video render jobs by outcome.",
		}, []string{"outcome"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "turbostart",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.LedgerOperations,
		m.ArtifactsCreated,
		m.ReferralBonuses,
		m.ActivityWriteFailures,
		m.RenderJobs,
		m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) LedgerOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ArtifactCreated() {
	if m == nil {
		return
	}
	m.ArtifactsCreated.Inc()
}

func (m *Metrics) ReferralBonusPaid() {
	if m == nil {
		return
	}
	m.ReferralBonuses.Inc()
}

func (m *Metrics) ActivityWriteFailed() {
	if m == nil {
		return
	}
	m.ActivityWriteFailures.Inc()
}

func (m *Metrics) RenderJob(outcome string) {
	if m == nil {
		return
	}
	m.RenderJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
