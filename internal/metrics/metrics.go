package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the frontdesk Prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	// Visit lifecycle transitions by operation and outcome
	Transitions *prometheus.CounterVec

	// Retention runs by status, and rows purged by table
	PurgeRuns *prometheus.CounterVec
	PurgeRows *prometheus.CounterVec

	// HTTP request latency by route
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_visit_transitions_total",
			Help: "Visit lifecycle operations by operation and outcome",
		}, []string{"op", "outcome"}), // outcome: "ok", "rejected", "error"

		PurgeRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_retention_runs_total",
			Help: "Retention purge runs by final status",
		}, []string{"status"}),

		PurgeRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_retention_rows_deleted_total",
			Help: "Rows deleted by the retention purge by table",
		}, []string{"table"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frontdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

// ObserveTransition counts one lifecycle operation.
func (m *Metrics) ObserveTransition(op, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(op, outcome).Inc()
	}
}

// ObservePurge records a finished retention run.
func (m *Metrics) ObservePurge(status string, profiles, visits, dependents int64) {
	if m == nil {
		return
	}
	m.PurgeRuns.WithLabelValues(status).Inc()
	m.PurgeRows.WithLabelValues("visitors").Add(float64(profiles))
	m.PurgeRows.WithLabelValues("visits").Add(float64(visits))
	m.PurgeRows.WithLabelValues("dependents").Add(float64(dependents))
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
