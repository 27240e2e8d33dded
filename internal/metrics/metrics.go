package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Posting outcomes
const (
	OutcomeCommitted    = "committed"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeRejected     = "rejected"
	OutcomeConflict     = "conflict"
	OutcomeFailed       = "failed"
)

// Metrics holds the ledger and HTTP collectors.
type Metrics struct {
	LedgerPostings  *prometheus.CounterVec
	CASRetries      prometheus.Counter
	DriftProducts   prometheus.Gauge
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LedgerPostings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_postings_total",
				Help: "Total number of ledger writes by operation kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		CASRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_cas_retries_total",
				Help: "Total number of optimistic ledger units re-run after a lost race",
			},
		),
		DriftProducts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledger_drift_products",
				Help: "Number of products whose stock disagrees with their ledger at the last reconciliation",
			},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.LedgerPostings,
		m.CASRetries,
		m.DriftProducts,
		m.RequestCounter,
		m.RequestDuration,
	)
	return m
}

// ObservePosting counts one ledger write. kind is "in", "out", "revise",
// "remove" or "adjust".
func (m *Metrics) ObservePosting(kind, outcome string) {
	m.LedgerPostings.WithLabelValues(kind, outcome).Inc()
}
