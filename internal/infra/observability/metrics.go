package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the aggregator.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	relationshipsTotal *prometheus.CounterVec
	balancesWritten    *prometheus.CounterVec
	phaseDuration      *prometheus.HistogramVec
	queryDuration      *prometheus.HistogramVec
	secretLookups      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		relationshipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_relationships_total",
				Help: "Relationships processed per fetch run, by outcome.",
			},
			[]string{"status"},
		),
		balancesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_balances_written_total",
				Help: "Balance rows written to the store, by kind.",
			},
			[]string{"kind"},
		),
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_fetch_phase_duration_seconds",
				Help:    "Duration of each provider phase.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"phase"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_query_duration_seconds",
				Help:    "Duration of dashboard store queries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		secretLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_secret_lookups_total",
				Help: "Secret resolutions, by result.",
			},
			[]string{"result"},
		),
	}
}

// IncrRelationship counts one processed relationship by outcome
// (fetched / failed / skipped).
func (m *Metrics) IncrRelationship(status string) {
	m.relationshipsTotal.WithLabelValues(status).Inc()
}

// IncrBalancesWritten counts rows written by kind
// (live / historical / calculated).
func (m *Metrics) IncrBalancesWritten(kind string, n int) {
	m.balancesWritten.WithLabelValues(kind).Add(float64(n))
}

// RecordPhase records how long a provider phase took.
func (m *Metrics) RecordPhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordQuery records a dashboard query duration.
func (m *Metrics) RecordQuery(query string, d time.Duration) {
	m.queryDuration.WithLabelValues(query).Observe(d.Seconds())
}

// IncrSecretLookup counts a secret resolution (hit / miss).
func (m *Metrics) IncrSecretLookup(result string) {
	m.secretLookups.WithLabelValues(result).Inc()
}

// RunSummary is an end-of-run snapshot for the fetch summary log line.
type RunSummary struct {
	Fetched    int64
	Failed     int64
	Live       int64
	Historical int64
	Calculated int64
}

// Total returns the number of balance rows written across all kinds.
func (s RunSummary) Total() int64 {
	return s.Live + s.Historical + s.Calculated
}

// Snapshot reads the cumulative counters back out of Prometheus. Counters
// are process-cumulative, so this matches one run only when the process
// performs one run — which is how the fetch command works.
func (m *Metrics) Snapshot() RunSummary {
	return RunSummary{
		Fetched:    int64(counterValue(m.relationshipsTotal, "fetched")),
		Failed:     int64(counterValue(m.relationshipsTotal, "failed")),
		Live:       int64(counterValue(m.balancesWritten, "live")),
		Historical: int64(counterValue(m.balancesWritten, "historical")),
		Calculated: int64(counterValue(m.balancesWritten, "calculated")),
	}
}

// counterValue extracts the current float64 value from a CounterVec for a given label.
func counterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
