package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for upstream fetching.
type Metrics struct {
	// Fetch outcomes: "hit", "fetched", "error"
	Fetches *prometheus.CounterVec

	Retries prometheus.Counter

	FetchLatency prometheus.Histogram

	// Members skipped after their detail fetch failed
	MembersSkipped prometheus.Counter
}

// New registers the harvest metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_harvest_fetches_total",
			Help: "Upstream fetches by outcome",
		}, []string{"outcome"}),

		Retries: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_harvest_retries_total",
			Help: "Upstream request retries",
		}),

		FetchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civitas_harvest_fetch_duration_seconds",
			Help:    "Duration of upstream fetches including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		MembersSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_harvest_members_skipped_total",
			Help: "Members skipped after a failed detail fetch",
		}),
	}
}

// IncrementFetch records a fetch outcome.
func (m *Metrics) IncrementFetch(outcome string) {
	if m != nil {
		m.Fetches.WithLabelValues(outcome).Inc()
	}
}

// IncrementRetry records one retry.
func (m *Metrics) IncrementRetry() {
	if m != nil {
		m.Retries.Inc()
	}
}

// ObserveFetch records the duration of a network fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m != nil {
		m.FetchLatency.Observe(d.Seconds())
	}
}

// IncrementSkipped records a member skipped after a failure.
func (m *Metrics) IncrementSkipped() {
	if m != nil {
		m.MembersSkipped.Inc()
	}
}
