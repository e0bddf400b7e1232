package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for timeline builds.
type Metrics struct {
	// Records dropped during normalization by kind and reason
	RecordsDropped *prometheus.CounterVec

	// Validator findings by kind and category
	Diagnostics *prometheus.CounterVec

	// Derived events by type
	Events *prometheus.CounterVec

	SnapshotsEmitted prometheus.Counter

	// Stage latencies: harvest, normalize, validate, events, snapshots, persist
	StageLatency *prometheus.HistogramVec

	RunsTotal *prometheus.CounterVec
}

// New registers the timeline metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RecordsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_timeline_records_dropped_total",
			Help: "Harvested records dropped during normalization",
		}, []string{"kind", "reason"}), // kind: "party", "seat", "member"

		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_timeline_diagnostics_total",
			Help: "Temporal consistency findings by spell kind and category",
		}, []string{"kind", "category"}),

		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_timeline_events_total",
			Help: "Derived chamber events by type",
		}, []string{"type"}),

		SnapshotsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "civitas_timeline_snapshots_total",
			Help: "Snapshots emitted by replay",
		}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civitas_timeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"stage"}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_timeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"outcome"}), // outcome: "ok", "harvest_error", "persist_error"
	}
}

// AddDropped records n dropped records.
func (m *Metrics) AddDropped(kind, reason string, n int) {
	if m != nil && n > 0 {
		m.RecordsDropped.WithLabelValues(kind, reason).Add(float64(n))
	}
}

// AddDiagnostics records n validator findings.
func (m *Metrics) AddDiagnostics(kind, category string, n int) {
	if m != nil && n > 0 {
		m.Diagnostics.WithLabelValues(kind, category).Add(float64(n))
	}
}

// IncrementEvent records one derived event.
func (m *Metrics) IncrementEvent(eventType string) {
	if m != nil {
		m.Events.WithLabelValues(eventType).Inc()
	}
}

// AddSnapshots records n emitted snapshots.
func (m *Metrics) AddSnapshots(n int) {
	if m != nil {
		m.SnapshotsEmitted.Add(float64(n))
	}
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementRun records a finished run.
func (m *Metrics) IncrementRun(outcome string) {
	if m != nil {
		m.RunsTotal.WithLabelValues(outcome).Inc()
	}
}
