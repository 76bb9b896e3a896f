// Package metrics exposes Prometheus instrumentation for trip sync and the
// backing stores. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sync and persistence paths.
type Metrics struct {
	// Sync outcomes by decision: in_sync, remote_wins, local_wins, local_wins_tie, aborted
	SyncDecisions *prometheus.CounterVec

	// Full sync cycle latency
	SyncDuration prometheus.Histogram

	// Store fetch latency by store: local, remote
	FetchLatency *prometheus.HistogramVec

	// Failed writes by store
	StoreWriteFailures *prometheus.CounterVec

	// Trips in the canonical set
	Trips prometheus.Gauge
}

// New creates a Metrics instance with every collector registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SyncDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "natz_sync_decisions_total",
			Help: "Trip sync cycles by reconciliation decision",
		}, []string{"decision"}),

		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "natz_sync_duration_seconds",
			Help:    "Duration of a full trip sync cycle including writes",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "natz_store_fetch_duration_seconds",
			Help:    "Duration of trip set loads by store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"store"}),

		StoreWriteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "natz_store_write_failures_total",
			Help: "Trip set writes rejected by a store",
		}, []string{"store"}),

		Trips: f.NewGauge(prometheus.GaugeOpts{
			Name: "natz_trips",
			Help: "Number of trips in the canonical set",
		}),
	}
}

// IncrementDecision records the outcome of one sync cycle.
func (m *Metrics) IncrementDecision(decision string) {
	if m != nil {
		m.SyncDecisions.WithLabelValues(decision).Inc()
	}
}

// ObserveSyncDuration records the total sync cycle duration.
func (m *Metrics) ObserveSyncDuration(d time.Duration) {
	if m != nil {
		m.SyncDuration.Observe(d.Seconds())
	}
}

// ObserveFetchLatency records the duration of loading trips from a store.
func (m *Metrics) ObserveFetchLatency(store string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(store).Observe(d.Seconds())
	}
}

// IncrementWriteFailure records a rejected write to a store.
func (m *Metrics) IncrementWriteFailure(store string) {
	if m != nil {
		m.StoreWriteFailures.WithLabelValues(store).Inc()
	}
}

// SetTrips records the size of the canonical set.
func (m *Metrics) SetTrips(n int) {
	if m != nil {
		m.Trips.Set(float64(n))
	}
}
