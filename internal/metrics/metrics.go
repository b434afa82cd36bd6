// Package metrics exposes Prometheus collectors for the snapshot service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	snapshotsSeenTotal    prometheus.Counter
	snapshotsSkippedTotal *prometheus.CounterVec
	snapshotOutcomesTotal *prometheus.CounterVec
	cycleDurationSeconds  prometheus.Histogram
	cyclesTotal           *prometheus.CounterVec
	providerRequestsTotal *prometheus.CounterVec
	unsupportedKindTotal  prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		snapshotsSeenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshotd_snapshots_seen_total",
				Help: "Total number of snapshots returned by provider listings.",
			},
		)

		snapshotsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshotd_snapshots_skipped_total",
				Help: "Total number of snapshots skipped, labeled by status.",
			},
			[]string{"status"},
		)

		snapshotOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshotd_snapshot_outcomes_total",
				Help: "Total processed snapshots, labeled by source kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapshotd_cycle_duration_seconds",
				Help:    "Histogram of poll cycle durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60},
			},
		)

		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshotd_cycles_total",
				Help: "Total poll cycles, labeled by result.",
			},
			[]string{"result"},
		)

		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshotd_provider_requests_total",
				Help: "Total provider API requests, labeled by operation and status code.",
			},
			[]string{"op", "code"},
		)

		unsupportedKindTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshotd_unsupported_source_kind_total",
				Help: "Snapshots rejected because no extractor is registered for their kind.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSnapshotsSeen adds the size of one provider listing.
func ObserveSnapshotsSeen(count int) {
	if snapshotsSeenTotal == nil || count <= 0 {
		return
	}
	snapshotsSeenTotal.Add(float64(count))
}

// ObserveSkipped increments the skip counter for a non-ready status.
func ObserveSkipped(status string) {
	if snapshotsSkippedTotal == nil {
		return
	}
	snapshotsSkippedTotal.WithLabelValues(status).Inc()
}

// ObserveOutcome increments the outcome counter for a processed snapshot.
func ObserveOutcome(kind, outcome string) {
	if snapshotOutcomesTotal == nil {
		return
	}
	snapshotOutcomesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveCycle records one completed poll cycle.
func ObserveCycle(result string, duration time.Duration) {
	if cyclesTotal == nil {
		return
	}
	cyclesTotal.WithLabelValues(result).Inc()
	cycleDurationSeconds.Observe(duration.Seconds())
}

// ObserveProviderRequest increments the provider request counter. A zero
// code means the request never produced a response.
func ObserveProviderRequest(op string, code int) {
	if providerRequestsTotal == nil {
		return
	}
	providerRequestsTotal.WithLabelValues(op, strconv.Itoa(code)).Inc()
}

// ObserveUnsupportedKind counts a configuration defect worth alerting on.
func ObserveUnsupportedKind() {
	if unsupportedKindTotal == nil {
		return
	}
	unsupportedKindTotal.Inc()
}
