// Package metrics exposes Prometheus metrics for the processing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PayloadsTotal counts processed staged payloads by terminal state.
	PayloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avl",
		Subsystem: "processor",
		Name:      "payloads_total",
		Help:      "Staged payloads processed, by terminal state.",
	}, []string{"state"})

	// RecordsPersistedTotal counts upserted vehicle activity records.
	RecordsPersistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "avl",
		Subsystem: "processor",
		Name:      "records_persisted_total",
		Help:      "Vehicle activity records upserted.",
	})

	// CancellationsPersistedTotal counts upserted cancellation records.
	CancellationsPersistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "avl",
		Subsystem: "processor",
		Name:      "cancellations_persisted_total",
		Help:      "Cancellation records upserted.",
	})

	// DiagnosticsTotal counts quarantined validation diagnostics by level.
	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avl",
		Subsystem: "processor",
		Name:      "diagnostics_total",
		Help:      "Validation diagnostics quarantined, by severity level.",
	}, []string{"level"})

	// TripMatchesTotal counts enrichment lookups by outcome.
	TripMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avl",
		Subsystem: "processor",
		Name:      "trip_matches_total",
		Help:      "Trip-matching enrichment lookups, by outcome.",
	}, []string{"outcome"})

	// ProcessingDuration observes end-to-end per-payload processing time.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "avl",
		Subsystem: "processor",
		Name:      "processing_duration_seconds",
		Help:      "Per-payload processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Terminal state label values for PayloadsTotal.
const (
	StatePersisted       = "persisted"
	StateQuarantinedOnly = "quarantined_only"
	StateEmpty           = "empty"
	StateInactiveAbort   = "inactive_abort"
	StateFatalError      = "fatal_error"
)

// Outcome label values for TripMatchesTotal.
const (
	MatchFound    = "matched"
	MatchNone     = "unmatched"
	MatchDegraded = "degraded"
)
