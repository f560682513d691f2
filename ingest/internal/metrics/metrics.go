package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts feed submissions by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avl_ingest_submissions_total",
			Help: "Total number of feed submissions received",
		},
		[]string{"outcome"},
	)

	// HeartbeatsTotal counts heartbeat notifications by status flag.
	HeartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avl_ingest_heartbeats_total",
			Help: "Total number of heartbeat notifications received",
		},
		[]string{"status"},
	)

	// PayloadBytesTotal counts bytes of staged payload data.
	PayloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avl_ingest_payload_bytes_total",
			Help: "Total bytes of raw payload data staged",
		},
	)

	// StagingDuration observes time spent staging payloads.
	StagingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "avl_ingest_staging_duration_seconds",
			Help:    "Duration of object store staging in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Submission outcome labels.
const (
	OutcomeStaged       = "staged"
	OutcomeHeartbeat    = "heartbeat"
	OutcomeEmpty        = "empty"
	OutcomeRejected     = "rejected"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)
