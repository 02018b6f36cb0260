// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package wal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Spool operation labels.
const (
	opWrite          = "write"
	opWriteFailure   = "write_failure"
	opConfirm        = "confirm"
	opRetry          = "retry"
	opPublishFailure = "publish_failure"
)

// Reasons an unconfirmed envelope leaves the spool.
const (
	dropExpired          = "expired"
	dropRetriesExhausted = "retries_exhausted"
)

// Background maintenance tasks.
const (
	taskCompaction = "compaction"
	taskValueLogGC = "value_log_gc"
)

var (
	spoolOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_spool_operations_total",
			Help: "Audit spool operations by kind",
		},
		[]string{"operation"},
	)

	spoolDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_spool_dropped_total",
			Help: "Spooled audit envelopes discarded before the broker confirmed them",
		},
		[]string{"reason"},
	)

	spoolEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audit_spool_entries",
			Help: "Spooled audit envelopes by state",
		},
		[]string{"state"},
	)

	spoolSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audit_spool_size_bytes",
		Help: "On-disk size of the audit spool",
	})

	spoolWriteSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_spool_write_duration_seconds",
		Help:    "Time to persist one envelope to the spool",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	spoolMaintenanceSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_spool_maintenance_duration_seconds",
			Help:    "Duration of spool compaction and value log GC runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"task"},
	)

	spoolCompacted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_spool_compacted_total",
		Help: "Spool entries removed by compaction",
	})

	spoolRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_spool_recovered_total",
		Help: "Pending envelopes found in the spool at startup",
	})
)

func countOp(op string) {
	spoolOperations.WithLabelValues(op).Inc()
}

func countDropped(reason string) {
	spoolDropped.WithLabelValues(reason).Inc()
}

func observeWrite(d time.Duration) {
	spoolWriteSeconds.Observe(d.Seconds())
}

func observeMaintenance(task string, d time.Duration) {
	spoolMaintenanceSeconds.WithLabelValues(task).Observe(d.Seconds())
}

func setSpoolGauges(pending, confirmed, sizeBytes int64) {
	spoolEntries.WithLabelValues("pending").Set(float64(pending))
	spoolEntries.WithLabelValues("confirmed").Set(float64(confirmed))
	spoolSizeBytes.Set(float64(sizeBytes))
}

// RecordPublishFailure counts a spooled envelope the broker did not accept.
// The entry stays pending for the retry loop.
func RecordPublishFailure() {
	countOp(opPublishFailure)
}
