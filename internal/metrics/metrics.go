// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit Publisher Metrics
	AuditEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_emitted_total",
			Help: "Total number of audit events accepted by the publisher",
		},
		[]string{"event_type"},
	)

	AuditEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Total number of audit events dropped before delivery",
		},
		[]string{"reason"}, // "drop_newest", "drop_oldest", "block_timeout", "closed"
	)

	AuditDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_deliveries_total",
			Help: "Total number of audit delivery attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	AuditDeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_delivery_duration_seconds",
			Help:    "Duration of a single audit delivery attempt in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Current number of audit events waiting for a delivery worker",
		},
	)

	// Audit Consumer Metrics
	AuditEventsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_persisted_total",
			Help: "Total number of audit events written to the audit store",
		},
		[]string{"event_type"},
	)

	AuditConsumeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_consume_failures_total",
			Help: "Total number of broker messages the consumer could not persist",
		},
		[]string{"reason"}, // "decode", "store"
	)

	// Broker Metrics
	NATSPublishTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_publish_total",
			Help: "Total number of messages acknowledged by JetStream",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Calculation proxy
	CalculationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculation_requests_total",
			Help: "Total number of problems forwarded to the calculation service",
		},
		[]string{"outcome"}, // "success", "remote_error", "transport_error"
	)
)

// RecordAuditEmit records an accepted audit event.
func RecordAuditEmit(eventType string) {
	AuditEventsEmitted.WithLabelValues(eventType).Inc()
}

// RecordAuditDrop records an audit event dropped before delivery.
func RecordAuditDrop(reason string) {
	AuditEventsDropped.WithLabelValues(reason).Inc()
}

// RecordAuditDelivery records the outcome and latency of one delivery attempt.
func RecordAuditDelivery(duration time.Duration, err error) {
	AuditDeliveryDuration.Observe(duration.Seconds())
	if err != nil {
		AuditDeliveries.WithLabelValues("failure").Inc()
		return
	}
	AuditDeliveries.WithLabelValues("success").Inc()
}

// UpdateAuditQueueDepth sets the current publisher queue depth.
func UpdateAuditQueueDepth(depth int) {
	AuditQueueDepth.Set(float64(depth))
}

// RecordAuditPersisted records an envelope written by the consumer.
func RecordAuditPersisted(eventType string) {
	AuditEventsPersisted.WithLabelValues(eventType).Inc()
}

// RecordAuditConsumeFailure records a consumer failure.
func RecordAuditConsumeFailure(reason string) {
	AuditConsumeFailures.WithLabelValues(reason).Inc()
}

// RecordNATSPublish records a message acknowledged by JetStream.
func RecordNATSPublish() {
	NATSPublishTotal.Inc()
}

// RecordCircuitBreakerTransition records a breaker state change. States are
// the gobreaker string names.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(circuitStateValue(to))
}

func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCalculationRequest records the outcome of a forwarded problem.
func RecordCalculationRequest(outcome string) {
	CalculationRequests.WithLabelValues(outcome).Inc()
}
