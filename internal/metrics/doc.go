// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:5000/metrics

# Available Metrics

Audit publisher:
  - audit_events_emitted_total{event_type}
  - audit_events_dropped_total{reason}
  - audit_deliveries_total{outcome}
  - audit_delivery_duration_seconds
  - audit_queue_depth

Audit consumer:
  - audit_events_persisted_total{event_type}
  - audit_consume_failures_total{reason}

Broker and resilience:
  - nats_publish_total
  - circuit_breaker_state{name}
  - circuit_breaker_transitions_total{name,from,to}

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - calculation_requests_total{outcome}

Durable spool metrics (wal_*) live in the wal package.
*/
package metrics
