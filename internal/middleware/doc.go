// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package middleware provides infrastructure HTTP middleware for the portal.

Components:

  - RequestID: request and correlation IDs for structured logging
  - PrometheusMetrics: request count, latency and in-flight gauge
  - PerformanceMonitor: sliding-window latency percentiles per route,
    reported by GET /api/v1/audit/stats

All middleware has the chi signature func(http.Handler) http.Handler.
Metrics and performance samples are keyed by the chi route pattern, so a
request for /show_logs/alice is recorded as /show_logs/{username}.

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)

Authentication and authorization live in the auth and authz packages.
*/
package middleware
