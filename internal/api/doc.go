// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package api provides the HTTP surface of the account portal.

Routes:

	GET    /health/live            liveness
	GET    /health/ready           readiness (audit store, broker stream)
	GET    /metrics                Prometheus
	POST   /register               create account          -> user_created
	POST   /login                  session token + cookie  -> user_logged_in | failed_login_attempt
	POST   /logout                 revoke session          -> user_logged_out
	POST   /submit                 computation proxy
	DELETE /users/{username}       deletion guard          -> user_deleted | user_deletion_failed_*
	GET    /users                  account list (admin)
	GET    /show_logs              full audit trail (admin)
	GET    /show_logs/{username}   per-actor trail (admin)
	GET    /api/v1/logs[/{username}]  same as /show_logs
	GET    /api/v1/audit/stats     event counts and pipeline counters (admin)

Every response, success or error, uses the models.APIResponse envelope.
Non-administrators get an explicit 403 FORBIDDEN from admin routes; a
failing audit store yields 503 STORE_UNAVAILABLE, never an empty trail.

Audit events are produced by the users package; handlers only pass the
request source address along. Emission never blocks or fails a request.

Middleware order: request ID, real IP, panic recovery, CORS, security
headers, Prometheus, latency window, then per-group rate limits (httprate),
authentication (auth) and authorization (authz, casbin).
*/
package api
