// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package main is the entry point for the Auditwire server.

Auditwire is a small account portal whose every security-relevant action
(registration, login, failed login, logout, account deletion and rejected
deletion attempts) is recorded as an audit event. Events leave the request
path through a bounded in-process queue, travel over the NATS JetStream
stream user_events and are appended to DuckDB by a durable consumer. Only
the configured admin can read them back.

# Application Architecture

The server runs under Suture v4 process supervision:

	RootSupervisor ("auditwire")
	├── DataSupervisor ("data-layer")
	│   ├── Token revocation cleanup
	│   └── WAL retry loop and compactor (WAL_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Audit store consumer (AUDIT_CONSUMER_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB tables audit_events and users
 4. Authorization: Casbin enforcer for the admin identity, JWT sessions
 5. NATS: embedded server, stream, Watermill publisher and subscriber
 6. WAL: optional BadgerDB spool in front of the broker
 7. Audit publisher: bounded queue with delivery workers
 8. Admin bootstrap: creates the admin account when ADMIN_PASSWORD is set
 9. HTTP Server: Chi router with middleware stack

With NATS_ENABLED=false the audit publisher appends straight to DuckDB.

# Event Flow

	handler ──Emit──▶ audit.Publisher ──▶ [WAL] ──▶ NATS user_events
	                                                      │
	                  audit_events (DuckDB) ◀── StoreConsumer

Emit never blocks a request beyond AUDIT_BLOCK_TIMEOUT and never fails one.
Broker outages are absorbed by the publisher's circuit breaker and, when
enabled, by the WAL retry loop.

# Graceful Shutdown

On SIGINT or SIGTERM the supervisor tree stops the HTTP server and the
background services. The audit publisher then drains its queue, and the
broker side closes last: subscriber, publisher, WAL, connection, embedded
server. Anything still undelivered sits in the WAL for the next start.

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	PORT=5000
	JWT_SECRET=<32+ chars>        # Required
	ADMIN_USERNAME=admin          # The only identity allowed to read logs
	ADMIN_PASSWORD=<password>     # Bootstraps the admin account
	NATS_ENABLED=true
	NATS_EMBEDDED=true
	WAL_ENABLED=false
	DUCKDB_PATH=/data/auditwire.duckdb
	CALCULATION_URL=http://localhost:9999
	LOG_LEVEL=info
	LOG_FORMAT=json

See internal/config for the full list.
*/
package main
