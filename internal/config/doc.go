// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package config provides centralized configuration management for Auditwire.

Configuration is layered with Koanf v2: struct defaults, then an optional YAML
file, then environment variables. Only environment variables listed in the
mapping table are read; anything else in the environment is ignored.

# Configuration File

The first existing file wins: $CONFIG_PATH, config.yaml, config.yml,
/etc/auditwire/config.yaml, /etc/auditwire/config.yml.

	server:
	  port: 5000
	nats:
	  url: nats://127.0.0.1:4222
	  embedded_server: true
	audit:
	  queue_size: 1024
	  workers: 4
	  queue_full_policy: drop_newest
	security:
	  admin_username: admin

# Environment Variables

Portal:
  - PORT: HTTP listen port (default: 5000)
  - CALCULATION_URL: Computation service base URL (default: http://localhost:9999)
  - JWT_SECRET: Session signing secret (required, min 32 chars)
  - ADMIN_USERNAME: The single privileged identity (default: admin)
  - ADMIN_PASSWORD: Bootstraps the admin account when set

Audit pipeline:
  - AUDIT_QUEUE_SIZE, AUDIT_WORKERS, AUDIT_QUEUE_FULL_POLICY
  - AUDIT_BLOCK_TIMEOUT, AUDIT_DELIVERY_TIMEOUT, AUDIT_CONSUMER_ENABLED
  - NATS_ENABLED, NATS_URL, NATS_USER, NATS_PASSWORD, NATS_EMBEDDED
  - WAL_ENABLED, WAL_PATH, WAL_RETRY_INTERVAL, WAL_MAX_RETRIES, WAL_REPLAY_RATE

Storage and logging:
  - DUCKDB_PATH: Database file (default: /data/auditwire.duckdb)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

LoadWithKoanf validates the merged result and returns a *ConfigError naming
the offending environment variable. The process should refuse to start on
any validation error.
*/
package config
