// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Audit pipeline:
//     - Audit: publisher queue, workers, queue-full policy, consumer toggle
//     - NATS: broker connection, embedded server, durable consumer
//     - WAL: optional BadgerDB spool in front of the broker
//
//  2. Storage:
//     - Database: DuckDB file holding audit_events and users
//
//  3. Portal:
//     - Server: HTTP listener
//     - Security: JWT sessions, admin identity, rate limits, CORS
//     - Calculation: upstream computation service for /submit
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Thread Safety:
// Config is immutable after LoadWithKoanf() and safe for concurrent read access.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	NATS        NATSConfig        `koanf:"nats"`
	Audit       AuditConfig       `koanf:"audit"`
	WAL         WALConfig         `koanf:"wal"`
	Database    DatabaseConfig    `koanf:"database"`
	Security    SecurityConfig    `koanf:"security"`
	Calculation CalculationConfig `koanf:"calculation"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production" (default: "development")
}

// NATSConfig holds broker settings for the user_events stream.
//
// Environment Variables:
//   - NATS_ENABLED: Publish audit events to NATS (default: true)
//   - NATS_URL: Broker URL (default: nats://127.0.0.1:4222)
//   - NATS_USER / NATS_PASSWORD: Broker credentials (optional)
//   - NATS_EMBEDDED: Run an in-process nats-server (default: true)
//   - NATS_STORE_DIR: JetStream storage directory for the embedded server
//   - NATS_DURABLE_NAME: Durable consumer name (default: audit-store)
type NATSConfig struct {
	// Enabled controls whether audit events leave the process at all.
	// When false the publisher delivers straight into the audit store.
	Enabled bool `koanf:"enabled"`

	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// EmbeddedServer starts nats-server in-process. If false, expects an
	// external server at URL.
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	MaxDeliver       int           `koanf:"max_deliver"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
}

// AuditConfig holds publisher settings.
//
// Environment Variables:
//   - AUDIT_QUEUE_SIZE: Bounded queue capacity (default: 1024)
//   - AUDIT_WORKERS: Delivery workers (default: 4)
//   - AUDIT_QUEUE_FULL_POLICY: drop_newest, drop_oldest or block (default: drop_newest)
//   - AUDIT_BLOCK_TIMEOUT: Max wait under the block policy (default: 50ms)
//   - AUDIT_DELIVERY_TIMEOUT: Per-delivery timeout (default: 5s)
//   - AUDIT_CONSUMER_ENABLED: Run the store consumer in this process (default: true)
type AuditConfig struct {
	QueueSize       int           `koanf:"queue_size"`
	Workers         int           `koanf:"workers"`
	QueueFullPolicy string        `koanf:"queue_full_policy"`
	BlockTimeout    time.Duration `koanf:"block_timeout"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
	ConsumerEnabled bool          `koanf:"consumer_enabled"`
}

// WALConfig holds the optional local spool settings. Disabled by default;
// when enabled every envelope is written to BadgerDB before the broker
// publish and retried until confirmed.
type WALConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	RetryInterval   time.Duration `koanf:"retry_interval"`
	MaxRetries      int           `koanf:"max_retries"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	CompactInterval time.Duration `koanf:"compact_interval"`
	EntryTTL        time.Duration `koanf:"entry_ttl"`
	LeaseDuration   time.Duration `koanf:"lease_duration"`
	ReplayRate      float64       `koanf:"replay_rate"` // republishes per second
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU
}

// SecurityConfig holds authentication and authorization settings.
// AdminUsername is the single privileged identity; only that exact,
// case-sensitive name may read audit logs and delete accounts.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	CookieSecure      bool          `koanf:"cookie_secure"`
}

// CalculationConfig points /submit at the computation service.
type CalculationConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}
