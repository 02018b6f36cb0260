// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigError reports a single invalid setting. Field is the environment
// variable name operators set, not the Go field name.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + " " + e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateNATS,
		c.validateAudit,
		c.validateWAL,
		c.validateDatabase,
		c.validateSecurity,
		c.validateCalculation,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("PORT", "must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout < time.Second {
		return invalid("SHUTDOWN_TIMEOUT", "must be at least 1s")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxSubscribers = 32
)

// validateNATS validates broker settings (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return invalid("NATS_URL", "is invalid: %v", err)
	}
	if (c.NATS.Username == "") != (c.NATS.Password == "") {
		return invalid("NATS_USER", "and NATS_PASSWORD must be set together")
	}
	if c.NATS.DurableName == "" {
		return invalid("NATS_DURABLE_NAME", "is required")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return invalid("NATS_SUBSCRIBERS", "must be between 1 and %d", natsMaxSubscribers)
	}
	if c.NATS.MaxDeliver == 0 || c.NATS.MaxDeliver < -1 {
		return invalid("NATS_MAX_DELIVER", "must be -1 (unlimited) or at least 1")
	}
	if c.NATS.AckWaitTimeout < time.Second {
		return invalid("NATS_ACK_WAIT_TIMEOUT", "must be at least 1s")
	}

	if !c.NATS.EmbeddedServer {
		return nil
	}
	if c.NATS.StoreDir == "" {
		return invalid("NATS_STORE_DIR", "is required when NATS_EMBEDDED is true")
	}
	if c.NATS.MaxMemory < natsMinMemory {
		return invalid("NATS_MAX_MEMORY", "must be at least 64MB (67108864 bytes)")
	}
	if c.NATS.MaxStore < natsMinStore {
		return invalid("NATS_MAX_STORE", "must be at least 100MB (104857600 bytes)")
	}
	return nil
}

// Audit publisher constants
const (
	auditMaxQueueSize  = 1_000_000
	auditMaxWorkers    = 64
	auditMaxBlockWait  = 5 * time.Second
	auditMinDeliveryTO = 100 * time.Millisecond
)

var validQueueFullPolicies = map[string]bool{
	"drop_newest": true,
	"drop_oldest": true,
	"block":       true,
}

func (c *Config) validateAudit() error {
	if c.Audit.QueueSize < 1 || c.Audit.QueueSize > auditMaxQueueSize {
		return invalid("AUDIT_QUEUE_SIZE", "must be between 1 and %d", auditMaxQueueSize)
	}
	if c.Audit.Workers < 1 || c.Audit.Workers > auditMaxWorkers {
		return invalid("AUDIT_WORKERS", "must be between 1 and %d", auditMaxWorkers)
	}

	policy := strings.ToLower(strings.TrimSpace(c.Audit.QueueFullPolicy))
	if !validQueueFullPolicies[policy] {
		return invalid("AUDIT_QUEUE_FULL_POLICY", "must be one of: drop_newest, drop_oldest, block")
	}
	if policy == "block" && (c.Audit.BlockTimeout <= 0 || c.Audit.BlockTimeout > auditMaxBlockWait) {
		return invalid("AUDIT_BLOCK_TIMEOUT", "must be positive and at most %v when the policy is block", auditMaxBlockWait)
	}
	if c.Audit.DeliveryTimeout < auditMinDeliveryTO {
		return invalid("AUDIT_DELIVERY_TIMEOUT", "must be at least %v", auditMinDeliveryTO)
	}
	return nil
}

// validateWAL mirrors the spool's own limits so a bad value fails at startup
// rather than when the spool opens.
func (c *Config) validateWAL() error {
	if !c.WAL.Enabled {
		return nil
	}
	if !c.NATS.Enabled {
		return invalid("WAL_ENABLED", "requires NATS_ENABLED")
	}

	switch {
	case c.WAL.Path == "":
		return invalid("WAL_PATH", "is required when WAL_ENABLED is true")
	case c.WAL.RetryInterval < time.Second:
		return invalid("WAL_RETRY_INTERVAL", "must be at least 1s")
	case c.WAL.MaxRetries < 1:
		return invalid("WAL_MAX_RETRIES", "must be at least 1")
	case c.WAL.RetryBackoff < time.Second:
		return invalid("WAL_RETRY_BACKOFF", "must be at least 1s")
	case c.WAL.CompactInterval < time.Minute:
		return invalid("WAL_COMPACT_INTERVAL", "must be at least 1m")
	case c.WAL.EntryTTL < time.Hour:
		return invalid("WAL_ENTRY_TTL", "must be at least 1h")
	case c.WAL.LeaseDuration < 10*time.Second:
		return invalid("WAL_LEASE_DURATION", "must be at least 10s")
	case c.WAL.ReplayRate <= 0:
		return invalid("WAL_REPLAY_RATE", "must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return invalid("DUCKDB_PATH", "is required")
	}
	if c.Database.Threads < 0 {
		return invalid("DUCKDB_THREADS", "must not be negative")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
	minAdminPasswordLen  = 8
)

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if err := c.validateAdmin(); err != nil {
		return err
	}
	if c.Security.SessionTimeout < time.Minute {
		return invalid("SESSION_TIMEOUT", "must be at least 1m")
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return invalid("JWT_SECRET", "is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return invalid("JWT_SECRET", "must be at least %d characters for security", minJWTSecretLength)
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return invalid("JWT_SECRET", "contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateAdmin checks the privileged identity. ADMIN_PASSWORD is optional:
// without it the admin account must be registered through the portal.
func (c *Config) validateAdmin() error {
	if strings.TrimSpace(c.Security.AdminUsername) == "" {
		return invalid("ADMIN_USERNAME", "is required")
	}
	if c.Security.AdminPassword == "" {
		return nil
	}
	if len(c.Security.AdminPassword) < minAdminPasswordLen {
		return invalid("ADMIN_PASSWORD", "must be at least %d characters", minAdminPasswordLen)
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return invalid("ADMIN_PASSWORD", "contains a placeholder value - set a secure password")
	}
	return nil
}

// validateCORS rejects wildcard origins in production, where the session
// cookie would be usable from any site.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return invalid("CORS_ORIGINS", "wildcard (*) is not allowed in production. "+
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com "+
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return invalid("RATE_LIMIT_REQUESTS", "must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return invalid("RATE_LIMIT_WINDOW", "must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

func (c *Config) validateCalculation() error {
	if err := validateCalculationURL(c.Calculation.URL); err != nil {
		return invalid("CALCULATION_URL", "is invalid: %v", err)
	}
	if c.Calculation.Timeout < time.Second {
		return invalid("CALCULATION_TIMEOUT", "must be at least 1s")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return invalid("LOG_LEVEL", "must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return invalid("LOG_FORMAT", "must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
