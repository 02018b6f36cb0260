// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package wal

import (
	"time"
)

// Config holds spool configuration. The server fills it from the wal
// section of config.Config; BadgerDB tuning keeps DefaultConfig values.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Should be on a durable filesystem (not tmpfs).
	Path string

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// RetryInterval is the time between retry loop iterations.
	RetryInterval time.Duration

	// MaxRetries is the maximum number of publish attempts for an entry
	// before it is dropped.
	MaxRetries int

	// RetryBackoff is the initial backoff duration for exponential backoff.
	RetryBackoff time.Duration

	// CompactInterval is the time between compaction runs.
	CompactInterval time.Duration

	// EntryTTL is the time-to-live for unconfirmed entries.
	EntryTTL time.Duration

	// LeaseDuration is how long a processing lease is held before expiring.
	// A crashed holder's lease lapses and the entry becomes claimable again.
	LeaseDuration time.Duration

	// ReplayRate caps retry loop republishes per second.
	ReplayRate float64

	// ReplayBurst is the number of republishes allowed above ReplayRate.
	ReplayBurst int

	// BadgerDB tuning
	MemTableSize     int64
	ValueLogFileSize int64
	NumCompactors    int
	Compression      bool

	// GCRatio is the ratio for value log garbage collection.
	GCRatio float64

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// DefaultConfig returns a Config with durability-first defaults. Audit
// envelopes are small, so the memtable and value log are sized down from
// BadgerDB's defaults.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/wal",
		SyncWrites:       true,
		RetryInterval:    30 * time.Second,
		MaxRetries:       100,
		RetryBackoff:     5 * time.Second,
		CompactInterval:  1 * time.Hour,
		EntryTTL:         168 * time.Hour, // 7 days
		LeaseDuration:    2 * time.Minute,
		ReplayRate:       200,
		ReplayBurst:      50,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          0.5,
		CloseTimeout:     30 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Path == "" {
		return &ConfigError{Field: "Path", Message: "WAL path is required"}
	}

	if c.RetryInterval < time.Second {
		return &ConfigError{Field: "RetryInterval", Message: "must be at least 1 second"}
	}

	if c.MaxRetries < 1 {
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	}

	if c.RetryBackoff < time.Second {
		return &ConfigError{Field: "RetryBackoff", Message: "must be at least 1 second"}
	}

	if c.CompactInterval < time.Minute {
		return &ConfigError{Field: "CompactInterval", Message: "must be at least 1 minute"}
	}

	if c.EntryTTL < time.Hour {
		return &ConfigError{Field: "EntryTTL", Message: "must be at least 1 hour"}
	}

	if c.MemTableSize < 1024*1024 { // 1MB minimum
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}

	if c.ValueLogFileSize < 1024*1024 { // 1MB minimum
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}

	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}

	if c.LeaseDuration < 10*time.Second {
		return &ConfigError{Field: "LeaseDuration", Message: "must be at least 10 seconds"}
	}

	if c.ReplayRate <= 0 {
		return &ConfigError{Field: "ReplayRate", Message: "must be positive"}
	}

	if c.ReplayBurst < 1 {
		return &ConfigError{Field: "ReplayBurst", Message: "must be at least 1"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "WAL config error: " + e.Field + ": " + e.Message
}
