// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/tomtom215/auditwire/internal/logging"
)

// ErrInternal marks a DuckDB INTERNAL error. These are engine bugs and are
// never retried.
var ErrInternal = errors.New("duckdb internal error")

// maxConflictRetries bounds RetryOnConflict.
const maxConflictRetries = 3

// configureConnectionPool sizes the pool. In-memory databases keep their
// connections alive so the catalog is never dropped with the last idle one.
func (db *DB) configureConnectionPool(inMemory bool) {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	if inMemory {
		db.conn.SetConnMaxLifetime(0)
		db.conn.SetConnMaxIdleTime(0)
		return
	}
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// RetryOnConflict runs fn and retries it with a short exponential backoff
// (1ms, 2ms) while DuckDB reports a transaction conflict. Internal errors
// fail immediately, wrapped with ErrInternal.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}
		if IsInternalError(err) {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}
		if !IsTransactionConflict(err) {
			return err
		}
		if attempt == maxConflictRetries-1 {
			break
		}

		backoff := time.Millisecond * time.Duration(1<<uint(attempt))
		logging.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying after transaction conflict")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// IsTransactionConflict reports whether err is a DuckDB write-write conflict.
func IsTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "cannot update a table that has been altered")
}

// IsInternalError reports whether err is a DuckDB INTERNAL error.
func IsInternalError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "INTERNAL Error")
}

// IsConstraintViolation reports whether err is a primary key or unique
// constraint failure.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") ||
		strings.Contains(msg, "violates primary key constraint") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "Duplicate key")
}

// IsConnectionError reports whether err means the pool lost its database.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is closed")
}

// closeQuietly closes a resource in error paths where the close error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
