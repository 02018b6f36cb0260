// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/auditwire/internal/logging"
)

// Revocation metrics
var (
	// RevokedTokens tracks the current number of revoked, unexpired token ids.
	RevokedTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_revoked_tokens",
			Help: "Current number of revoked session tokens awaiting expiry",
		},
	)

	// RevocationsCleanedUpTotal counts entries removed once their token expired.
	RevocationsCleanedUpTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_revocations_cleaned_up_total",
			Help: "Total number of expired revocation entries removed",
		},
	)
)

// ErrRevocationListClosed indicates the list has been closed.
var ErrRevocationListClosed = errors.New("revocation list is closed")

// DefaultCleanupInterval is how often Serve drops entries for expired tokens.
const DefaultCleanupInterval = 5 * time.Minute

// RevocationList tracks logged-out token ids until the token would have
// expired anyway. Entries are kept in memory; a restart forgets them, which
// is acceptable because session tokens are short lived.
type RevocationList struct {
	mu       sync.RWMutex
	entries  map[string]time.Time // token id -> token expiry
	closed   bool
	now      func() time.Time
	interval time.Duration
}

// NewRevocationList creates an empty list that cleans up every interval
// when run under Serve. A non-positive interval uses DefaultCleanupInterval.
func NewRevocationList(interval time.Duration) *RevocationList {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &RevocationList{
		entries:  make(map[string]time.Time),
		now:      time.Now,
		interval: interval,
	}
}

// Revoke marks a token id as unusable until expiresAt.
func (l *RevocationList) Revoke(jti string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrRevocationListClosed
	}
	if !expiresAt.After(l.now()) {
		return nil // already expired, nothing to remember
	}

	l.entries[jti] = expiresAt
	RevokedTokens.Set(float64(len(l.entries)))
	return nil
}

// IsRevoked reports whether the token id was revoked and has not yet expired.
func (l *RevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	expiresAt, ok := l.entries[jti]
	return ok && l.now().Before(expiresAt)
}

// CleanupExpired removes entries whose tokens have expired.
// Returns the number of entries removed.
func (l *RevocationList) CleanupExpired() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrRevocationListClosed
	}

	count := 0
	now := l.now()
	for jti, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, jti)
			count++
		}
	}

	RevocationsCleanedUpTotal.Add(float64(count))
	RevokedTokens.Set(float64(len(l.entries)))
	return count, nil
}

// Size returns the number of entries.
func (l *RevocationList) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Close closes the list. Revoke fails afterwards; IsRevoked reports false.
func (l *RevocationList) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.entries = make(map[string]time.Time)
	RevokedTokens.Set(0)
	return nil
}

// Serve runs periodic cleanup until ctx is cancelled. It satisfies
// suture.Service so the supervisor can restart it.
func (l *RevocationList) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count, err := l.CleanupExpired()
			if err != nil {
				logging.Error().Err(err).Msg("Revocation cleanup failed")
				return err
			}
			if count > 0 {
				logging.Debug().Int("count", count).Msg("Revocation cleanup completed")
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for suture service naming.
func (l *RevocationList) String() string {
	return "revocation-cleanup"
}
