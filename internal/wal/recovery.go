// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/auditwire/internal/logging"
)

// Publisher sends a spooled entry to the broker.
type Publisher interface {
	PublishEntry(ctx context.Context, entry *Entry) error
}

// PublisherFunc is a function type that implements Publisher.
type PublisherFunc func(ctx context.Context, entry *Entry) error

// PublishEntry implements Publisher.
func (f PublisherFunc) PublishEntry(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// RecoveryResult contains the results of a recovery operation.
type RecoveryResult struct {
	TotalPending int
	Recovered    int
	Failed       int
	Expired      int
	MaxRetried   int

	// Skipped counts entries leased by another processor.
	Skipped int

	Duration time.Duration
}

// entryOutcome is the result of processing a single pending entry.
type entryOutcome int

const (
	outcomePublished entryOutcome = iota
	outcomeFailed
	outcomeExpired
	outcomeMaxRetried
	outcomeSkipped
)

func (r *RecoveryResult) add(o entryOutcome) {
	switch o {
	case outcomePublished:
		r.Recovered++
	case outcomeFailed:
		r.Failed++
	case outcomeExpired:
		r.Expired++
	case outcomeMaxRetried:
		r.MaxRetried++
	case outcomeSkipped:
		r.Skipped++
	}
}

// RecoverPending publishes every pending entry left by a previous run,
// ignoring backoff. It is safe to call repeatedly; leased entries are
// skipped.
func (w *BadgerWAL) RecoverPending(ctx context.Context, publisher Publisher) (*RecoveryResult, error) {
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}

	start := time.Now()
	result := &RecoveryResult{}

	entries, err := w.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending entries: %w", err)
	}

	result.TotalPending = len(entries)
	if result.TotalPending == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	logging.Info().Int("pending_entries", result.TotalPending).Msg("WAL recovery found pending entries")
	spoolRecovered.Add(float64(result.TotalPending))

	leaseHolder := "recovery-" + uuid.NewString()[:8]
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.add(w.processEntry(ctx, entry, publisher, leaseHolder, nil))
	}

	result.Duration = time.Since(start)
	logging.Info().
		Int("recovered", result.Recovered).
		Int("failed", result.Failed).
		Int("expired", result.Expired).
		Int("max_retried", result.MaxRetried).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("WAL recovery complete")

	return result, nil
}

// processEntry claims an entry and publishes it, or drops it when it has
// expired or used up its attempts. A non-nil ready that returns false
// leaves the entry for a later pass.
//
// No release is needed on the success paths: Confirm and DeleteEntry remove
// the pending key, and UpdateAttempt clears the lease.
func (w *BadgerWAL) processEntry(ctx context.Context, entry *Entry, publisher Publisher, leaseHolder string, ready func(*Entry) bool) entryOutcome {
	claimed, err := w.TryClaimEntryDurable(ctx, entry.ID, leaseHolder)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL: error claiming entry")
		}
		return outcomeSkipped
	}
	if !claimed {
		return outcomeSkipped
	}

	if w.now().Sub(entry.CreatedAt) > w.config.EntryTTL {
		logging.Warn().
			Str("entry_id", entry.ID).
			Time("created_at", entry.CreatedAt).
			Msg("WAL: entry expired before delivery, removing")
		if err := w.DeleteEntry(ctx, entry.ID); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL: failed to delete expired entry")
		}
		countDropped(dropExpired)
		return outcomeExpired
	}

	if entry.Attempts >= w.config.MaxRetries {
		logging.Warn().
			Str("entry_id", entry.ID).
			Int("attempts", entry.Attempts).
			Int("max_retries", w.config.MaxRetries).
			Msg("WAL: entry exceeded max retries, removing")
		if err := w.DeleteEntry(ctx, entry.ID); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL: failed to delete max-retried entry")
		}
		countDropped(dropRetriesExhausted)
		return outcomeMaxRetried
	}

	if ready != nil && !ready(entry) {
		if err := w.ReleaseLeaseDurable(ctx, entry.ID); err != nil {
			logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("WAL: error releasing lease")
		}
		return outcomeSkipped
	}

	if err := publisher.PublishEntry(ctx, entry); err != nil {
		logging.Warn().
			Err(err).
			Str("entry_id", entry.ID).
			Int("attempt", entry.Attempts+1).
			Msg("WAL: failed to publish entry")
		if updateErr := w.UpdateAttempt(ctx, entry.ID, err.Error()); updateErr != nil && !errors.Is(updateErr, ErrEntryNotFound) {
			logging.Error().Err(updateErr).Str("entry_id", entry.ID).Msg("WAL: failed to update attempt")
		}
		RecordPublishFailure()
		return outcomeFailed
	}

	if err := w.Confirm(ctx, entry.ID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return outcomePublished
		}
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL: failed to confirm entry")
		return outcomeFailed
	}
	return outcomePublished
}
