// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package wal

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/auditwire/internal/logging"
)

// maxBackoff caps the exponential retry delay.
const maxBackoff = 5 * time.Minute

// publishTimeout bounds a single republish attempt.
const publishTimeout = 10 * time.Second

// RetryLoop republishes pending entries in the background. Its first pass
// runs immediately on Start and recovers entries left by a crashed process.
type RetryLoop struct {
	wal         *BadgerWAL
	publisher   Publisher
	config      Config
	leaseHolder string
	limiter     *rate.Limiter

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRetryLoop creates a new background retry loop.
func NewRetryLoop(wal *BadgerWAL, publisher Publisher) *RetryLoop {
	return &RetryLoop{
		wal:         wal,
		publisher:   publisher,
		config:      wal.Config(),
		leaseHolder: "retry-loop-" + uuid.NewString()[:8],
		limiter:     newReplayLimiter(wal.Config()),
	}
}

// Start begins the retry loop. It returns immediately; the loop runs until
// Stop is called or ctx is canceled.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(loopCtx, r.done)

	logging.Info().
		Dur("interval", r.config.RetryInterval).
		Int("max_retries", r.config.MaxRetries).
		Msg("WAL retry loop started")
	return nil
}

// Stop stops the loop and waits for the current pass to finish.
func (r *RetryLoop) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	done := r.done
	r.running = false
	r.mu.Unlock()

	<-done
	logging.Info().Msg("WAL retry loop stopped")
}

// IsRunning returns whether the retry loop is active.
func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RetryLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if _, err := r.wal.RecoverPending(ctx, r.publisher); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("WAL recovery failed")
	}

	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.retryPending(ctx)
		}
	}
}

// retryPending makes one pass over the pending entries, honoring backoff.
func (r *RetryLoop) retryPending(ctx context.Context) {
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Msg("WAL retry: failed to get pending entries")
		}
		return
	}
	if len(entries) == 0 {
		return
	}

	var result RecoveryResult
	result.TotalPending = len(entries)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		result.add(r.wal.processEntry(ctx, entry, r.timedPublisher(), r.leaseHolder, r.isReadyForRetry))
	}

	if result.Recovered > 0 || result.Failed > 0 || result.Expired > 0 || result.MaxRetried > 0 {
		logging.Info().
			Int("succeeded", result.Recovered).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Int("max_retried", result.MaxRetried).
			Msg("WAL retry complete")
	}
}

// newReplayLimiter paces republishes. A non-positive rate means no limit.
func newReplayLimiter(cfg Config) *rate.Limiter {
	if cfg.ReplayRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.ReplayBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.ReplayRate), burst)
}

func (r *RetryLoop) timedPublisher() Publisher {
	return PublisherFunc(func(ctx context.Context, entry *Entry) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return r.publisher.PublishEntry(pubCtx, entry)
	})
}

// isReadyForRetry checks if enough time has passed since last attempt.
func (r *RetryLoop) isReadyForRetry(entry *Entry) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return r.wal.now().Sub(entry.LastAttemptAt) >= r.calculateBackoff(entry.Attempts)
}

// calculateBackoff returns base * 2^attempts, capped at maxBackoff.
func (r *RetryLoop) calculateBackoff(attempts int) time.Duration {
	if attempts > 50 {
		return maxBackoff
	}

	backoff := time.Duration(float64(r.config.RetryBackoff) * math.Pow(2, float64(attempts)))
	if backoff < 0 || backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
