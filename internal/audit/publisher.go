// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/metrics"
)

// QueueFullPolicy decides what happens to an envelope when the queue is full.
type QueueFullPolicy string

const (
	// PolicyDropNewest discards the envelope being emitted.
	PolicyDropNewest QueueFullPolicy = "drop_newest"

	// PolicyDropOldest evicts the oldest queued envelope to make room.
	PolicyDropOldest QueueFullPolicy = "drop_oldest"

	// PolicyBlock waits up to BlockTimeout for room, then discards the
	// envelope being emitted.
	PolicyBlock QueueFullPolicy = "block"
)

// ParseQueueFullPolicy converts a configuration string into a policy.
func ParseQueueFullPolicy(s string) (QueueFullPolicy, error) {
	switch p := QueueFullPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyDropNewest, PolicyDropOldest, PolicyBlock:
		return p, nil
	case "":
		return PolicyDropNewest, nil
	default:
		return "", fmt.Errorf("unknown queue full policy %q", s)
	}
}

// PublisherConfig holds configuration for the audit publisher.
type PublisherConfig struct {
	// QueueSize is the capacity of the bounded envelope queue.
	QueueSize int

	// Workers is the number of delivery goroutines.
	Workers int

	// Policy is applied when the queue is full.
	Policy QueueFullPolicy

	// BlockTimeout bounds how long Emit may wait under PolicyBlock.
	BlockTimeout time.Duration

	// DeliveryTimeout bounds one delivery attempt.
	DeliveryTimeout time.Duration
}

// DefaultPublisherConfig returns production defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		QueueSize:       1024,
		Workers:         4,
		Policy:          PolicyDropNewest,
		BlockTimeout:    50 * time.Millisecond,
		DeliveryTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *PublisherConfig) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := ParseQueueFullPolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.Policy == PolicyBlock && c.BlockTimeout <= 0 {
		return fmt.Errorf("block timeout must be positive with the block policy")
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive, got %v", c.DeliveryTimeout)
	}
	return nil
}

// PublisherStats is a point-in-time snapshot of publisher counters.
type PublisherStats struct {
	Enqueued      int64 `json:"enqueued"`
	Delivered     int64 `json:"delivered"`
	Failed        int64 `json:"failed"`
	Dropped       int64 `json:"dropped"`
	QueueDepth    int   `json:"queue_depth"`
	QueueCapacity int   `json:"queue_capacity"`
	Workers       int   `json:"workers"`
	Running       bool  `json:"running"`
}

// Publisher accepts audit events from request handlers and hands them to a
// fixed pool of delivery workers through a bounded queue.
//
// Emit never performs broker I/O. Delivery failures are logged and counted,
// never returned to the caller.
type Publisher struct {
	deliverer Deliverer
	config    PublisherConfig
	queue     chan *Envelope
	now       func() time.Time

	mu      sync.RWMutex
	closed  bool
	running atomic.Bool

	workerCtx    context.Context
	workerCancel context.CancelFunc
	wg           sync.WaitGroup

	enqueued  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewPublisher creates a publisher. Call Start to launch the workers.
func NewPublisher(deliverer Deliverer, cfg PublisherConfig) (*Publisher, error) {
	if deliverer == nil {
		return nil, errors.New("deliverer is required")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyDropNewest
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid publisher config: %w", err)
	}

	return &Publisher{
		deliverer: deliverer,
		config:    cfg,
		queue:     make(chan *Envelope, cfg.QueueSize),
		now:       time.Now,
	}, nil
}

// Emit records that an auditable action happened now. The timestamp is
// captured before anything else so it reflects detection time.
//
// Emit returns an error only for schema violations and after Shutdown.
// A full queue is handled by the configured policy and is not an error.
func (p *Publisher) Emit(eventType EventType, actor, source, target string) error {
	at := p.now()

	env, err := NewEnvelope(eventType, actor, source, target, at)
	if err != nil {
		return err
	}
	return p.Enqueue(env)
}

// Enqueue hands a prebuilt envelope to the delivery workers.
func (p *Publisher) Enqueue(env *Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope", ErrInvalidEnvelope)
	}

	// The read lock keeps Shutdown from closing the queue mid-send.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.RecordAuditDrop("closed")
		return ErrPublisherClosed
	}

	if p.offer(env) {
		p.enqueued.Add(1)
		metrics.RecordAuditEmit(string(env.Type))
		metrics.UpdateAuditQueueDepth(len(p.queue))
	}
	return nil
}

// offer applies the queue-full policy. It reports whether env was queued.
func (p *Publisher) offer(env *Envelope) bool {
	select {
	case p.queue <- env:
		return true
	default:
	}

	switch p.config.Policy {
	case PolicyDropOldest:
		for {
			select {
			case evicted := <-p.queue:
				p.recordDrop(evicted, string(PolicyDropOldest))
			default:
			}
			select {
			case p.queue <- env:
				return true
			default:
			}
		}

	case PolicyBlock:
		timer := time.NewTimer(p.config.BlockTimeout)
		defer timer.Stop()
		select {
		case p.queue <- env:
			return true
		case <-timer.C:
			p.recordDrop(env, "block_timeout")
			return false
		}

	default:
		p.recordDrop(env, string(PolicyDropNewest))
		return false
	}
}

func (p *Publisher) recordDrop(env *Envelope, reason string) {
	p.dropped.Add(1)
	metrics.RecordAuditDrop(reason)
	logging.Warn().
		Err(ErrQueueFull).
		Str("reason", reason).
		Str("event_type", string(env.Type)).
		Str("actor", env.Actor).
		Int("queue_capacity", cap(p.queue)).
		Msg("Audit event dropped")
}

// Start launches the delivery workers. Workers outlive ctx; they stop only
// when Shutdown drains the queue.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}
	if p.running.Load() {
		return errors.New("audit publisher already running")
	}

	p.workerCtx, p.workerCancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.running.Store(true)

	logging.Info().
		Int("workers", p.config.Workers).
		Int("queue_size", p.config.QueueSize).
		Str("policy", string(p.config.Policy)).
		Msg("Audit publisher started")
	return nil
}

// Shutdown stops intake and waits for the workers to drain the queue. When
// ctx expires first, in-flight deliveries are cancelled and ctx.Err() is
// returned.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	if !p.running.Load() {
		if n := len(p.queue); n > 0 {
			logging.Warn().Int("pending", n).Msg("Audit publisher shut down before start, pending events discarded")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		p.workerCancel()
		<-done
		err = ctx.Err()
	}
	p.workerCancel()
	p.running.Store(false)

	stats := p.Stats()
	logging.Info().
		Int64("delivered", stats.Delivered).
		Int64("failed", stats.Failed).
		Int64("dropped", stats.Dropped).
		Msg("Audit publisher stopped")
	return err
}

// IsRunning reports whether the workers are active.
func (p *Publisher) IsRunning() bool {
	return p.running.Load()
}

// Stats returns current counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Enqueued:      p.enqueued.Load(),
		Delivered:     p.delivered.Load(),
		Failed:        p.failed.Load(),
		Dropped:       p.dropped.Load(),
		QueueDepth:    len(p.queue),
		QueueCapacity: cap(p.queue),
		Workers:       p.config.Workers,
		Running:       p.running.Load(),
	}
}

func (p *Publisher) worker(id int) {
	defer p.wg.Done()
	for env := range p.queue {
		metrics.UpdateAuditQueueDepth(len(p.queue))
		p.deliver(id, env)
	}
}

// deliver runs exactly one delivery attempt and swallows its outcome.
func (p *Publisher) deliver(workerID int, env *Envelope) {
	ctx, cancel := context.WithTimeout(p.workerCtx, p.config.DeliveryTimeout)
	defer cancel()

	start := time.Now()
	err := p.safeDeliver(ctx, env)
	metrics.RecordAuditDelivery(time.Since(start), err)

	if err != nil {
		p.failed.Add(1)
		logging.Warn().
			Err(err).
			Int("worker", workerID).
			Str("event_type", string(env.Type)).
			Str("actor", env.Actor).
			Str("target", env.Target).
			Time("occurred_at", env.OccurredAt).
			Msg("Audit event delivery failed, event dropped")
		return
	}
	p.delivered.Add(1)
}

func (p *Publisher) safeDeliver(ctx context.Context, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic in audit deliverer")
			err = fmt.Errorf("%w: deliverer panic: %v", ErrTransientDelivery, r)
		}
	}()
	return p.deliverer.Deliver(ctx, env)
}
