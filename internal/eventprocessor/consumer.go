// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/metrics"
)

// ConsumerStats holds runtime statistics for monitoring.
type ConsumerStats struct {
	MessagesReceived int64     `json:"messages_received"`
	Persisted        int64     `json:"persisted"`
	PoisonMessages   int64     `json:"poison_messages"`
	StoreFailures    int64     `json:"store_failures"`
	LastMessageTime  time.Time `json:"last_message_time"`
	Running          bool      `json:"running"`
}

// StoreConsumer reads envelopes from the user_events queue and appends them
// to the audit store.
//
// A message is acked once the store has it. A store failure nacks the message
// so the broker redelivers it. A payload that cannot be decoded is acked and
// logged: redelivery would never succeed.
type StoreConsumer struct {
	source MessageSource
	store  audit.Store
	topic  string

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool

	received      atomic.Int64
	persisted     atomic.Int64
	poison        atomic.Int64
	storeFailures atomic.Int64
	lastMessage   atomic.Int64 // unix nanos
}

// NewStoreConsumer creates a consumer that appends to store.
func NewStoreConsumer(source MessageSource, store audit.Store) (*StoreConsumer, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if store == nil {
		return nil, fmt.Errorf("audit store required")
	}
	return &StoreConsumer{
		source: source,
		store:  store,
		topic:  QueueName,
	}, nil
}

// Start subscribes and processes messages in a goroutine until Shutdown or
// until ctx is canceled.
func (c *StoreConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return ErrConsumerRunning
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	messages, err := c.source.Subscribe(consumeCtx, c.topic)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	c.cancel = cancel
	c.done = make(chan struct{})
	c.running.Store(true)

	go c.consumeLoop(consumeCtx, messages, c.done)

	logging.Info().Str("topic", c.topic).Msg("Audit store consumer started")
	return nil
}

// Shutdown stops consumption and waits for the in-flight message, bounded by
// ctx. Unacked messages stay in the broker.
func (c *StoreConsumer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		logging.Info().Msg("Audit store consumer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns whether the consumer is currently running.
func (c *StoreConsumer) IsRunning() bool {
	return c.running.Load()
}

// Stats returns current runtime statistics.
func (c *StoreConsumer) Stats() ConsumerStats {
	var last time.Time
	if n := c.lastMessage.Load(); n != 0 {
		last = time.Unix(0, n).UTC()
	}
	return ConsumerStats{
		MessagesReceived: c.received.Load(),
		Persisted:        c.persisted.Load(),
		PoisonMessages:   c.poison.Load(),
		StoreFailures:    c.storeFailures.Load(),
		LastMessageTime:  last,
		Running:          c.running.Load(),
	}
}

func (c *StoreConsumer) consumeLoop(ctx context.Context, messages <-chan *message.Message, done chan struct{}) {
	defer func() {
		c.running.Store(false)
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.processMessage(ctx, msg)
		}
	}
}

// processMessage handles a single message and always settles it with
// exactly one Ack or Nack.
func (c *StoreConsumer) processMessage(ctx context.Context, msg *message.Message) {
	c.received.Add(1)
	c.lastMessage.Store(time.Now().UnixNano())

	if v := msg.Metadata.Get(MetadataSchemaVersion); v != "" && v != strconv.Itoa(audit.SchemaVersion) {
		logging.Debug().
			Str("message_uuid", msg.UUID).
			Str("schema_version", v).
			Msg("Consuming envelope from a different schema version")
	}

	env, err := audit.Unmarshal(msg.Payload)
	if err != nil {
		c.poison.Add(1)
		metrics.RecordAuditConsumeFailure("decode")
		logging.Error().
			Err(err).
			Str("message_uuid", msg.UUID).
			Int("payload_bytes", len(msg.Payload)).
			Msg("Undecodable audit message, acknowledging to stop redelivery")
		msg.Ack()
		return
	}

	if err := c.store.Append(ctx, env); err != nil {
		c.storeFailures.Add(1)
		reason := "store"
		if errors.Is(err, context.Canceled) {
			reason = "canceled"
		}
		metrics.RecordAuditConsumeFailure(reason)
		logging.Warn().
			Err(err).
			Str("message_uuid", msg.UUID).
			Str("event_type", string(env.Type)).
			Str("actor", env.Actor).
			Msg("Audit store append failed, message will be redelivered")
		msg.Nack()
		return
	}

	c.persisted.Add(1)
	metrics.RecordAuditPersisted(string(env.Type))
	msg.Ack()
}
