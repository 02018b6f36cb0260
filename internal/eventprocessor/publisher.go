// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package eventprocessor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/metrics"
	"github.com/tomtom215/auditwire/internal/wal"
)

// MessagePublisher publishes one Watermill message to a topic.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// Publisher wraps the Watermill NATS publisher with a circuit breaker. It owns
// one long-lived connection that reconnects on its own; every delivery reuses
// it.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// natsOptions returns the connection options shared by publisher and
// subscriber.
func natsOptions(role, username, password string, maxReconnects int, reconnectWait time.Duration, logger watermill.LoggerAdapter) []natsgo.Option {
	opts := []natsgo.Option{
		natsgo.Name("auditwire-" + role),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, watermill.LogFields{"role": role})
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"role": role,
				"url":  nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{"role": role}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logger.Error("NATS error", err, fields)
		}),
	}
	if username != "" {
		opts = append(opts, natsgo.UserInfo(username, password))
	}
	return opts
}

// NewPublisher creates a Watermill NATS publisher for JetStream. The stream
// must already exist; see StreamInitializer.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	natsOpts := natsOptions("publisher", cfg.Username, cfg.Password, cfg.MaxReconnects, cfg.ReconnectWait, logger)
	natsOpts = append(natsOpts, natsgo.ReconnectBufSize(cfg.ReconnectBuffer))

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		logger:    logger,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends a message to topic and waits for the JetStream ack. The
// message UUID becomes the Nats-Msg-Id unless one is already set. While the
// breaker is open the call fails fast with gobreaker.ErrOpenState.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	if err == nil {
		metrics.RecordNATSPublish()
	}
	return err
}

// Close shuts down the publisher and releases its connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}

// EnvelopeMetadata returns the message metadata carried alongside an
// encoded envelope.
func EnvelopeMetadata(env *audit.Envelope) map[string]string {
	return map[string]string{
		MetadataEventType:     string(env.Type),
		MetadataSchemaVersion: strconv.Itoa(audit.SchemaVersion),
	}
}

// NewEnvelopeMessage encodes env into a Watermill message with a fresh UUID.
func NewEnvelopeMessage(env *audit.Envelope) (*message.Message, error) {
	payload, err := audit.Marshal(env)
	if err != nil {
		return nil, err
	}
	return newMessage(uuid.NewString(), payload, EnvelopeMetadata(env)), nil
}

func newMessage(id string, payload []byte, metadata map[string]string) *message.Message {
	msg := message.NewMessage(id, payload)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	return msg
}

// BrokerDeliverer delivers audit envelopes to the user_events queue. It
// implements audit.Deliverer for direct delivery and wal.Publisher for
// republishing spooled entries.
type BrokerDeliverer struct {
	publisher MessagePublisher
}

// NewBrokerDeliverer creates a deliverer on top of publisher.
func NewBrokerDeliverer(publisher MessagePublisher) (*BrokerDeliverer, error) {
	if publisher == nil {
		return nil, ErrNilPublisher
	}
	return &BrokerDeliverer{publisher: publisher}, nil
}

// Deliver encodes env and publishes it. Codec failures wrap
// audit.ErrSerialization; every broker failure wraps
// audit.ErrTransientDelivery.
func (d *BrokerDeliverer) Deliver(ctx context.Context, env *audit.Envelope) error {
	msg, err := NewEnvelopeMessage(env)
	if err != nil {
		return err
	}
	return d.publish(ctx, msg)
}

// PublishEntry republishes a spooled entry. The entry ID is reused as the
// message ID so that JetStream drops a copy that already reached the stream
// inside the duplicate window.
func (d *BrokerDeliverer) PublishEntry(ctx context.Context, entry *wal.Entry) error {
	return d.publish(ctx, newMessage(entry.ID, entry.Payload, entry.Metadata))
}

func (d *BrokerDeliverer) publish(ctx context.Context, msg *message.Message) error {
	if err := d.publisher.Publish(ctx, QueueName, msg); err != nil {
		logging.Debug().Err(err).Str("message_uuid", msg.UUID).Msg("Broker publish failed")
		return fmt.Errorf("%w: %v", audit.ErrTransientDelivery, err)
	}
	return nil
}
