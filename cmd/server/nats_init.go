// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/auditwire/internal/api"
	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/eventprocessor"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/supervisor"
	"github.com/tomtom215/auditwire/internal/supervisor/services"
)

// natsComponents holds the broker side of the audit pipeline.
type natsComponents struct {
	server     *eventprocessor.EmbeddedServer
	natsConn   *natsgo.Conn
	stream     *eventprocessor.StreamInitializer
	publisher  *eventprocessor.Publisher
	broker     *eventprocessor.BrokerDeliverer
	spool      *spoolComponents
	subscriber *eventprocessor.Subscriber
	consumer   *eventprocessor.StoreConsumer
}

// serverConfigFrom builds the embedded server settings. The embedded server
// always listens on 127.0.0.1:4222.
func serverConfigFrom(c *config.NATSConfig) eventprocessor.ServerConfig {
	cfg := eventprocessor.DefaultServerConfig()
	if c.StoreDir != "" {
		cfg.StoreDir = c.StoreDir
	}
	if c.MaxMemory > 0 {
		cfg.JetStreamMaxMem = c.MaxMemory
	}
	if c.MaxStore > 0 {
		cfg.JetStreamMaxStore = c.MaxStore
	}
	cfg.Username = c.Username
	cfg.Password = c.Password
	return cfg
}

// subscriberConfigFrom overlays the configured consumer settings on the
// package defaults.
func subscriberConfigFrom(url string, c *config.NATSConfig) eventprocessor.SubscriberConfig {
	cfg := eventprocessor.DefaultSubscriberConfig(url)
	cfg.Username = c.Username
	cfg.Password = c.Password
	if c.DurableName != "" {
		cfg.DurableName = c.DurableName
	}
	if c.QueueGroup != "" {
		cfg.QueueGroup = c.QueueGroup
	}
	if c.SubscribersCount > 0 {
		cfg.SubscribersCount = c.SubscribersCount
	}
	if c.AckWaitTimeout > 0 {
		cfg.AckWaitTimeout = c.AckWaitTimeout
	}
	if c.MaxDeliver != 0 {
		cfg.MaxDeliver = c.MaxDeliver
	}
	if c.ReconnectWait > 0 {
		cfg.ReconnectWait = c.ReconnectWait
	}
	return cfg
}

// initNATS connects the audit pipeline to the user_events stream. It returns
// nil, nil when NATS is disabled; the caller then delivers straight into the
// store.
//
// Order:
//  1. Embedded server (optional)
//  2. Connection and stream
//  3. Watermill publisher behind a circuit breaker
//  4. WAL spool (optional)
//  5. Durable subscriber and store consumer (optional)
func initNATS(ctx context.Context, cfg *config.Config, store audit.Store) (*natsComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled (NATS_ENABLED=false), audit events go straight to the store")
		return nil, nil
	}

	logging.Info().Msg("Initializing NATS audit pipeline...")
	c := &natsComponents{}

	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := serverConfigFrom(&cfg.NATS)
		server, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		c.server = server
		natsURL = server.ClientURL()
	} else {
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	opts := []natsgo.Option{
		natsgo.Name("auditwire-stream-init"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsgo.UserInfo(cfg.NATS.Username, cfg.NATS.Password))
	}
	nc, err := natsgo.Connect(natsURL, opts...)
	if err != nil {
		c.shutdown(ctx)
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.natsConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		c.shutdown(ctx)
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := eventprocessor.DefaultStreamConfig()
	c.stream, err = eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		c.shutdown(ctx)
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	stream, err := c.stream.EnsureStream(ctx)
	if err != nil {
		c.shutdown(ctx)
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}
	info := stream.CachedInfo()
	logging.Info().
		Str("name", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("max_age", info.Config.MaxAge).
		Msg("JetStream stream ready")

	wmLogger := eventprocessor.NewWatermillLogger()

	pubCfg := eventprocessor.DefaultPublisherConfig(natsURL)
	pubCfg.Username = cfg.NATS.Username
	pubCfg.Password = cfg.NATS.Password
	if cfg.NATS.ReconnectWait > 0 {
		pubCfg.ReconnectWait = cfg.NATS.ReconnectWait
	}
	c.publisher, err = eventprocessor.NewPublisher(pubCfg, wmLogger)
	if err != nil {
		c.shutdown(ctx)
		return nil, err
	}
	c.publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("nats-publisher")))

	c.broker, err = eventprocessor.NewBrokerDeliverer(c.publisher)
	if err != nil {
		c.shutdown(ctx)
		return nil, err
	}

	c.spool, err = initSpool(ctx, &cfg.WAL, c.broker)
	if err != nil {
		c.shutdown(ctx)
		return nil, err
	}

	if cfg.Audit.ConsumerEnabled {
		subCfg := subscriberConfigFrom(natsURL, &cfg.NATS)
		c.subscriber, err = eventprocessor.NewSubscriber(&subCfg, wmLogger)
		if err != nil {
			c.shutdown(ctx)
			return nil, err
		}
		c.consumer, err = eventprocessor.NewStoreConsumer(c.subscriber, store)
		if err != nil {
			c.shutdown(ctx)
			return nil, err
		}
	} else {
		logging.Info().Msg("Store consumer disabled (AUDIT_CONSUMER_ENABLED=false)")
	}

	logging.Info().Bool("wal", c.spool != nil).Bool("consumer", c.consumer != nil).Msg("NATS audit pipeline initialized")
	return c, nil
}

// Deliverer returns the audit deliverer: the spool when the WAL is enabled,
// the broker otherwise.
func (c *natsComponents) Deliverer() audit.Deliverer {
	if c.spool != nil {
		return c.spool.deliverer
	}
	return c.broker
}

// SpoolStats reports the WAL when it is enabled. The interface is nil
// otherwise so the stats endpoint can leave the section out.
func (c *natsComponents) SpoolStats() api.SpoolStatsSource {
	if c == nil || c.spool == nil {
		return nil
	}
	return c.spool
}

// addServices puts the spool loops and the store consumer under supervision.
func (c *natsComponents) addServices(tree *supervisor.SupervisorTree, shutdownTimeout time.Duration) {
	c.spool.addServices(tree)
	if c.consumer != nil {
		tree.AddMessagingService(services.NewComponentService("audit-store-consumer", c.consumer, shutdownTimeout))
		logging.Info().Msg("Audit store consumer added to supervisor tree")
	}
}

// registerHealth adds the broker checks. The stream is critical: without it
// no event leaves the process.
func (c *natsComponents) registerHealth(h *eventprocessor.HealthChecker) {
	h.Register("nats_stream", true, func(ctx context.Context) error {
		if !c.stream.IsHealthy(ctx) {
			return fmt.Errorf("stream %s unavailable", eventprocessor.QueueName)
		}
		return nil
	})
	h.Register("nats_connection", false, func(context.Context) error {
		if !c.natsConn.IsConnected() {
			return errors.New("not connected")
		}
		return nil
	})
}

// shutdown releases the broker side after the supervisor tree and the audit
// publisher have stopped.
//
// Order:
//  1. Subscriber
//  2. Publisher
//  3. WAL
//  4. NATS connection
//  5. Embedded server last
func (c *natsComponents) shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS subscriber")
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS publisher")
		}
	}
	c.spool.close()
	if c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
	logging.Info().Msg("NATS audit pipeline stopped")
}
