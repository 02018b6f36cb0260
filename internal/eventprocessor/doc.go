// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package eventprocessor is the broker channel of the audit pipeline, built
// on Watermill and NATS JetStream.
//
// Every audit envelope travels through a single durable queue:
//
//	┌──────────────┐   ┌──────────────────┐   ┌──────────────┐   ┌─────────────┐
//	│ audit worker │──▶│ JetStream stream │──▶│StoreConsumer │──▶│ audit.Store │
//	│ (Deliverer)  │   │   user_events    │   │ (ack / nack) │   │  (DuckDB)   │
//	└──────────────┘   └──────────────────┘   └──────────────┘   └─────────────┘
//
// The stream and its subject are both named user_events. There is no fan-out
// topology.
//
// # Producer side
//
// BrokerDeliverer implements audit.Deliverer. It encodes the envelope with the
// audit wire codec and publishes it with metadata event_type and
// schema_version. The message UUID is sent as Nats-Msg-Id. Publisher owns one
// reconnecting connection and wraps each publish in a gobreaker circuit
// breaker, so an unreachable broker fails fast instead of stalling workers.
// Failures wrap audit.ErrTransientDelivery or audit.ErrSerialization.
//
// SpoolDeliverer puts the WAL in front of the broker. The envelope is written
// to BadgerDB first and confirmed after the publish succeeds; on failure the
// entry stays pending and the WAL retry loop republishes it through
// BrokerDeliverer.PublishEntry, reusing the entry ID as the message ID.
//
// # Consumer side
//
// StoreConsumer binds a durable JetStream consumer to user_events. A message
// is acked after the store append succeeds and nacked when it fails. An
// undecodable payload is acked and logged as a poison message.
//
// # Usage Example
//
//	srv, _ := eventprocessor.NewEmbeddedServer(&serverCfg)
//	nc, _ := nats.Connect(srv.ClientURL())
//	js, _ := jetstream.New(nc)
//
//	streamCfg := eventprocessor.DefaultStreamConfig()
//	init, _ := eventprocessor.NewStreamInitializer(js, &streamCfg)
//	if _, err := init.EnsureStream(ctx); err != nil {
//	    return err
//	}
//
//	pub, _ := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(srv.ClientURL()), nil)
//	pub.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("audit-publish")))
//	deliverer, _ := eventprocessor.NewBrokerDeliverer(pub)
//	publisher, _ := audit.NewPublisher(deliverer, audit.DefaultPublisherConfig())
package eventprocessor
