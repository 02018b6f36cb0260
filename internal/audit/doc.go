// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package audit records security-relevant account actions and makes the
// resulting trail queryable in occurrence order.
//
// # Overview
//
// Request handlers call Publisher.Emit when they detect an auditable action.
// Emit captures the timestamp, builds an Envelope and places it on a bounded
// queue. A fixed pool of workers hands each envelope to a Deliverer, which in
// production publishes to the durable "user_events" JetStream stream. A
// consumer drains that stream into a Store, and QueryService serves the trail
// to the privileged principal.
//
// # Event Types
//
// The emit-side schema is closed:
//   - user_created, user_deleted
//   - user_logged_in, failed_login_attempt, user_logged_out
//   - user_deletion_failed_unauthorized, user_deletion_failed_self_deletion
//
// NewEnvelope rejects anything else with ErrUnknownEventType. Decoding is
// lenient: a type introduced by a newer producer is kept verbatim so it
// survives a store round-trip.
//
// # Wire Format
//
// One JSON object per message:
//
//	{"username":"alice","event_type":"user_logged_in",
//	 "timestamp":"2026-01-02T03:04:05.678Z","ip_address":"10.0.0.1","target_user":""}
//
// SchemaVersion travels as message metadata, not in the body.
//
// # Queue-Full Policy
//
// The publisher queue is bounded. When it is full the configured policy
// applies:
//   - drop_newest: the envelope being emitted is discarded (default)
//   - drop_oldest: the oldest queued envelope is evicted
//   - block: Emit waits up to BlockTimeout, then discards
//
// Every drop is logged and counted in audit_events_dropped_total.
//
// # Delivery Semantics
//
// Each envelope gets exactly one delivery attempt. Failures are logged and
// swallowed; they never reach the HTTP response that triggered the event.
// Stronger guarantees come from the wal package spool, which retries from
// local storage.
//
// # Ordering
//
// Envelopes from concurrent requests arrive out of order. Every Store sorts
// by OccurredAt on read and never relies on insertion order.
//
// # Usage Example
//
//	pub, err := audit.NewPublisher(deliverer, audit.DefaultPublisherConfig())
//	if err != nil {
//	    return err
//	}
//	if err := pub.Start(ctx); err != nil {
//	    return err
//	}
//	defer pub.Shutdown(shutdownCtx)
//
//	_ = pub.Emit(audit.EventTypeUserLoggedIn, "alice", audit.SourceFromRequest(r), "")
//
// # Thread Safety
//
// Publisher, MemoryStore, DuckDBStore and QueryService are safe for
// concurrent use.
package audit
