// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the version of the envelope schema produced by this package.
// It travels as message metadata, never inside the wire body.
const SchemaVersion = 1

// EventType categorizes audit events.
type EventType string

const (
	// Account lifecycle events
	EventTypeUserCreated EventType = "user_created"
	EventTypeUserDeleted EventType = "user_deleted"

	// Authentication events
	EventTypeUserLoggedIn  EventType = "user_logged_in"
	EventTypeLoginFailed   EventType = "failed_login_attempt"
	EventTypeUserLoggedOut EventType = "user_logged_out"

	// Rejected deletions
	EventTypeDeletionUnauthorized EventType = "user_deletion_failed_unauthorized"
	EventTypeDeletionSelf         EventType = "user_deletion_failed_self_deletion"
)

var knownEventTypes = map[EventType]struct{}{
	EventTypeUserCreated:          {},
	EventTypeUserDeleted:          {},
	EventTypeUserLoggedIn:         {},
	EventTypeLoginFailed:          {},
	EventTypeUserLoggedOut:        {},
	EventTypeDeletionUnauthorized: {},
	EventTypeDeletionSelf:         {},
}

// KnownEventTypes returns the closed set of event types this build can emit.
func KnownEventTypes() []EventType {
	return []EventType{
		EventTypeUserCreated,
		EventTypeUserLoggedIn,
		EventTypeLoginFailed,
		EventTypeUserLoggedOut,
		EventTypeUserDeleted,
		EventTypeDeletionUnauthorized,
		EventTypeDeletionSelf,
	}
}

// Known reports whether t belongs to the emit-side schema.
func (t EventType) Known() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// String implements fmt.Stringer.
func (t EventType) String() string {
	return string(t)
}

// ParseEventType converts a string into a known EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.TrimSpace(s))
	if !t.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

// Envelope is the immutable record of one audited action.
//
// Envelopes built with NewEnvelope always carry a known event type. Envelopes
// decoded from the wire may carry a type introduced by a newer producer; such
// types are preserved verbatim so that they survive a store round-trip.
type Envelope struct {
	Type       EventType
	Actor      string
	Target     string
	SourceAddr string
	OccurredAt time.Time
}

// NewEnvelope validates the inputs and builds an envelope. The timestamp is
// normalized to UTC with millisecond resolution.
func NewEnvelope(eventType EventType, actor, source, target string, at time.Time) (*Envelope, error) {
	if !eventType.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, string(eventType))
	}
	if actor == "" {
		return nil, fmt.Errorf("%w: actor username is required", ErrInvalidEnvelope)
	}
	if at.IsZero() {
		return nil, fmt.Errorf("%w: occurred_at is required", ErrInvalidEnvelope)
	}

	return &Envelope{
		Type:       eventType,
		Actor:      actor,
		Target:     target,
		SourceAddr: source,
		OccurredAt: normalizeTime(at),
	}, nil
}

// normalizeTime converts t to UTC and drops precision finer than a millisecond,
// matching what the wire format can carry.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Store persists envelopes and returns them in occurrence order.
//
// Implementations must sort by OccurredAt explicitly. Envelopes from concurrent
// requests reach the store out of order, so insertion order means nothing.
type Store interface {
	// Append persists one envelope.
	Append(ctx context.Context, env *Envelope) error

	// ListAll returns every envelope ordered by OccurredAt ascending.
	ListAll(ctx context.Context) ([]Envelope, error)

	// ListForActor returns the envelopes whose actor equals username,
	// ordered by OccurredAt ascending.
	ListForActor(ctx context.Context, username string) ([]Envelope, error)
}

// Deliverer hands one envelope to the broker. A returned error means the
// envelope did not reach the broker.
type Deliverer interface {
	Deliver(ctx context.Context, env *Envelope) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, env *Envelope) error

// Deliver calls f(ctx, env).
func (f DelivererFunc) Deliver(ctx context.Context, env *Envelope) error {
	return f(ctx, env)
}
