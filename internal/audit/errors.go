// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import "errors"

// Schema errors. These indicate a defect in the calling code.
var (
	// ErrUnknownEventType is returned when an envelope is built with a type
	// outside the closed schema.
	ErrUnknownEventType = errors.New("unknown audit event type")

	// ErrInvalidEnvelope is returned when a required envelope field is missing.
	ErrInvalidEnvelope = errors.New("invalid audit envelope")
)

// Pipeline errors, one per failure class of the audit pipeline.
var (
	// ErrTransientDelivery marks a broker failure: unreachable, rejected
	// credentials, timeout or an open circuit. Logged and swallowed.
	ErrTransientDelivery = errors.New("transient delivery failure")

	// ErrSerialization marks an envelope that cannot be encoded or decoded.
	ErrSerialization = errors.New("audit envelope serialization failure")

	// ErrForbidden is returned when a non-privileged principal calls a gated
	// operation.
	ErrForbidden = errors.New("operation requires the administrative principal")

	// ErrStoreUnavailable is returned when the audit store cannot serve a read.
	// Callers must surface it; an empty result is never substituted.
	ErrStoreUnavailable = errors.New("audit store unavailable")
)

// Publisher lifecycle errors.
var (
	// ErrPublisherClosed is returned by Emit after Shutdown.
	ErrPublisherClosed = errors.New("audit publisher is closed")

	// ErrQueueFull is recorded when an envelope is dropped by the queue-full policy.
	ErrQueueFull = errors.New("audit queue full")
)
