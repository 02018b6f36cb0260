// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package eventprocessor

import (
	"context"
	"errors"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/wal"
)

// Spool is the durable store an envelope is written to before the broker
// sees it. *wal.BadgerWAL implements it.
type Spool interface {
	Write(ctx context.Context, payload []byte, metadata map[string]string) (string, error)
	Confirm(ctx context.Context, entryID string) error
}

// SpoolDeliverer makes delivery survive broker outages and restarts.
//
// The flow is:
//  1. Encode the envelope
//  2. Write it to the spool (durable)
//  3. Attempt the broker publish
//  4. On success: confirm the spool entry
//  5. On failure: leave the entry pending for the retry loop and return nil
type SpoolDeliverer struct {
	spool  Spool
	broker *BrokerDeliverer
}

// NewSpoolDeliverer wraps broker with the spool.
func NewSpoolDeliverer(spool Spool, broker *BrokerDeliverer) (*SpoolDeliverer, error) {
	if spool == nil {
		return nil, errors.New("spool required")
	}
	if broker == nil {
		return nil, ErrNilPublisher
	}
	return &SpoolDeliverer{spool: spool, broker: broker}, nil
}

// Deliver implements audit.Deliverer.
func (d *SpoolDeliverer) Deliver(ctx context.Context, env *audit.Envelope) error {
	payload, err := audit.Marshal(env)
	if err != nil {
		return err
	}
	metadata := EnvelopeMetadata(env)

	entryID, err := d.spool.Write(ctx, payload, metadata)
	if err != nil {
		// Without a spool entry the broker is the only chance left.
		logging.Error().
			Err(err).
			Str("event_type", string(env.Type)).
			Str("actor", env.Actor).
			Msg("Spool write failed, publishing directly")
		return d.broker.Deliver(ctx, env)
	}

	entry := &wal.Entry{ID: entryID, Payload: payload, Metadata: metadata}
	if err := d.broker.PublishEntry(ctx, entry); err != nil {
		wal.RecordPublishFailure()
		logging.Warn().
			Err(err).
			Str("wal_entry_id", entryID).
			Str("event_type", string(env.Type)).
			Str("actor", env.Actor).
			Msg("Broker publish failed, entry will be retried")
		return nil
	}

	if err := d.spool.Confirm(ctx, entryID); err != nil {
		// Already published. A retry inside the duplicate window is
		// dropped by the broker.
		logging.Warn().
			Err(err).
			Str("wal_entry_id", entryID).
			Msg("Spool confirm failed")
	}
	return nil
}
