// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
)

// TimestampLayout is the wire representation of OccurredAt: ISO-8601, UTC,
// millisecond precision, "Z" suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// wireEnvelope is the broker payload. Field names are part of the contract
// with consumers and must not change.
type wireEnvelope struct {
	Username   string `json:"username"`
	EventType  string `json:"event_type"`
	Timestamp  string `json:"timestamp"`
	IPAddress  string `json:"ip_address"`
	TargetUser string `json:"target_user"`
}

// FormatTimestamp renders t in the wire layout.
func FormatTimestamp(t time.Time) string {
	return normalizeTime(t).Format(TimestampLayout)
}

// ParseTimestamp parses a wire timestamp. Any RFC 3339 value is accepted so
// that producers with coarser or finer precision still decode.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return normalizeTime(t), nil
}

// Marshal encodes env into its wire form.
func Marshal(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrSerialization)
	}
	data, err := json.Marshal(env.toWire())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal decodes a wire payload. Unknown event types are preserved as-is;
// a missing username or an unparseable timestamp is a serialization failure.
func Unmarshal(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	env, err := w.toEnvelope()
	if err != nil {
		return nil, err
	}
	return env, nil
}

// MarshalJSON implements json.Marshaler using the wire form.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.toWire())
}

// ExportJSONLines writes envs in wire form, one object per line.
func ExportJSONLines(w io.Writer, envs []Envelope) error {
	for i := range envs {
		data, err := Marshal(&envs[i])
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write envelope %d: %w", i, err)
		}
	}
	return nil
}

func (e *Envelope) toWire() wireEnvelope {
	return wireEnvelope{
		Username:   e.Actor,
		EventType:  string(e.Type),
		Timestamp:  FormatTimestamp(e.OccurredAt),
		IPAddress:  e.SourceAddr,
		TargetUser: e.Target,
	}
}

func (w *wireEnvelope) toEnvelope() (*Envelope, error) {
	if w.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrSerialization)
	}
	if w.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrSerialization)
	}
	at, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q: %v", ErrSerialization, w.Timestamp, err)
	}
	return &Envelope{
		Type:       EventType(w.EventType),
		Actor:      w.Username,
		Target:     w.TargetUser,
		SourceAddr: w.IPAddress,
		OccurredAt: at,
	}, nil
}
