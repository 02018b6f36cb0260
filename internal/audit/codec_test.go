// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestMarshal_WireFormat(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 678_900_000, time.UTC)
	env, err := NewEnvelope(EventTypeDeletionUnauthorized, "bob", "192.168.1.9", "carol", at)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}

	want := map[string]string{
		"username":    "bob",
		"event_type":  "user_deletion_failed_unauthorized",
		"timestamp":   "2026-01-02T03:04:05.678Z",
		"ip_address":  "192.168.1.9",
		"target_user": "carol",
	}
	if len(fields) != len(want) {
		t.Errorf("payload has %d fields, want %d: %s", len(fields), len(want), data)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %q = %v, want %q", k, fields[k], v)
		}
	}
}

func TestMarshal_EmptyOptionalFields(t *testing.T) {
	env := mustEnvelope(t, EventTypeUserLoggedIn, "alice", time.Now())
	env.SourceAddr = ""

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"target_user":""`) {
		t.Errorf("target_user must be present as empty string: %s", data)
	}
	if !strings.Contains(string(data), `"ip_address":""`) {
		t.Errorf("ip_address must be present as empty string: %s", data)
	}
}

func TestMarshal_Nil(t *testing.T) {
	if _, err := Marshal(nil); !errors.Is(err, ErrSerialization) {
		t.Errorf("Marshal(nil) error = %v, want ErrSerialization", err)
	}
}

func TestUnmarshal_UnknownTypeRoundTrips(t *testing.T) {
	payload := []byte(`{"username":"alice","event_type":"password_changed","timestamp":"2026-05-06T07:08:09.010Z","ip_address":"","target_user":""}`)

	env, err := Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if env.Type != "password_changed" {
		t.Errorf("Type = %q, want password_changed", env.Type)
	}
	if env.Type.Known() {
		t.Error("future type reported as known")
	}

	out, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != string(payload) {
		t.Errorf("round trip changed payload:\n got %s\nwant %s", out, payload)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not json`},
		{"missing username", `{"event_type":"user_created","timestamp":"2026-01-01T00:00:00.000Z"}`},
		{"missing type", `{"username":"a","timestamp":"2026-01-01T00:00:00.000Z"}`},
		{"missing timestamp", `{"username":"a","event_type":"user_created"}`},
		{"bad timestamp", `{"username":"a","event_type":"user_created","timestamp":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.payload)); !errors.Is(err, ErrSerialization) {
				t.Errorf("Unmarshal() error = %v, want ErrSerialization", err)
			}
		})
	}
}

func TestParseTimestamp_Normalizes(t *testing.T) {
	got, err := ParseTimestamp("2026-01-02T04:04:05.123456+01:00")
	if err != nil {
		t.Fatalf("ParseTimestamp() error = %v", err)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 123_000_000, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("ParseTimestamp() = %v, want %v", got, want)
	}
	if FormatTimestamp(got) != "2026-01-02T03:04:05.123Z" {
		t.Errorf("FormatTimestamp() = %q", FormatTimestamp(got))
	}
}

func TestEnvelope_JSONInterfaces(t *testing.T) {
	env := mustEnvelope(t, EventTypeUserCreated, "dave", time.Now())
	env.Target = "dave"

	data, err := json.Marshal([]Envelope{*env})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("encoded %d objects, want 1", len(raw))
	}
	decoded, err := Unmarshal(raw[0])
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !sameEnvelope(*decoded, *env) {
		t.Errorf("decoded = %+v, want %+v", *decoded, *env)
	}
}

func sameEnvelope(a, b Envelope) bool {
	return a.Type == b.Type &&
		a.Actor == b.Actor &&
		a.Target == b.Target &&
		a.SourceAddr == b.SourceAddr &&
		a.OccurredAt.Equal(b.OccurredAt)
}
