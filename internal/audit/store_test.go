// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_ListAllSortsByOccurrence(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	// Append concurrently with timestamps in reverse order so arrival order
	// says nothing about occurrence order.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			env := mustEnvelope(t, EventTypeUserLoggedIn, "alice", base.Add(time.Duration(50-i)*time.Second))
			if err := store.Append(ctx, env); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	envs, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(envs) != 50 {
		t.Fatalf("ListAll() returned %d envelopes, want 50", len(envs))
	}
	for i := 1; i < len(envs); i++ {
		if envs[i].OccurredAt.Before(envs[i-1].OccurredAt) {
			t.Fatalf("envelope %d (%v) is before envelope %d (%v)", i, envs[i].OccurredAt, i-1, envs[i-1].OccurredAt)
		}
	}
}

func TestMemoryStore_ListForActorIsSubsetOfListAll(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	actors := []string{"alice", "bob", "alice", "carol", "alice", "bob"}
	for i, actor := range actors {
		// Insert out of order: later events first.
		at := base.Add(time.Duration(len(actors)-i) * time.Minute)
		if err := store.Append(ctx, mustEnvelope(t, EventTypeUserLoggedIn, actor, at)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}

	for _, actor := range []string{"alice", "bob", "carol", "nobody"} {
		got, err := store.ListForActor(ctx, actor)
		if err != nil {
			t.Fatalf("ListForActor(%q) error = %v", actor, err)
		}

		var want []Envelope
		for _, env := range all {
			if env.Actor == actor {
				want = append(want, env)
			}
		}
		if len(got) != len(want) {
			t.Fatalf("ListForActor(%q) returned %d, want %d", actor, len(got), len(want))
		}
		for i := range got {
			if !sameEnvelope(got[i], want[i]) {
				t.Errorf("ListForActor(%q)[%d] = %+v, want %+v", actor, i, got[i], want[i])
			}
		}
	}
}

func TestMemoryStore_EqualTimestampsKeepAppendOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	for _, actor := range []string{"first", "second", "third"} {
		if err := store.Append(ctx, mustEnvelope(t, EventTypeUserCreated, actor, at)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	envs, _ := store.ListAll(ctx)
	for i, want := range []string{"first", "second", "third"} {
		if envs[i].Actor != want {
			t.Errorf("envs[%d].Actor = %q, want %q", i, envs[i].Actor, want)
		}
	}
}

func TestMemoryStore_AppendNil(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Append(context.Background(), nil); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Append(nil) error = %v, want ErrInvalidEnvelope", err)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.ListAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ListAll() error = %v, want context.Canceled", err)
	}
}

func TestMemoryStore_CountByType(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_ = store.Append(ctx, mustEnvelope(t, EventTypeUserLoggedIn, "a", now))
	_ = store.Append(ctx, mustEnvelope(t, EventTypeUserLoggedIn, "b", now))
	_ = store.Append(ctx, mustEnvelope(t, EventTypeLoginFailed, "c", now))

	counts, err := store.CountByType(ctx)
	if err != nil {
		t.Fatalf("CountByType() error = %v", err)
	}
	if counts["user_logged_in"] != 2 || counts["failed_login_attempt"] != 1 {
		t.Errorf("CountByType() = %v", counts)
	}

	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}
}

func TestExportJSONLines(t *testing.T) {
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	envs := []Envelope{
		*mustEnvelope(t, EventTypeUserLoggedIn, "alice", at),
		*mustEnvelope(t, EventTypeUserLoggedOut, "alice", at.Add(time.Minute)),
	}

	var buf bytes.Buffer
	if err := ExportJSONLines(&buf, envs); err != nil {
		t.Fatalf("ExportJSONLines() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	decoded, err := Unmarshal([]byte(lines[1]))
	if err != nil {
		t.Fatalf("Unmarshal(line 2) error = %v", err)
	}
	if decoded.Type != EventTypeUserLoggedOut {
		t.Errorf("line 2 type = %q", decoded.Type)
	}
}
