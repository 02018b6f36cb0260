// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/auditwire/internal/audit"
)

func newTestPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
		Persistent:          true,
	}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func startConsumer(t *testing.T, source MessageSource, store audit.Store) *StoreConsumer {
	t.Helper()
	c, err := NewStoreConsumer(source, store)
	if err != nil {
		t.Fatalf("NewStoreConsumer() error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	})
	return c
}

func publishEnvelope(t *testing.T, ps *gochannel.GoChannel, env *audit.Envelope) {
	t.Helper()
	msg, err := NewEnvelopeMessage(env)
	if err != nil {
		t.Fatalf("NewEnvelopeMessage() error = %v", err)
	}
	if err := ps.Publish(QueueName, msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestNewStoreConsumer_Validation(t *testing.T) {
	if _, err := NewStoreConsumer(nil, audit.NewMemoryStore()); err == nil {
		t.Error("NewStoreConsumer(nil source) should error")
	}
	if _, err := NewStoreConsumer(newTestPubSub(t), nil); err == nil {
		t.Error("NewStoreConsumer(nil store) should error")
	}
}

func TestStoreConsumer_PersistsEnvelopes(t *testing.T) {
	ps := newTestPubSub(t)
	store := audit.NewMemoryStore()
	c := startConsumer(t, ps, store)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Published out of occurrence order; the store sorts on read.
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		env, err := audit.NewEnvelope(audit.EventTypeUserLoggedIn, "alice", "10.0.0.1", "", base.Add(offset))
		if err != nil {
			t.Fatalf("NewEnvelope() error = %v", err)
		}
		publishEnvelope(t, ps, env)
	}

	waitFor(t, 2*time.Second, func() bool { return store.Len() == 3 })

	got, err := store.ListForActor(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListForActor() error = %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i].OccurredAt.Before(got[i-1].OccurredAt) {
			t.Errorf("ListForActor() not ordered at %d: %v before %v", i, got[i].OccurredAt, got[i-1].OccurredAt)
		}
	}

	stats := c.Stats()
	if stats.Persisted != 3 || stats.MessagesReceived != 3 {
		t.Errorf("Stats() = %+v, want 3 received and persisted", stats)
	}
	if !stats.Running {
		t.Error("Stats().Running = false")
	}
}

func TestStoreConsumer_PoisonMessageAcked(t *testing.T) {
	ps := newTestPubSub(t)
	store := audit.NewMemoryStore()
	c := startConsumer(t, ps, store)

	for _, payload := range []string{
		`not json`,
		`{"event_type":"user_created","timestamp":"2026-03-01T12:00:00.000Z"}`,
		`{"username":"bob","event_type":"user_created","timestamp":"yesterday"}`,
	} {
		if err := ps.Publish(QueueName, message.NewMessage(watermill.NewUUID(), []byte(payload))); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	publishEnvelope(t, ps, newTestEnvelope(t, audit.EventTypeUserCreated, "bob"))

	waitFor(t, 2*time.Second, func() bool { return c.Stats().MessagesReceived == 4 })

	if store.Len() != 1 {
		t.Errorf("store holds %d envelopes, want 1", store.Len())
	}
	if got := c.Stats().PoisonMessages; got != 3 {
		t.Errorf("PoisonMessages = %d, want 3", got)
	}
}

func TestStoreConsumer_UnknownTypePreserved(t *testing.T) {
	ps := newTestPubSub(t)
	store := audit.NewMemoryStore()
	startConsumer(t, ps, store)

	payload := `{"username":"erin","event_type":"password_changed","timestamp":"2026-03-01T12:00:00.000Z","ip_address":"","target_user":""}`
	if err := ps.Publish(QueueName, message.NewMessage(watermill.NewUUID(), []byte(payload))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return store.Len() == 1 })

	got, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if got[0].Type != "password_changed" {
		t.Errorf("Type = %q, want password_changed", got[0].Type)
	}
}

func TestStoreConsumer_StoreFailureRedelivers(t *testing.T) {
	ps := newTestPubSub(t)
	store := &flakyStore{MemoryStore: audit.NewMemoryStore(), failures: 2}
	c := startConsumer(t, ps, store)

	publishEnvelope(t, ps, newTestEnvelope(t, audit.EventTypeUserDeleted, "admin"))

	waitFor(t, 2*time.Second, func() bool { return store.Len() == 1 })

	stats := c.Stats()
	if stats.StoreFailures != 2 {
		t.Errorf("StoreFailures = %d, want 2", stats.StoreFailures)
	}
	if stats.Persisted != 1 {
		t.Errorf("Persisted = %d, want 1", stats.Persisted)
	}
}

func TestStoreConsumer_Lifecycle(t *testing.T) {
	ps := newTestPubSub(t)
	c, err := NewStoreConsumer(ps, audit.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewStoreConsumer() error = %v", err)
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() before Start error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrConsumerRunning) {
		t.Errorf("second Start() error = %v, want ErrConsumerRunning", err)
	}
	if !c.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if c.IsRunning() {
		t.Error("IsRunning() = true after Shutdown")
	}
}

func TestStoreConsumer_StopsWithParentContext(t *testing.T) {
	ps := newTestPubSub(t)
	c, _ := NewStoreConsumer(ps, audit.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	waitFor(t, 2*time.Second, func() bool { return !c.IsRunning() })
}
