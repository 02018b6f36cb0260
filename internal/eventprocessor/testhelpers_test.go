// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/auditwire/internal/audit"
)

// recordingPublisher captures published messages and fails while err is set.
type recordingPublisher struct {
	mu       sync.Mutex
	err      error
	topics   []string
	messages []*message.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *recordingPublisher) published() []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.messages...)
}

// flakyStore fails the first failures appends, then delegates to a MemoryStore.
type flakyStore struct {
	*audit.MemoryStore
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) Append(ctx context.Context, env *audit.Envelope) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("store unavailable")
	}
	s.mu.Unlock()
	return s.MemoryStore.Append(ctx, env)
}

func newTestEnvelope(t *testing.T, eventType audit.EventType, actor string) *audit.Envelope {
	t.Helper()
	env, err := audit.NewEnvelope(eventType, actor, "203.0.113.7", "", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	return env
}

// waitFor polls cond until it is true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
