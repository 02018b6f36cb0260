// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore implements Store in memory. Nothing survives a restart, so
// it backs tests and the HTTP handler harness only; the server always
// persists to DuckDB.
type MemoryStore struct {
	events []Envelope
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make([]Envelope, 0, 64),
	}
}

// Append stores a copy of env.
func (s *MemoryStore) Append(ctx context.Context, env *Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope", ErrInvalidEnvelope)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *env)
	return nil
}

// ListAll returns every stored envelope ordered by OccurredAt.
func (s *MemoryStore) ListAll(ctx context.Context) ([]Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := make([]Envelope, len(s.events))
	copy(results, s.events)
	s.mu.RUnlock()

	SortByOccurrence(results)
	return results, nil
}

// ListForActor returns the envelopes of one actor ordered by OccurredAt.
func (s *MemoryStore) ListForActor(ctx context.Context, username string) ([]Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := make([]Envelope, 0)
	for i := range s.events {
		if s.events[i].Actor == username {
			results = append(results, s.events[i])
		}
	}
	s.mu.RUnlock()

	SortByOccurrence(results)
	return results, nil
}

// CountByType returns the number of stored envelopes per event type.
func (s *MemoryStore) CountByType(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]int64)
	for i := range s.events {
		result[string(s.events[i].Type)]++
	}
	return result, nil
}

// Len returns the number of stored envelopes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// SortByOccurrence sorts envelopes by OccurredAt ascending. Equal timestamps
// keep their relative order.
func SortByOccurrence(envs []Envelope) {
	sort.SliceStable(envs, func(i, j int) bool {
		return envs[i].OccurredAt.Before(envs[j].OccurredAt)
	})
}
