// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DuckDBStore implements Store using DuckDB for persistent storage.
// Each Append is a single-row insert, so concurrent consumers need no
// application-level locking.
type DuckDBStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDuckDBStore creates a new DuckDB-backed audit store.
// Call CreateTable before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{
		db:  db,
		now: time.Now,
	}
}

// CreateTable creates the audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE SEQUENCE IF NOT EXISTS audit_events_seq;

		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT nextval('audit_events_seq'),
			event_type TEXT NOT NULL,
			actor_username TEXT NOT NULL,
			target_username TEXT NOT NULL DEFAULT '',
			source_address TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMP NOT NULL,
			schema_version INTEGER NOT NULL,
			received_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_audit_occurred_at ON audit_events(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor_username, occurred_at);
		CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_events(event_type);
	`

	statements := strings.Split(query, ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Append inserts one envelope.
func (s *DuckDBStore) Append(ctx context.Context, env *Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope", ErrInvalidEnvelope)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, event_type, actor_username, target_username, source_address,
			occurred_at, schema_version, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		string(env.Type),
		env.Actor,
		env.Target,
		env.SourceAddr,
		normalizeTime(env.OccurredAt),
		SchemaVersion,
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListAll returns every envelope ordered by occurred_at ascending.
func (s *DuckDBStore) ListAll(ctx context.Context) ([]Envelope, error) {
	return s.query(ctx, "", nil)
}

// ListForActor returns one actor's envelopes ordered by occurred_at ascending.
func (s *DuckDBStore) ListForActor(ctx context.Context, username string) ([]Envelope, error) {
	return s.query(ctx, "WHERE actor_username = ?", []interface{}{username})
}

func (s *DuckDBStore) query(ctx context.Context, where string, args []interface{}) ([]Envelope, error) {
	query := `
		SELECT event_type, actor_username, target_username, source_address, occurred_at
		FROM audit_events ` + where + `
		ORDER BY occurred_at ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query audit events: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	results, err := scanEnvelopes(rows)
	if err != nil {
		return nil, err
	}

	// Ordering by occurred_at is part of the Store contract.
	SortByOccurrence(results)
	return results, nil
}

// CountByType returns the number of stored envelopes per event type.
func (s *DuckDBStore) CountByType(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT event_type, COUNT(*) FROM audit_events GROUP BY event_type")
	if err != nil {
		return nil, fmt.Errorf("%w: count audit events: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanCounts(rows)
}

func scanCounts(rows rowScanner) (map[string]int64, error) {
	result := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("%w: scan audit count: %w", ErrStoreUnavailable, err)
		}
		result[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate audit counts: %w", ErrStoreUnavailable, err)
	}
	return result, nil
}

// rowScanner is the part of *sql.Rows the readers use.
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanEnvelopes reads every row or fails; a trail with a skipped row is
// never returned.
func scanEnvelopes(rows rowScanner) ([]Envelope, error) {
	results := make([]Envelope, 0)
	for rows.Next() {
		var env Envelope
		var eventType string
		var occurredAt time.Time
		if err := rows.Scan(&eventType, &env.Actor, &env.Target, &env.SourceAddr, &occurredAt); err != nil {
			return nil, fmt.Errorf("%w: scan audit event: %w", ErrStoreUnavailable, err)
		}
		env.Type = EventType(eventType)
		env.OccurredAt = normalizeTime(occurredAt)
		results = append(results, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate audit events: %w", ErrStoreUnavailable, err)
	}
	return results, nil
}

// Ping checks that the underlying database answers.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
