// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package wal

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// createFastTestConfig creates a config with sub-second intervals. It is not
// valid for Open, only for openBadger.
func createFastTestConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "wal")
	cfg.SyncWrites = false
	cfg.RetryInterval = 50 * time.Millisecond
	cfg.MaxRetries = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.CompactInterval = 50 * time.Millisecond
	cfg.EntryTTL = time.Hour
	cfg.LeaseDuration = 30 * time.Second
	cfg.MemTableSize = 16 * 1024 * 1024
	cfg.ValueLogFileSize = 16 * 1024 * 1024
	cfg.CloseTimeout = 10 * time.Second
	return cfg
}

func setupFastWAL(t *testing.T) *BadgerWAL {
	t.Helper()
	w, err := openBadger(createFastTestConfig(t))
	if err != nil {
		t.Fatalf("openBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func writeTestPayload(ctx context.Context, t *testing.T, w *BadgerWAL, username string) string {
	t.Helper()
	payload := []byte(`{"username":"` + username + `","event_type":"user_logged_in","timestamp":"2026-01-02T03:04:05.000Z","ip_address":"10.0.0.1","target_user":""}`)
	id, err := w.Write(ctx, payload, map[string]string{"event_type": "user_logged_in"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return id
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty path", func(c *Config) { c.Path = "" }, "Path"},
		{"fast retry", func(c *Config) { c.RetryInterval = 10 * time.Millisecond }, "RetryInterval"},
		{"no retries", func(c *Config) { c.MaxRetries = 0 }, "MaxRetries"},
		{"short backoff", func(c *Config) { c.RetryBackoff = 0 }, "RetryBackoff"},
		{"fast compaction", func(c *Config) { c.CompactInterval = time.Second }, "CompactInterval"},
		{"short ttl", func(c *Config) { c.EntryTTL = time.Minute }, "EntryTTL"},
		{"small memtable", func(c *Config) { c.MemTableSize = 1024 }, "MemTableSize"},
		{"small vlog", func(c *Config) { c.ValueLogFileSize = 1024 }, "ValueLogFileSize"},
		{"one compactor", func(c *Config) { c.NumCompactors = 1 }, "NumCompactors"},
		{"short lease", func(c *Config) { c.LeaseDuration = time.Second }, "LeaseDuration"},
		{"no replay rate", func(c *Config) { c.ReplayRate = 0 }, "ReplayRate"},
		{"no replay burst", func(c *Config) { c.ReplayBurst = 0 }, "ReplayBurst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestOpen_RejectsInvalidConfig(t *testing.T) {
	cfg := createFastTestConfig(t)
	if _, err := Open(cfg); err == nil {
		t.Fatal("Open() accepted sub-second intervals")
	}
}

func TestWrite_Confirm(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()

	id := writeTestPayload(ctx, t, w, "alice")

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("GetPending() returned %d entries, want 1", len(pending))
	}
	if pending[0].ID != id {
		t.Errorf("entry ID = %q, want %q", pending[0].ID, id)
	}
	if pending[0].Metadata["event_type"] != "user_logged_in" {
		t.Errorf("metadata = %v", pending[0].Metadata)
	}

	if err := w.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	stats := w.Stats()
	if stats.PendingCount != 0 || stats.ConfirmedCount != 1 {
		t.Errorf("Stats() pending=%d confirmed=%d, want 0/1", stats.PendingCount, stats.ConfirmedCount)
	}
	if stats.TotalWrites != 1 || stats.TotalConfirms != 1 {
		t.Errorf("Stats() writes=%d confirms=%d, want 1/1", stats.TotalWrites, stats.TotalConfirms)
	}

	if err := w.Confirm(ctx, id); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("second Confirm() error = %v, want ErrEntryNotFound", err)
	}
}

func TestWrite_RejectsBadPayload(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()

	if _, err := w.Write(ctx, nil, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Write(nil) error = %v, want ErrEmptyPayload", err)
	}
	if _, err := w.Write(ctx, []byte("{not json"), nil); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Write(invalid) error = %v, want ErrInvalidPayload", err)
	}
	if err := w.Confirm(ctx, ""); !errors.Is(err, ErrEmptyEntryID) {
		t.Errorf("Confirm(\"\") error = %v, want ErrEmptyEntryID", err)
	}
}

func TestClosedWAL(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := w.Write(ctx, []byte(`{}`), nil); !errors.Is(err, ErrWALClosed) {
		t.Errorf("Write() after close error = %v, want ErrWALClosed", err)
	}
	if _, err := w.GetPending(ctx); !errors.Is(err, ErrWALClosed) {
		t.Errorf("GetPending() after close error = %v, want ErrWALClosed", err)
	}
	if stats := w.Stats(); stats != (Stats{}) {
		t.Errorf("Stats() after close = %+v, want zero", stats)
	}
}

func TestUpdateAttempt(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()
	id := writeTestPayload(ctx, t, w, "bob")

	if err := w.UpdateAttempt(ctx, id, "broker unreachable"); err != nil {
		t.Fatalf("UpdateAttempt() error = %v", err)
	}

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if pending[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", pending[0].Attempts)
	}
	if pending[0].LastError != "broker unreachable" {
		t.Errorf("LastError = %q", pending[0].LastError)
	}
	if pending[0].LastAttemptAt.IsZero() {
		t.Error("LastAttemptAt not set")
	}

	if err := w.UpdateAttempt(ctx, "missing", "x"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("UpdateAttempt(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestDeleteEntry(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()

	pendingID := writeTestPayload(ctx, t, w, "carol")
	confirmedID := writeTestPayload(ctx, t, w, "dave")
	if err := w.Confirm(ctx, confirmedID); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	if err := w.DeleteEntry(ctx, pendingID); err != nil {
		t.Errorf("DeleteEntry(pending) error = %v", err)
	}
	if err := w.DeleteEntry(ctx, confirmedID); err != nil {
		t.Errorf("DeleteEntry(confirmed) error = %v", err)
	}
	if err := w.DeleteEntry(ctx, pendingID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("DeleteEntry(again) error = %v, want ErrEntryNotFound", err)
	}

	stats := w.Stats()
	if stats.PendingCount != 0 || stats.ConfirmedCount != 0 {
		t.Errorf("Stats() pending=%d confirmed=%d, want 0/0", stats.PendingCount, stats.ConfirmedCount)
	}
}

func TestDurableLease(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()
	id := writeTestPayload(ctx, t, w, "erin")

	claimed, err := w.TryClaimEntryDurable(ctx, id, "holder-a")
	if err != nil || !claimed {
		t.Fatalf("first claim = %v, %v; want true, nil", claimed, err)
	}

	claimed, err = w.TryClaimEntryDurable(ctx, id, "holder-b")
	if err != nil || claimed {
		t.Errorf("competing claim = %v, %v; want false, nil", claimed, err)
	}

	claimed, err = w.TryClaimEntryDurable(ctx, id, "holder-a")
	if err != nil || !claimed {
		t.Errorf("re-claim by holder = %v, %v; want true, nil", claimed, err)
	}

	if err := w.ReleaseLeaseDurable(ctx, id); err != nil {
		t.Fatalf("ReleaseLeaseDurable() error = %v", err)
	}
	claimed, err = w.TryClaimEntryDurable(ctx, id, "holder-b")
	if err != nil || !claimed {
		t.Errorf("claim after release = %v, %v; want true, nil", claimed, err)
	}

	if err := w.ReleaseLeaseDurable(ctx, "missing"); err != nil {
		t.Errorf("ReleaseLeaseDurable(missing) error = %v", err)
	}
	if _, err := w.TryClaimEntryDurable(ctx, "missing", "holder-a"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("TryClaimEntryDurable(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestDurableLease_Expired(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()
	id := writeTestPayload(ctx, t, w, "frank")

	if claimed, _ := w.TryClaimEntryDurable(ctx, id, "crashed"); !claimed {
		t.Fatal("initial claim failed")
	}

	// Move the clock past the lease, as if the holder had crashed.
	w.now = func() time.Time { return time.Now().Add(w.config.LeaseDuration + time.Second) }

	claimed, err := w.TryClaimEntryDurable(ctx, id, "survivor")
	if err != nil || !claimed {
		t.Errorf("claim after lease expiry = %v, %v; want true, nil", claimed, err)
	}
}

func TestWrite_Concurrent(t *testing.T) {
	w := setupFastWAL(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Write(ctx, []byte(`{"username":"load"}`), nil); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := w.Stats().PendingCount; got != n {
		t.Errorf("PendingCount = %d, want %d", got, n)
	}
}

func TestReopen_PreservesPending(t *testing.T) {
	cfg := createFastTestConfig(t)
	ctx := context.Background()

	w, err := openBadger(cfg)
	if err != nil {
		t.Fatalf("openBadger() error = %v", err)
	}
	id := writeTestPayload(ctx, t, w, "grace")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w, err = openBadger(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer w.Close()

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Errorf("pending after reopen = %v, want entry %s", pending, id)
	}
}
