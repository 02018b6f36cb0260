// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package wal

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/auditwire/internal/logging"
)

// Compactor periodically removes confirmed and expired entries and runs
// value log GC.
type Compactor struct {
	wal    *BadgerWAL
	config Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	lastRun          time.Time
	lastEntriesCount int64
}

// NewCompactor creates a new compaction manager.
func NewCompactor(wal *BadgerWAL) *Compactor {
	return &Compactor{
		wal:    wal,
		config: wal.Config(),
	}
}

// Start begins the background compaction loop.
func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(1)
	go c.run(loopCtx)

	logging.Info().Dur("interval", c.config.CompactInterval).Msg("WAL compactor started")
	return nil
}

// Stop gracefully stops the compaction loop.
func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("WAL compactor stopped")
}

// IsRunning returns whether the compactor is active.
func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Compactor) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CompactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunNow()
		}
	}
}

// RunNow performs one compaction pass and returns the number of entries
// removed.
func (c *Compactor) RunNow() int64 {
	start := time.Now()

	confirmed, err := c.deleteConfirmedEntries()
	if err != nil {
		logging.Error().Err(err).Msg("WAL compaction failed to delete confirmed entries")
	}

	expired, err := c.deleteExpiredEntries()
	if err != nil {
		logging.Error().Err(err).Msg("WAL compaction failed to delete expired entries")
	}

	if err := c.wal.RunGC(); err != nil {
		logging.Error().Err(err).Msg("WAL compaction GC error")
	}

	total := confirmed + expired
	c.mu.Lock()
	c.lastRun = time.Now()
	c.lastEntriesCount = total
	c.mu.Unlock()
	c.wal.markCompacted()

	duration := time.Since(start)
	observeMaintenance(taskCompaction, duration)
	if total > 0 {
		spoolCompacted.Add(float64(total))
		logging.Info().
			Int64("total_deleted", total).
			Int64("confirmed", confirmed).
			Int64("expired", expired).
			Dur("duration", duration).
			Msg("WAL compaction removed entries")
	}
	return total
}

func (c *Compactor) deleteConfirmedEntries() (int64, error) {
	return c.deleteWhere(prefixConfirmed, nil)
}

// deleteExpiredEntries removes pending entries older than EntryTTL. BadgerDB
// TTL hides them already; this reclaims the keys explicitly.
func (c *Compactor) deleteExpiredEntries() (int64, error) {
	cutoff := c.wal.now().Add(-c.config.EntryTTL)
	return c.deleteWhere(prefixPending, func(e *Entry) bool {
		if e.CreatedAt.Before(cutoff) {
			countDropped(dropExpired)
			return true
		}
		return false
	})
}

// deleteWhere deletes keys under prefix for which match returns true. A nil
// match deletes every key under the prefix.
func (c *Compactor) deleteWhere(prefix string, match func(*Entry) bool) (int64, error) {
	if err := c.wal.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := c.wal.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = match != nil
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			if match != nil {
				var entry Entry
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &entry)
				}); err != nil {
					continue
				}
				if !match(&entry) {
					continue
				}
			}
			keys = append(keys, item.KeyCopy(nil))
		}

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// CompactorStats contains statistics about compaction.
type CompactorStats struct {
	LastRun          time.Time
	LastEntriesCount int64
}

// GetStats returns compaction statistics.
func (c *Compactor) GetStats() CompactorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CompactorStats{
		LastRun:          c.lastRun,
		LastEntriesCount: c.lastEntriesCount,
	}
}
