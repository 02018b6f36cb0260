// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/eventprocessor"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/supervisor"
	"github.com/tomtom215/auditwire/internal/supervisor/services"
	"github.com/tomtom215/auditwire/internal/wal"
)

// spoolComponents holds the BadgerDB spool in front of the broker.
type spoolComponents struct {
	wal       *wal.BadgerWAL
	retryLoop *wal.RetryLoop
	compactor *wal.Compactor
	deliverer *eventprocessor.SpoolDeliverer
}

// walConfigFrom overlays the configured WAL settings on the package defaults.
// Zero values keep the default.
func walConfigFrom(c *config.WALConfig) wal.Config {
	cfg := wal.DefaultConfig()
	if c.Path != "" {
		cfg.Path = c.Path
	}
	cfg.SyncWrites = c.SyncWrites
	if c.RetryInterval > 0 {
		cfg.RetryInterval = c.RetryInterval
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.RetryBackoff > 0 {
		cfg.RetryBackoff = c.RetryBackoff
	}
	if c.CompactInterval > 0 {
		cfg.CompactInterval = c.CompactInterval
	}
	if c.EntryTTL > 0 {
		cfg.EntryTTL = c.EntryTTL
	}
	if c.LeaseDuration > 0 {
		cfg.LeaseDuration = c.LeaseDuration
	}
	if c.ReplayRate > 0 {
		cfg.ReplayRate = c.ReplayRate
	}
	return cfg
}

// initSpool opens the WAL, republishes entries left pending by the previous
// run and wraps broker with the spool. Returns nil, nil when the WAL is
// disabled.
func initSpool(ctx context.Context, c *config.WALConfig, broker *eventprocessor.BrokerDeliverer) (*spoolComponents, error) {
	if !c.Enabled {
		logging.Warn().Msg("WAL disabled (WAL_ENABLED=false). Audit events in flight are lost if the broker is down at shutdown.")
		return nil, nil
	}

	cfg := walConfigFrom(c)
	logging.Info().Str("path", cfg.Path).Bool("sync_writes", cfg.SyncWrites).Msg("Initializing WAL...")

	w, err := wal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open WAL: %w", err)
	}

	deliverer, err := eventprocessor.NewSpoolDeliverer(w, broker)
	if err != nil {
		closeWAL(w)
		return nil, err
	}

	// Recovery is best-effort; the retry loop picks up whatever is left.
	result, err := w.RecoverPending(ctx, broker)
	if err != nil {
		logging.Warn().Err(err).Msg("WAL recovery error")
	} else if result != nil && result.TotalPending > 0 {
		logging.Info().
			Int("total", result.TotalPending).
			Int("recovered", result.Recovered).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Msg("WAL recovery completed")
	}

	return &spoolComponents{
		wal:       w,
		retryLoop: wal.NewRetryLoop(w, broker),
		compactor: wal.NewCompactor(w),
		deliverer: deliverer,
	}, nil
}

// addServices puts the retry loop and compactor under the data layer.
func (c *spoolComponents) addServices(tree *supervisor.SupervisorTree) {
	if c == nil {
		return
	}
	tree.AddDataService(services.NewWALRetryLoopService(c.retryLoop))
	tree.AddDataService(services.NewWALCompactorService(c.compactor))
	logging.Info().Msg("WAL retry loop and compactor added to supervisor tree")
}

// Stats returns current WAL statistics.
func (c *spoolComponents) Stats() wal.Stats {
	if c == nil || c.wal == nil {
		return wal.Stats{}
	}
	return c.wal.Stats()
}

// close closes the WAL. The supervisor has already stopped the loops.
func (c *spoolComponents) close() {
	if c == nil || c.wal == nil {
		return
	}
	closeWAL(c.wal)
	logging.Info().Msg("WAL closed")
}

func closeWAL(w *wal.BadgerWAL) {
	if err := w.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing WAL")
	}
}
