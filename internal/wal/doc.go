// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package wal provides a durable local spool for audit messages using
// BadgerDB.
//
// The spool is optional (WAL_ENABLED, off by default). When enabled, a
// delivery writes the wire-encoded envelope to disk before the broker
// publish and confirms it after the broker acknowledges. A failed publish
// leaves the entry pending, so the event survives a broker outage or a
// process crash:
//
//	Envelope → WAL Write (fsync) → broker publish → WAL Confirm
//	                                     ↓ (on failure)
//	                              entry stays pending
//
// # Components
//
//   - BadgerWAL: pending and confirmed entries under separate key prefixes,
//     with durable processing leases stored alongside each entry
//   - RetryLoop: republishes pending entries with exponential backoff; its
//     first pass runs at start-up and recovers entries from a previous run
//   - Compactor: removes confirmed and expired entries, then runs value log GC
//
// Entries are dropped after MaxRetries attempts or once older than EntryTTL.
// Both cases are logged and counted.
//
// # Usage
//
//	w, err := wal.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	retry := wal.NewRetryLoop(w, publisher)
//	compactor := wal.NewCompactor(w)
//	tree.AddDataService(services.NewWALRetryLoopService(retry))
//	tree.AddDataService(services.NewWALCompactorService(compactor))
package wal
