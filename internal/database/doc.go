// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package database opens the DuckDB file shared by the audit store and the
// account store.
//
// The package owns connection concerns only: directory creation, the DSN,
// pool sizing, checkpoint on close, and classification of DuckDB errors.
// Schemas live with the stores that use them (audit.DuckDBStore,
// users.DuckDBStore), each with its own CreateTable.
//
//	db, err := database.Open(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	store := audit.NewDuckDBStore(db.Conn())
//	if err := store.CreateTable(ctx); err != nil {
//	    return err
//	}
//
// Writes that may race (account registration) go through RetryOnConflict,
// which retries DuckDB transaction conflicts with a millisecond backoff and
// gives up immediately on INTERNAL errors.
package database
