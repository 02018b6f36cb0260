// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package services adapts auditwire components to suture.Service.
//
// Three lifecycle shapes are covered:
//   - StartStopService: Start(ctx) plus a synchronous Stop (WAL retry loop, compactor)
//   - ComponentService: Start(ctx) plus Shutdown(ctx) with a fresh deadline
//     (audit publisher, store consumer)
//   - HTTPServerService: ListenAndServe plus graceful Shutdown
//
// Each wrapper implements fmt.Stringer so suture's event log names it.
package services
