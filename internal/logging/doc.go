// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package logging provides the process-wide zerolog logger.
//
// Every package logs through the global helpers rather than holding its own
// logger. JSON is the production format; console output is available for
// local development.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  cfg.Logging.Level,
//	    Format: cfg.Logging.Format,
//	    Caller: cfg.Logging.Caller,
//	})
//
//	logging.Info().Str("event_type", string(env.Type)).Msg("Envelope persisted")
//	logging.Error().Err(err).Msg("Failed to append audit record")
//
// Log chains must end in Msg or Send or nothing is written.
//
// # Configuration
//
// The level and format come from the logging section of the application
// config (LOGGING_LEVEL, LOGGING_FORMAT, LOGGING_CALLER). Before Init runs
// the logger writes JSON at info level to stderr.
//
// # Request Context
//
// The request ID middleware stores a request ID and a correlation ID on
// the request context. Ctx returns a logger carrying both:
//
//	logging.Ctx(r.Context()).Warn().Str("username", name).Msg("Login failed")
//
// # slog Bridge
//
// Suture and Watermill take a *slog.Logger. NewSlogLogger returns one
// backed by the global zerolog logger so supervisor restarts and broker
// reconnects land in the same stream:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
//
// # Security Logging
//
// SecurityLogger writes account and session events (login, logout,
// registration, token revocation, access denials) with a fixed
// security_event field. These are operator diagnostics, separate from the
// audit trail. The Sanitize helpers mask tokens and truncate untrusted
// strings before they reach a log line.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. Init takes a write
// lock; the level helpers take a read lock.
package logging
