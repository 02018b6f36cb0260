// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package models defines the HTTP request and response structures of the
Auditwire API.

Key Components:

  - APIResponse: Standardized response wrapper used by every JSON endpoint
  - APIError: Machine-readable error code plus message
  - Account requests: RegisterRequest, LoginRequest, SubmitRequest
  - Account responses: LoginResponse, UserView, SubmitResponse
  - AuditStatsResponse: Per-type event counts and publisher counters

Request structs carry go-playground/validator tags; handlers validate them
through the validation package before use.

Audit trail entries are served as audit.Envelope values, which marshal to
the same JSON object that travels on the broker.
*/
package models
