// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package models

import "time"

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,username"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

// LoginRequest is the body of POST /login. Only the username is validated;
// any password, empty or oversized, is a failed login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login. The same token is also
// set as an HttpOnly cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// UserView is the public projection of an account.
type UserView struct {
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Problem string `json:"problem" validate:"required,max=4096"`
}

// SubmitResponse carries the message shown to the user after a submission.
type SubmitResponse struct {
	Message string `json:"message"`
}

// AuditStatsResponse is returned by GET /api/v1/audit/stats.
type AuditStatsResponse struct {
	EventCounts map[string]int64 `json:"event_counts"`
	Publisher   interface{}      `json:"publisher,omitempty"`
	Spool       interface{}      `json:"spool,omitempty"`
	Endpoints   interface{}      `json:"endpoints,omitempty"`
}
