// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/database"
	"github.com/tomtom215/auditwire/internal/users"
)

// Error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeBodyTooLarge       = "BODY_TOO_LARGE"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeSelfDeletion       = "SELF_DELETION"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeStoreUnavailable   = "STORE_UNAVAILABLE"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeNotReady           = "NOT_READY"
)

// respondServiceError maps domain errors from the users and audit packages
// to HTTP responses. Unknown errors are 500s.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, audit.ErrForbidden):
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Forbidden: administrator only", nil)
	case errors.Is(err, users.ErrSelfDeletion):
		respondError(w, http.StatusForbidden, ErrCodeSelfDeletion, "The administrator account cannot delete itself", nil)
	case errors.Is(err, users.ErrUserNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
	case errors.Is(err, users.ErrUsernameTaken):
		respondError(w, http.StatusConflict, ErrCodeUsernameTaken, "Username already exists", nil)
	case errors.Is(err, users.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password", nil)
	case errors.Is(err, audit.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Audit log store is unavailable", err)
	case database.IsConnectionError(err):
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Account store is unavailable", err)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}
