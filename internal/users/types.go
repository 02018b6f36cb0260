// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package users

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/auditwire/internal/audit"
)

var (
	// ErrUserNotFound is returned when no account has the username.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// username or a wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSelfDeletion is returned when the admin tries to delete itself.
	ErrSelfDeletion = errors.New("cannot delete your own account")

	// ErrForbidden is the access gate's denial, shared with the log query
	// service so handlers map both to one response.
	ErrForbidden = audit.ErrForbidden
)

// User is a stored account.
type User struct {
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Store persists accounts keyed by exact, case-sensitive username.
type Store interface {
	// Create inserts u, or returns ErrUsernameTaken.
	Create(ctx context.Context, u *User) error

	// Get returns the account, or ErrUserNotFound.
	Get(ctx context.Context, username string) (*User, error)

	// Delete removes the account, or returns ErrUserNotFound.
	Delete(ctx context.Context, username string) error

	// List returns every account sorted by username.
	List(ctx context.Context) ([]User, error)
}

// Emitter records audit events. *audit.Publisher satisfies it.
type Emitter interface {
	Emit(eventType audit.EventType, actor, source, target string) error
}

// Gate decides what a principal may do. *authz.Enforcer satisfies it.
type Gate interface {
	IsPrivileged(principal string) bool
	Can(subject, object, action string) bool
}
