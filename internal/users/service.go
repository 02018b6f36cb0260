// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/authz"
	"github.com/tomtom215/auditwire/internal/logging"
)

// Roles carried in session tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Service owns account operations and emits their audit events. Emit
// failures are logged and never fail the account operation.
type Service struct {
	store   Store
	emitter Emitter
	gate    Gate
	cost    int
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPasswordCost sets the bcrypt cost for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates an account service.
func NewService(store Store, emitter Emitter, gate Gate, opts ...Option) *Service {
	s := &Service{
		store:   store,
		emitter: emitter,
		gate:    gate,
		cost:    auth.PasswordCost,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and emits user_created. The admin name is
// reserved for EnsureAdmin and reported as taken.
func (s *Service) Register(ctx context.Context, username, password, email, source string) (*User, error) {
	if s.gate.IsPrivileged(username) {
		return nil, ErrUsernameTaken
	}
	return s.create(ctx, username, password, email, source)
}

func (s *Service) create(ctx context.Context, username, password, email, source string) (*User, error) {
	hash, err := auth.HashPasswordWithCost(password, s.cost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventTypeUserCreated, username, source, "")
	return u, nil
}

// Authenticate checks credentials. Success emits user_logged_in; a wrong
// password or unknown username emits failed_login_attempt with the
// attempted username and returns ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password, source string) (*User, error) {
	u, err := s.store.Get(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("load account: %w", err)
	}

	var hash []byte
	if u != nil {
		hash = u.PasswordHash
	}
	if !auth.CheckPassword(hash, password) {
		s.emit(ctx, audit.EventTypeLoginFailed, username, source, "")
		return nil, ErrInvalidCredentials
	}

	s.emit(ctx, audit.EventTypeUserLoggedIn, username, source, "")
	return u, nil
}

// Logout emits user_logged_out. Token revocation is the caller's job.
func (s *Service) Logout(ctx context.Context, username, source string) {
	s.emit(ctx, audit.EventTypeUserLoggedOut, username, source, "")
}

// Delete removes target on behalf of actor.
//
//   - actor not privileged: emits user_deletion_failed_unauthorized, returns ErrForbidden
//   - actor deleting itself: emits user_deletion_failed_self_deletion, returns ErrSelfDeletion
//   - target unknown: returns ErrUserNotFound, emits nothing
//   - otherwise: deletes and emits user_deleted
//
// Every emitted event names actor and target. No account is removed on a
// rejected request.
func (s *Service) Delete(ctx context.Context, actor, target, source string) error {
	if !s.gate.Can(actor, authz.ObjectUsers, authz.ActionDelete) {
		s.emit(ctx, audit.EventTypeDeletionUnauthorized, actor, source, target)
		return ErrForbidden
	}
	if actor == target {
		s.emit(ctx, audit.EventTypeDeletionSelf, actor, source, target)
		return ErrSelfDeletion
	}

	if err := s.store.Delete(ctx, target); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.emit(ctx, audit.EventTypeUserDeleted, actor, source, target)
	return nil
}

// List returns all accounts to the admin.
func (s *Service) List(ctx context.Context, principal string) ([]User, error) {
	if !s.gate.Can(principal, authz.ObjectUsers, authz.ActionRead) {
		return nil, ErrForbidden
	}
	return s.store.List(ctx)
}

// Role returns the session role for username.
func (s *Service) Role(username string) string {
	if s.gate.IsPrivileged(username) {
		return RoleAdmin
	}
	return RoleUser
}

// EnsureAdmin creates the admin account if it is missing. An empty password
// skips the bootstrap. An existing account is left untouched, password
// included.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	_, err := s.store.Get(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, fmt.Errorf("check admin account: %w", err)
	}

	if _, err := s.create(ctx, username, password, "", ""); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return false, nil
		}
		return false, fmt.Errorf("create admin account: %w", err)
	}
	logging.Info().Str("username", username).Msg("Admin account created")
	return true, nil
}

func (s *Service) emit(ctx context.Context, eventType audit.EventType, actor, source, target string) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(eventType, actor, source, target); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_type", string(eventType)).
			Str("actor", logging.SanitizeUsername(actor)).
			Msg("Audit event not recorded")
	}
}
