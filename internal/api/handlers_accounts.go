// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/models"
	"github.com/tomtom215/auditwire/internal/users"
)

// Register creates an account.
//
// POST /register {username, password, email} -> 201 UserView
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	source := audit.SourceFromRequest(r)
	u, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.Email, source)
	if err != nil {
		reason := "store error"
		if errors.Is(err, users.ErrUsernameTaken) {
			reason = "username taken"
		}
		h.security.LogRegistration(req.Username, source, false, reason)
		respondServiceError(w, err)
		return
	}

	h.security.LogRegistration(u.Username, source, true, "")
	respondData(w, http.StatusCreated, userView(u), models.Metadata{})
}

// Login authenticates and issues a session token, returned in the body and
// as an HttpOnly cookie.
//
// POST /login {username, password} -> 200 LoginResponse
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	source := audit.SourceFromRequest(r)
	u, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password, source)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.security.LogLoginFailure(req.Username, source, r.UserAgent(), "invalid credentials")
		}
		respondServiceError(w, err)
		return
	}

	role := h.accounts.Role(u.Username)
	token, claims, err := h.jwtManager.GenerateToken(u.Username, role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create session", err)
		return
	}

	expiresAt := claims.ExpiresAt.Time
	auth.SetTokenCookie(w, token, expiresAt, h.cookieSecure())
	h.security.LogLoginSuccess(u.Username, source, r.UserAgent())

	respondData(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		Username:  u.Username,
		Role:      role,
	}, models.Metadata{})
}

// Logout revokes the current session token and clears the cookie.
//
// POST /logout -> 204
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}

	if h.revocations != nil && claims.ExpiresAt != nil {
		if err := h.revocations.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Token revocation failed")
		}
	}

	source := audit.SourceFromRequest(r)
	h.accounts.Logout(r.Context(), claims.Username, source)
	h.security.LogLogout(claims.Username, claims.ID, source)

	auth.ClearTokenCookie(w, h.cookieSecure())
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser removes an account. Only the administrator may delete, and
// never its own account; every rejected attempt is audited.
//
// DELETE /users/{username} -> 204
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}

	target := chi.URLParam(r, "username")
	err := h.accounts.Delete(r.Context(), claims.Username, target, audit.SourceFromRequest(r))
	if err != nil {
		if errors.Is(err, audit.ErrForbidden) {
			h.security.LogAccessDenied(claims.Username, "users", "delete", r.RemoteAddr)
		}
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("target", logging.SanitizeUsername(target)).
		Msg("Account deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns every account, sorted by username.
//
// GET /users -> []UserView
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}

	list, err := h.accounts.List(r.Context(), claims.Username)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]models.UserView, len(list))
	for i := range list {
		views[i] = userView(&list[i])
	}
	respondData(w, http.StatusOK, views, models.Metadata{Count: len(views)})
}

func userView(u *users.User) models.UserView {
	return models.UserView{
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
	}
}
