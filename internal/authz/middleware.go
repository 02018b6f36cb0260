// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package authz

import (
	"net/http"

	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/logging"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
	respond  auth.ErrorResponder
	security *logging.SecurityLogger
}

// NewMiddleware creates a new authorization middleware. A nil respond
// falls back to http.Error.
func NewMiddleware(enforcer *Enforcer, respond auth.ErrorResponder) *Middleware {
	if respond == nil {
		respond = func(w http.ResponseWriter, status int, _ string, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, respond: respond, security: logging.NewSecurityLogger()}
}

// Authorize returns middleware that requires the authenticated principal to
// hold action on object. Denials are explicit 403 responses.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				m.respond(w, http.StatusForbidden, "FORBIDDEN", "Forbidden: no authentication context")
				return
			}

			if !m.enforcer.Can(claims.Username, object, action) {
				m.security.LogAccessDenied(claims.Username, object, action, r.RemoteAddr)
				m.respond(w, http.StatusForbidden, "FORBIDDEN", "Forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
