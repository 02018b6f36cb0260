// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/auditwire/internal/auth"
)

func serveAuthorized(t *testing.T, mw *Middleware, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	handler := mw.Authorize(ObjectUsers, ActionDelete)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/delete_user", nil)
	if claims != nil {
		req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_Authorize(t *testing.T) {
	mw := NewMiddleware(newTestEnforcer(t, "admin"), nil)

	t.Run("admin passes", func(t *testing.T) {
		rec := serveAuthorized(t, mw, &auth.Claims{Username: "admin"})
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		rec := serveAuthorized(t, mw, &auth.Claims{Username: "alice"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("no claims forbidden", func(t *testing.T) {
		rec := serveAuthorized(t, mw, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}

func TestMiddleware_CustomResponder(t *testing.T) {
	var gotCode string
	respond := func(w http.ResponseWriter, status int, code, _ string) {
		gotCode = code
		w.WriteHeader(status)
	}
	mw := NewMiddleware(newTestEnforcer(t, "admin"), respond)

	rec := serveAuthorized(t, mw, &auth.Claims{Username: "mallory"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if gotCode != "FORBIDDEN" {
		t.Errorf("code = %q, want FORBIDDEN", gotCode)
	}
}
