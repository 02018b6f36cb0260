// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/config"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/register", map[string]string{
		"username": "alice",
		"password": testPassword,
		"email":    "alice@example.com",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if resp.Data["username"] != "alice" || resp.Data["email"] != "alice@example.com" {
		t.Errorf("data = %v", resp.Data)
	}
	if _, leaked := resp.Data["password_hash"]; leaked {
		t.Error("response must not include the password hash")
	}

	if got := env.trailTypes(); !equalStrings(got, []string{"user_created:alice>"}) {
		t.Errorf("trail = %v", got)
	}
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice")

	tests := []struct {
		name   string
		body   interface{}
		raw    string
		status int
		code   string
	}{
		{"duplicate username", map[string]string{"username": "alice", "password": testPassword}, "", http.StatusConflict, ErrCodeUsernameTaken},
		{"short password", map[string]string{"username": "bob", "password": "short"}, "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad username", map[string]string{"username": "bob smith", "password": testPassword}, "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad email", map[string]string{"username": "bob", "password": testPassword, "email": "nope"}, "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", nil, "{", http.StatusBadRequest, ErrCodeInvalidJSON},
		{"empty body", nil, "", http.StatusBadRequest, ErrCodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.body != nil {
				rec = env.do(http.MethodPost, "/register", tt.body, "")
			} else {
				rec = env.doRaw(http.MethodPost, "/register", tt.raw)
			}
			assertErrorCode(t, rec, tt.status, tt.code)
		})
	}

	if got := env.trailTypes(); len(got) != 1 {
		t.Errorf("rejected registrations must not be audited, trail = %v", got)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice")

	rec := env.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": testPassword}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token    string `json:"token"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if resp.Data.Token == "" || resp.Data.Username != "alice" || resp.Data.Role != "user" {
		t.Errorf("data = %+v", resp.Data)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != resp.Data.Token || !cookie.HttpOnly {
		t.Errorf("token cookie = %+v", cookie)
	}

	want := []string{"user_created:alice>", "user_logged_in:alice>"}
	if got := env.trailTypes(); !equalStrings(got, want) {
		t.Errorf("trail = %v, want %v", got, want)
	}
}

func TestLogin_AdminRole(t *testing.T) {
	env := newTestEnv(t)
	env.register(testAdmin)

	rec := env.do(http.MethodPost, "/login", map[string]string{"username": testAdmin, "password": testPassword}, "")
	var resp struct {
		Data struct {
			Role string `json:"role"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if resp.Data.Role != "admin" {
		t.Errorf("role = %q, want admin", resp.Data.Role)
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice")

	rec := env.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong-password"}, "")
	assertErrorCode(t, rec, http.StatusUnauthorized, ErrCodeInvalidCredentials)

	rec = env.do(http.MethodPost, "/login", map[string]string{"username": "mallory", "password": "whatever1"}, "")
	assertErrorCode(t, rec, http.StatusUnauthorized, ErrCodeInvalidCredentials)

	want := []string{
		"user_created:alice>",
		"failed_login_attempt:alice>",
		"failed_login_attempt:mallory>",
	}
	if got := env.trailTypes(); !equalStrings(got, want) {
		t.Errorf("trail = %v, want %v", got, want)
	}
}

func TestLogin_MalformedPasswordIsAuditedFailure(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty password", map[string]string{"username": "alice", "password": ""}},
		{"missing password", map[string]string{"username": "alice"}},
		{"password over bcrypt limit", map[string]string{"username": "alice", "password": strings.Repeat("x", 73)}},
		{"oversized username", map[string]string{"username": strings.Repeat("a", 100), "password": testPassword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.register("alice")

			rec := env.do(http.MethodPost, "/login", tt.body, "")
			assertErrorCode(t, rec, http.StatusUnauthorized, ErrCodeInvalidCredentials)

			want := []string{"user_created:alice>", "failed_login_attempt:" + tt.body["username"] + ">"}
			if got := env.trailTypes(); !equalStrings(got, want) {
				t.Errorf("trail = %v, want %v", got, want)
			}
		})
	}
}

func TestLogin_MissingUsername(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/login", map[string]string{"password": testPassword}, "")
	assertErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
	if got := env.trailTypes(); len(got) != 0 {
		t.Errorf("trail = %v, want empty", got)
	}
}

func TestRegister_AdminNameReserved(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/register", map[string]string{
		"username": testAdmin,
		"password": testPassword,
	}, "")
	assertErrorCode(t, rec, http.StatusConflict, ErrCodeUsernameTaken)

	// No account was created, so the admin name cannot log in.
	rec = env.do(http.MethodPost, "/login", map[string]string{"username": testAdmin, "password": testPassword}, "")
	assertErrorCode(t, rec, http.StatusUnauthorized, ErrCodeInvalidCredentials)

	token := env.registerAndLogin("mallory")
	assertErrorCode(t, env.do(http.MethodGet, "/show_logs", nil, token), http.StatusForbidden, ErrCodeForbidden)

	if got := env.trailTypes(); containsString(got, "user_created:"+testAdmin+">") {
		t.Errorf("trail records an admin registration: %v", got)
	}
}

func TestLogin_RecordsSourceAddress(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin("alice")

	envs, err := env.trail.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	last := envs[len(envs)-1]
	if last.SourceAddr != "203.0.113.7" {
		t.Errorf("SourceAddr = %q, want 203.0.113.7", last.SourceAddr)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Security.RateLimitDisabled = false })
	env.register("alice")

	var last int
	for i := 0; i < loginRateLimitRequests+1; i++ {
		rec := env.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong-password"}, "")
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after %d attempts = %d, want 429", loginRateLimitRequests+1, last)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin("alice")

	rec := env.do(http.MethodPost, "/logout", nil, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should clear the token cookie")
	}

	// The revoked token is no longer accepted.
	rec = env.do(http.MethodPost, "/logout", nil, token)
	assertErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	want := []string{"user_created:alice>", "user_logged_in:alice>", "user_logged_out:alice>"}
	if got := env.trailTypes(); !equalStrings(got, want) {
		t.Errorf("trail = %v, want %v", got, want)
	}
}

func TestLogout_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	assertErrorCode(t, env.do(http.MethodPost, "/logout", nil, ""), http.StatusUnauthorized, "UNAUTHORIZED")
	assertErrorCode(t, env.do(http.MethodPost, "/logout", nil, "not-a-jwt"), http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestDeleteUser_Guard(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.registerAndLogin(testAdmin)
	bobToken := env.registerAndLogin("bob")
	env.register("carol")

	// Non-admin: audited, 403, nothing removed.
	assertErrorCode(t, env.do(http.MethodDelete, "/users/carol", nil, bobToken), http.StatusForbidden, ErrCodeForbidden)

	// Admin deleting itself: audited, 403, nothing removed.
	assertErrorCode(t, env.do(http.MethodDelete, "/users/"+testAdmin, nil, adminToken), http.StatusForbidden, ErrCodeSelfDeletion)

	// Unknown target: 404, not audited.
	assertErrorCode(t, env.do(http.MethodDelete, "/users/nobody", nil, adminToken), http.StatusNotFound, ErrCodeNotFound)

	if env.accounts.Len() != 3 {
		t.Fatalf("accounts = %d, want 3 before a successful delete", env.accounts.Len())
	}

	rec := env.do(http.MethodDelete, "/users/carol", nil, adminToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.accounts.Len() != 2 {
		t.Errorf("accounts = %d, want 2", env.accounts.Len())
	}

	trail := env.trailTypes()
	for _, want := range []string{
		"user_deletion_failed_unauthorized:bob>carol",
		"user_deletion_failed_self_deletion:admin>admin",
		"user_deleted:admin>carol",
	} {
		if !containsString(trail, want) {
			t.Errorf("trail %v missing %s", trail, want)
		}
	}
	for _, entry := range trail {
		if entry == "user_deleted:admin>nobody" {
			t.Error("unknown target must not be audited")
		}
	}
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.registerAndLogin(testAdmin)
	bobToken := env.registerAndLogin("bob")
	env.register("alice")

	assertErrorCode(t, env.do(http.MethodGet, "/users", nil, bobToken), http.StatusForbidden, ErrCodeForbidden)

	rec := env.do(http.MethodGet, "/users", nil, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	var list []map[string]interface{}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	var names []string
	for _, u := range list {
		names = append(names, u["username"].(string))
	}
	if !equalStrings(names, []string{"admin", "alice", "bob"}) {
		t.Errorf("usernames = %v, want sorted [admin alice bob]", names)
	}
	if resp.Metadata.Count != 3 {
		t.Errorf("metadata.count = %d, want 3", resp.Metadata.Count)
	}
}
