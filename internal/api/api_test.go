// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/authz"
	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/users"
)

const (
	testAdmin    = "admin"
	testPassword = "correct-horse"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

// storeEmitter writes events straight into the audit store so handler
// tests can read them back through /show_logs.
type storeEmitter struct {
	store *audit.MemoryStore
	now   func() time.Time
}

func (e *storeEmitter) Emit(t audit.EventType, actor, source, target string) error {
	env, err := audit.NewEnvelope(t, actor, source, target, e.now())
	if err != nil {
		return err
	}
	return e.store.Append(context.Background(), env)
}

type testEnv struct {
	t        *testing.T
	cfg      *config.Config
	handler  *Handler
	router   http.Handler
	trail    *audit.MemoryStore
	accounts *users.MemoryStore
	service  *users.Service
}

type envOption func(*config.Config)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			SessionTimeout:    time.Hour,
			AdminUsername:     testAdmin,
			RateLimitDisabled: true,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	enforcer, err := authz.NewEnforcer(cfg.Security.AdminUsername)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	revocations := auth.NewRevocationList(time.Minute)
	t.Cleanup(func() { _ = revocations.Close() })

	// Strictly increasing timestamps keep the trail order deterministic.
	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	tick := 0
	trail := audit.NewMemoryStore()
	emitter := &storeEmitter{store: trail, now: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}}

	accounts := users.NewMemoryStore()
	service := users.NewService(accounts, emitter, enforcer, users.WithPasswordCost(bcrypt.MinCost))

	h := NewHandler(cfg, service, audit.NewQueryService(trail, enforcer), jwtManager, revocations)
	h.SetStatsSources(trail, nil, nil)

	chiMw := NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security))
	router := NewRouter(h, auth.NewMiddleware(jwtManager, revocations), enforcer, chiMw)

	return &testEnv{
		t:        t,
		cfg:      cfg,
		handler:  h,
		router:   router.SetupChi(),
		trail:    trail,
		accounts: accounts,
		service:  service,
	}
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through POST /register. The admin name is
// reserved there, so the admin is bootstrapped the way main does it.
func (e *testEnv) register(username string) {
	e.t.Helper()
	if username == e.cfg.Security.AdminUsername {
		if _, err := e.service.EnsureAdmin(context.Background(), username, testPassword); err != nil {
			e.t.Fatalf("EnsureAdmin(%s) error = %v", username, err)
		}
		return
	}
	rec := e.do(http.MethodPost, "/register", map[string]string{
		"username": username,
		"password": testPassword,
		"email":    username + "@example.com",
	}, "")
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("register %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
}

func (e *testEnv) login(username string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": testPassword,
	}, "")
	if rec.Code != http.StatusOK {
		e.t.Fatalf("login %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	decodeBody(e.t, rec, &resp)
	return resp.Data.Token
}

func (e *testEnv) doRaw(method, path, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// registerAndLogin creates an account and returns its session token.
func (e *testEnv) registerAndLogin(username string) string {
	e.t.Helper()
	e.register(username)
	return e.login(username)
}

func (e *testEnv) trailTypes() []string {
	e.t.Helper()
	envs, err := e.trail.ListAll(context.Background())
	if err != nil {
		e.t.Fatalf("ListAll() error = %v", err)
	}
	out := make([]string, len(envs))
	for i, env := range envs {
		out[i] = string(env.Type) + ":" + env.Actor + ">" + env.Target
	}
	return out
}

type envelopeResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Metadata struct {
		Count int `json:"count"`
	} `json:"metadata"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeResponse {
	t.Helper()
	var resp envelopeResponse
	decodeBody(t, rec, &resp)
	return resp
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != code {
		t.Fatalf("error = %+v, want code %s", resp.Error, code)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
