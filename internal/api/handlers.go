// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"context"
	"time"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/eventprocessor"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/middleware"
	"github.com/tomtom215/auditwire/internal/users"
	"github.com/tomtom215/auditwire/internal/wal"
)

// Calculator forwards /submit problems. calculation.Client implements it.
type Calculator interface {
	Submit(ctx context.Context, problem string) string
}

// EventCounter reports persisted audit events per type.
type EventCounter interface {
	CountByType(ctx context.Context) (map[string]int64, error)
}

// PublisherStatsSource exposes the audit publisher counters.
type PublisherStatsSource interface {
	Stats() audit.PublisherStats
}

// SpoolStatsSource exposes the local spool counters.
type SpoolStatsSource interface {
	Stats() wal.Stats
}

// ReadinessChecker aggregates component health for /health/ready.
type ReadinessChecker interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_accounts.go: register, login, logout, user deletion and listing
//   - handlers_logs.go: audit trail and stats
//   - handlers_submit.go: computation proxy
//   - handlers_health.go: liveness and readiness
type Handler struct {
	config      *config.Config
	accounts    *users.Service
	logs        *audit.QueryService
	jwtManager  *auth.JWTManager
	revocations *auth.RevocationList
	security    *logging.SecurityLogger
	startTime   time.Time

	calculator Calculator
	counter    EventCounter
	publisher  PublisherStatsSource
	spool      SpoolStatsSource
	health     ReadinessChecker
	perfMon    *middleware.PerformanceMonitor
}

// NewHandler creates the API handler. Optional collaborators are attached
// with the Set methods before the router is built.
func NewHandler(cfg *config.Config, accounts *users.Service, logs *audit.QueryService, jwtManager *auth.JWTManager, revocations *auth.RevocationList) *Handler {
	return &Handler{
		config:      cfg,
		accounts:    accounts,
		logs:        logs,
		jwtManager:  jwtManager,
		revocations: revocations,
		security:    logging.NewSecurityLogger(),
		startTime:   time.Now(),
		perfMon:     middleware.NewPerformanceMonitor(1000, middleware.DefaultSlowRequestThreshold),
	}
}

// SetCalculator sets the /submit backend.
func (h *Handler) SetCalculator(c Calculator) {
	h.calculator = c
}

// SetStatsSources sets what /api/v1/audit/stats reports. Any may be nil.
func (h *Handler) SetStatsSources(counter EventCounter, publisher PublisherStatsSource, spool SpoolStatsSource) {
	h.counter = counter
	h.publisher = publisher
	h.spool = spool
}

// SetHealthChecker sets the readiness checker.
func (h *Handler) SetHealthChecker(c ReadinessChecker) {
	h.health = c
}

func (h *Handler) cookieSecure() bool {
	return h.config != nil && h.config.Security.CookieSecure
}
