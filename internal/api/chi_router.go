// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/authz"
	"github.com/tomtom215/auditwire/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. The auth and authz middleware are switched to
// the JSON error envelope.
func NewRouter(handler *Handler, authMw *auth.Middleware, enforcer *authz.Enforcer, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMw.WithErrorResponder(respondErrorNoLog),
		authz:         authz.NewMiddleware(enforcer, respondErrorNoLog),
		chiMiddleware: chiMw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(auth.SecurityHeaders)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.handler.perfMon.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Probes and scraping are unauthenticated.
	r.Get("/health/live", router.handler.HealthLive)
	r.Get("/health/ready", router.handler.HealthReady)
	r.Handle("/metrics", promhttp.Handler())

	// Account entry points
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
	})

	// Authenticated portal
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.auth.Authenticate)

		r.Post("/logout", router.handler.Logout)
		r.Post("/submit", router.handler.Submit)

		// Deletion is not behind Authorize: rejected attempts must reach the
		// service so they are audited.
		r.Delete("/users/{username}", router.handler.DeleteUser)
		r.With(router.authz.Authorize("users", "read")).Get("/users", router.handler.ListUsers)

		r.Group(func(r chi.Router) {
			r.Use(router.authz.Authorize("audit_logs", "read"))
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/show_logs", router.handler.ShowLogs)
			r.Get("/show_logs/{username}", router.handler.ShowUserLogs)

			r.Route("/api/v1", func(r chi.Router) {
				r.Get("/logs", router.handler.ShowLogs)
				r.Get("/logs/{username}", router.handler.ShowUserLogs)
				r.Get("/audit/stats", router.handler.AuditStats)
			})
		})
	})

	return r
}
