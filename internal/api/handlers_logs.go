// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/models"
)

// ShowLogs returns the full audit trail in occurrence order. Both trail
// routes accept ?format=jsonl for one wire object per line.
//
// GET /show_logs, GET /api/v1/logs
func (h *Handler) ShowLogs(w http.ResponseWriter, r *http.Request) {
	h.serveTrail(w, r, "")
}

// ShowUserLogs returns the trail of one actor in occurrence order.
//
// GET /show_logs/{username}, GET /api/v1/logs/{username}
func (h *Handler) ShowUserLogs(w http.ResponseWriter, r *http.Request) {
	h.serveTrail(w, r, chi.URLParam(r, "username"))
}

func (h *Handler) serveTrail(w http.ResponseWriter, r *http.Request, actor string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}

	start := time.Now()
	var (
		trail []audit.Envelope
		err   error
	)
	if actor == "" {
		trail, err = h.logs.ListAll(r.Context(), claims.Username)
	} else {
		trail, err = h.logs.ListForActor(r.Context(), claims.Username, actor)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "jsonl" {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if err := audit.ExportJSONLines(w, trail); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Audit trail export interrupted")
		}
		return
	}

	if trail == nil {
		trail = []audit.Envelope{}
	}
	respondData(w, http.StatusOK, trail, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(trail),
	})
}

// AuditStats reports persisted event counts, publisher and spool counters
// and per-route latency.
//
// GET /api/v1/audit/stats
func (h *Handler) AuditStats(w http.ResponseWriter, r *http.Request) {
	resp := models.AuditStatsResponse{EventCounts: map[string]int64{}}

	if h.counter != nil {
		counts, err := h.counter.CountByType(r.Context())
		if err != nil {
			respondServiceError(w, fmt.Errorf("%w: %w", audit.ErrStoreUnavailable, err))
			return
		}
		resp.EventCounts = counts
	}
	if h.publisher != nil {
		resp.Publisher = h.publisher.Stats()
	}
	if h.spool != nil {
		resp.Spool = h.spool.Stats()
	}
	if h.perfMon != nil {
		resp.Endpoints = h.perfMon.Stats()
	}

	respondData(w, http.StatusOK, resp, models.Metadata{})
}
