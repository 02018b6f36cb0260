// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/auditwire/internal/eventprocessor"
	"github.com/tomtom215/auditwire/internal/models"
)

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 when any critical component (audit store, broker stream) is
// down; a degraded non-critical component still reports ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondData(w, http.StatusOK, eventprocessor.OverallHealth{
			Status:     eventprocessor.HealthStatusHealthy,
			Timestamp:  time.Now().UTC(),
			Components: []eventprocessor.ComponentHealth{},
		}, models.Metadata{})
		return
	}

	overall := h.health.CheckAll(r.Context())
	if overall.Status == eventprocessor.HealthStatusUnhealthy {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   overall,
			Metadata: models.Metadata{
				Timestamp: time.Now().UTC(),
			},
			Error: &models.APIError{
				Code:    ErrCodeNotReady,
				Message: "Service is not ready",
			},
		})
		return
	}

	respondData(w, http.StatusOK, overall, models.Metadata{})
}
