// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package api

import (
	"net/http"

	"github.com/tomtom215/auditwire/internal/models"
)

// Submit forwards a problem to the computation service. Upstream failures
// are reported in the message, not as an HTTP error.
//
// POST /submit {problem} -> 200 {message}
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.calculator == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "Computation service is not configured", nil)
		return
	}

	var req models.SubmitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	message := h.calculator.Submit(r.Context(), req.Problem)
	respondData(w, http.StatusOK, models.SubmitResponse{Message: message}, models.Metadata{})
}
