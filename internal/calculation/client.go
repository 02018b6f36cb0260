// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package calculation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/metrics"
)

const (
	breakerName = "calculation"

	// maxResponseBytes bounds the body read from the computation service.
	maxResponseBytes = 1 << 20

	noAnswerMessage     = "No answer returned."
	unknownErrorMessage = "Unknown error"
)

// Outcome labels for metrics.RecordCalculationRequest.
const (
	OutcomeSuccess        = "success"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
	OutcomeRejected       = "rejected"
)

// Request is the payload sent to the computation service.
type Request struct {
	Problem string `json:"problem"`
	ID      string `json:"id"`
}

// Response is the computation service reply. Answer and Error may be any
// JSON value; strings are shown as-is, anything else as its JSON text.
type Response struct {
	Success bool            `json:"success"`
	Answer  json.RawMessage `json:"answer,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Client forwards problems to the computation service behind a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*Response]
	newID   func() string
}

// NewClient creates a client for cfg.URL.
func NewClient(cfg *config.CalculationConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		// Opens at a 60% failure rate once 10 requests have been seen.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
		newID:   uuid.NewString,
	}
}

// Submit forwards problem and renders the reply as a user-facing message.
// It never returns an error: transport failures become the message text.
func (c *Client) Submit(ctx context.Context, problem string) string {
	req := Request{Problem: problem, ID: c.newID()}

	resp, err := c.cb.Execute(func() (*Response, error) {
		return c.post(ctx, &req)
	})
	if err != nil {
		outcome := OutcomeTransportError
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = OutcomeRejected
		}
		metrics.RecordCalculationRequest(outcome)
		logging.Ctx(ctx).Warn().Err(err).Str("problem_id", req.ID).Msg("Calculation request failed")
		return fmt.Sprintf("Error forwarding request: %s", err)
	}

	if resp.Success {
		metrics.RecordCalculationRequest(OutcomeSuccess)
		return renderValue(resp.Answer, noAnswerMessage)
	}

	metrics.RecordCalculationRequest(OutcomeRemoteError)
	return fmt.Sprintf("Error from processing server: %s", renderValue(resp.Error, unknownErrorMessage))
}

// renderValue turns a reply field into message text. Absent and null
// fields yield fallback.
func renderValue(raw json.RawMessage, fallback string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// State returns the breaker state for health reporting.
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) post(ctx context.Context, payload *Request) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Non-2xx replies still carry {success, error}; only an undecodable body fails.
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}
	return &out, nil
}
