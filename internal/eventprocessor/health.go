// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package eventprocessor

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatusType represents the overall health status.
type HealthStatusType string

const (
	HealthStatusHealthy   HealthStatusType = "healthy"
	HealthStatusDegraded  HealthStatusType = "degraded"
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Critical  bool      `json:"critical"`
	Error     string    `json:"error,omitempty"`
	LastCheck time.Time `json:"last_check"`
}

// HealthCheckFunc checks one component. A nil error means healthy.
type HealthCheckFunc func(ctx context.Context) error

type registeredCheck struct {
	check    HealthCheckFunc
	critical bool
}

// OverallHealth is the aggregated health of every registered component.
type OverallHealth struct {
	Status     HealthStatusType  `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// HealthChecker runs the registered checks with a per-check timeout. A failed
// critical component makes the pipeline unhealthy; any other failure only
// degrades it.
type HealthChecker struct {
	timeout time.Duration
	mu      sync.RWMutex
	checks  map[string]registeredCheck
}

// NewHealthChecker creates a health checker. A non-positive timeout defaults
// to 5 seconds.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		timeout: timeout,
		checks:  make(map[string]registeredCheck),
	}
}

// Register adds or replaces the check for name.
func (h *HealthChecker) Register(name string, critical bool, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = registeredCheck{check: check, critical: critical}
}

// CheckAll runs every check concurrently. Components are returned sorted by
// name.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	checks := make(map[string]registeredCheck, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	results := make([]ComponentHealth, 0, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := h.run(ctx, name, c)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	overall := OverallHealth{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now().UTC(),
		Components: results,
	}
	for _, r := range results {
		switch {
		case r.Healthy:
		case r.Critical:
			overall.Status = HealthStatusUnhealthy
		case overall.Status == HealthStatusHealthy:
			overall.Status = HealthStatusDegraded
		}
	}
	return overall
}

func (h *HealthChecker) run(ctx context.Context, name string, c registeredCheck) ComponentHealth {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.check(checkCtx) }()

	result := ComponentHealth{Name: name, Critical: c.critical}
	select {
	case err := <-errCh:
		result.Healthy = err == nil
		if err != nil {
			result.Error = err.Error()
		}
	case <-checkCtx.Done():
		result.Error = "health check timeout"
	}
	result.LastCheck = time.Now().UTC()
	return result
}
