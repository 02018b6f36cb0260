// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/auditwire/internal/logging"
)

// StartStopper is a background loop with a synchronous Stop.
//
// Satisfied by *wal.RetryLoop and *wal.Compactor.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// StartStopService runs a StartStopper under suture: Start, wait for the
// context, Stop.
type StartStopService struct {
	component StartStopper
	name      string
}

// NewStartStopService wraps component under name.
func NewStartStopService(name string, component StartStopper) *StartStopService {
	return &StartStopService{component: component, name: name}
}

// NewWALRetryLoopService supervises the WAL retry loop.
func NewWALRetryLoopService(retryLoop StartStopper) *StartStopService {
	return NewStartStopService("wal-retry-loop", retryLoop)
}

// NewWALCompactorService supervises the WAL compactor.
func NewWALCompactorService(compactor StartStopper) *StartStopService {
	return NewStartStopService("wal-compactor", compactor)
}

// Serve implements suture.Service. A Start failure is returned so suture
// restarts the service with backoff.
func (s *StartStopService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()
	s.component.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's event log.
func (s *StartStopService) String() string {
	return s.name
}

// Component has a context-bounded Shutdown.
//
// Satisfied by *audit.Publisher and *eventprocessor.StoreConsumer.
type Component interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// ComponentService runs a Component under suture. Shutdown gets a fresh
// context with its own deadline because the serve context is already
// canceled by then.
type ComponentService struct {
	component       Component
	shutdownTimeout time.Duration
	name            string
}

// NewComponentService wraps component. A non-positive timeout defaults to
// 10 seconds.
func NewComponentService(name string, component Component, shutdownTimeout time.Duration) *ComponentService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &ComponentService{
		component:       component,
		shutdownTimeout: shutdownTimeout,
		name:            name,
	}
}

// Serve implements suture.Service.
func (s *ComponentService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.component.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Component shutdown incomplete")
	}

	return ctx.Err()
}

// String implements fmt.Stringer for suture's event log.
func (s *ComponentService) String() string {
	return s.name
}
