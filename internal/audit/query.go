// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"context"
	"errors"
	"fmt"
)

// Gate decides whether a principal may read the audit trail.
type Gate interface {
	IsPrivileged(principal string) bool
}

// QueryService is the read path over a Store, restricted to the
// privileged principal.
type QueryService struct {
	store Store
	gate  Gate
}

// NewQueryService creates a query service.
func NewQueryService(store Store, gate Gate) *QueryService {
	return &QueryService{store: store, gate: gate}
}

// ListAll returns the full trail in occurrence order.
func (q *QueryService) ListAll(ctx context.Context, principal string) ([]Envelope, error) {
	if !q.gate.IsPrivileged(principal) {
		return nil, ErrForbidden
	}
	envs, err := q.store.ListAll(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return envs, nil
}

// ListForActor returns the trail of one actor in occurrence order.
func (q *QueryService) ListForActor(ctx context.Context, principal, username string) ([]Envelope, error) {
	if !q.gate.IsPrivileged(principal) {
		return nil, ErrForbidden
	}
	envs, err := q.store.ListForActor(ctx, username)
	if err != nil {
		return nil, storeError(err)
	}
	return envs, nil
}

func storeError(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
