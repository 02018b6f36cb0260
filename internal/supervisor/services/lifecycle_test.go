// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeLoop records lifecycle calls for both service kinds.
type fakeLoop struct {
	startErr    error
	shutdownErr error
	running     atomic.Bool
	starts      atomic.Int32
	stops       atomic.Int32
	lastTimeout atomic.Int64
}

func (f *fakeLoop) Start(context.Context) error {
	f.starts.Add(1)
	if f.startErr != nil {
		return f.startErr
	}
	f.running.Store(true)
	return nil
}

func (f *fakeLoop) Stop() {
	f.stops.Add(1)
	f.running.Store(false)
}

func (f *fakeLoop) Shutdown(ctx context.Context) error {
	f.stops.Add(1)
	f.running.Store(false)
	if deadline, ok := ctx.Deadline(); ok {
		f.lastTimeout.Store(int64(time.Until(deadline)))
	}
	if ctx.Err() != nil {
		return errors.New("shutdown got a canceled context")
	}
	return f.shutdownErr
}

func (f *fakeLoop) IsRunning() bool { return f.running.Load() }

var (
	_ suture.Service = (*StartStopService)(nil)
	_ suture.Service = (*ComponentService)(nil)
)

func serveUntilCancel(t *testing.T, svc suture.Service, running func() bool) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !running() {
		if time.Now().After(deadline) {
			t.Fatal("component did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
		return nil
	}
}

func TestStartStopService(t *testing.T) {
	tests := []struct {
		name string
		ctor func(StartStopper) *StartStopService
	}{
		{"wal-retry-loop", NewWALRetryLoopService},
		{"wal-compactor", NewWALCompactorService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := &fakeLoop{}
			svc := tt.ctor(loop)
			if svc.String() != tt.name {
				t.Errorf("String() = %q, want %q", svc.String(), tt.name)
			}

			err := serveUntilCancel(t, svc, loop.IsRunning)
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() error = %v, want context.Canceled", err)
			}
			if loop.stops.Load() != 1 {
				t.Errorf("Stop calls = %d, want 1", loop.stops.Load())
			}
		})
	}
}

func TestStartStopService_StartError(t *testing.T) {
	startErr := errors.New("wal closed")
	svc := NewStartStopService("wal-retry-loop", &fakeLoop{startErr: startErr})

	if err := svc.Serve(context.Background()); !errors.Is(err, startErr) {
		t.Errorf("Serve() error = %v, want %v", err, startErr)
	}
}

func TestComponentService(t *testing.T) {
	comp := &fakeLoop{}
	svc := NewComponentService("audit-publisher", comp, 3*time.Second)

	err := serveUntilCancel(t, svc, comp.IsRunning)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if comp.stops.Load() != 1 {
		t.Fatalf("Shutdown calls = %d, want 1", comp.stops.Load())
	}
	if got := time.Duration(comp.lastTimeout.Load()); got <= 0 || got > 3*time.Second {
		t.Errorf("shutdown deadline = %v, want within 3s", got)
	}
}

func TestComponentService_ShutdownErrorIsNotFatal(t *testing.T) {
	comp := &fakeLoop{shutdownErr: context.DeadlineExceeded}
	svc := NewComponentService("audit-consumer", comp, 0)

	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("default timeout = %v, want 10s", svc.shutdownTimeout)
	}
	if err := serveUntilCancel(t, svc, comp.IsRunning); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestComponentService_StartError(t *testing.T) {
	startErr := errors.New("subscribe failed")
	svc := NewComponentService("audit-consumer", &fakeLoop{startErr: startErr}, time.Second)

	if err := svc.Serve(context.Background()); !errors.Is(err, startErr) {
		t.Errorf("Serve() error = %v, want %v", err, startErr)
	}
}
