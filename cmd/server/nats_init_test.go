// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package main

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/eventprocessor"
	"github.com/tomtom215/auditwire/internal/wal"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *message.Message) error { return nil }

func TestInitNATS_Disabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.NATS.Enabled = false

	c, err := initNATS(context.Background(), cfg, audit.NewMemoryStore())
	if err != nil {
		t.Fatalf("initNATS() error = %v", err)
	}
	if c != nil {
		t.Fatal("initNATS() should return nil components when NATS is disabled")
	}
}

func TestInitSpool_Disabled(t *testing.T) {
	c, err := initSpool(context.Background(), &config.WALConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("initSpool() error = %v", err)
	}
	if c != nil {
		t.Fatal("initSpool() should return nil components when the WAL is disabled")
	}
}

func TestNATSComponents_NilSafe(t *testing.T) {
	var c *natsComponents

	// Should not panic
	c.shutdown(context.Background())

	if c.SpoolStats() != nil {
		t.Error("SpoolStats() should be nil for nil components")
	}

	var s *spoolComponents
	s.close()
	if got := s.Stats(); got != (wal.Stats{}) {
		t.Errorf("Stats() = %+v, want zero value", got)
	}
}

func TestNATSComponents_Deliverer(t *testing.T) {
	broker, err := eventprocessor.NewBrokerDeliverer(nopPublisher{})
	if err != nil {
		t.Fatalf("NewBrokerDeliverer() error = %v", err)
	}

	c := &natsComponents{broker: broker}
	if c.Deliverer() != broker {
		t.Error("Deliverer() should be the broker when the WAL is disabled")
	}
	if c.SpoolStats() != nil {
		t.Error("SpoolStats() should be nil when the WAL is disabled")
	}

	spool := &eventprocessor.SpoolDeliverer{}
	c.spool = &spoolComponents{deliverer: spool}
	if c.Deliverer() != spool {
		t.Error("Deliverer() should be the spool when the WAL is enabled")
	}
	if c.SpoolStats() == nil {
		t.Error("SpoolStats() should report the spool when the WAL is enabled")
	}
}

func TestServerConfigFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := serverConfigFrom(&config.NATSConfig{})
		want := eventprocessor.DefaultServerConfig()
		if got != want {
			t.Errorf("serverConfigFrom() = %+v, want %+v", got, want)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		got := serverConfigFrom(&config.NATSConfig{
			StoreDir:  "/tmp/js",
			MaxMemory: 1 << 20,
			MaxStore:  1 << 24,
			Username:  "broker",
			Password:  "secret",
		})
		if got.StoreDir != "/tmp/js" {
			t.Errorf("StoreDir = %q", got.StoreDir)
		}
		if got.JetStreamMaxMem != 1<<20 || got.JetStreamMaxStore != 1<<24 {
			t.Errorf("limits = %d/%d", got.JetStreamMaxMem, got.JetStreamMaxStore)
		}
		if got.Username != "broker" || got.Password != "secret" {
			t.Errorf("credentials = %q/%q", got.Username, got.Password)
		}
		if got.Host != "127.0.0.1" {
			t.Errorf("Host = %q, want loopback", got.Host)
		}
	})
}

func TestSubscriberConfigFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := subscriberConfigFrom("nats://x:4222", &config.NATSConfig{})
		want := eventprocessor.DefaultSubscriberConfig("nats://x:4222")
		if got != want {
			t.Errorf("subscriberConfigFrom() = %+v, want %+v", got, want)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		got := subscriberConfigFrom("nats://x:4222", &config.NATSConfig{
			DurableName:      "store-2",
			QueueGroup:       "group-2",
			SubscribersCount: 3,
			AckWaitTimeout:   time.Minute,
			MaxDeliver:       10,
			ReconnectWait:    time.Second,
		})
		if got.DurableName != "store-2" || got.QueueGroup != "group-2" {
			t.Errorf("names = %q/%q", got.DurableName, got.QueueGroup)
		}
		if got.SubscribersCount != 3 {
			t.Errorf("SubscribersCount = %d", got.SubscribersCount)
		}
		if got.AckWaitTimeout != time.Minute {
			t.Errorf("AckWaitTimeout = %v", got.AckWaitTimeout)
		}
		if got.MaxDeliver != 10 {
			t.Errorf("MaxDeliver = %d", got.MaxDeliver)
		}
		if got.ReconnectWait != time.Second {
			t.Errorf("ReconnectWait = %v", got.ReconnectWait)
		}
	})
}

func TestWALConfigFrom(t *testing.T) {
	got := walConfigFrom(&config.WALConfig{
		Path:          "/tmp/wal",
		SyncWrites:    false,
		MaxRetries:    7,
		LeaseDuration: 30 * time.Second,
		ReplayRate:    25,
	})
	defaults := wal.DefaultConfig()

	if got.Path != "/tmp/wal" {
		t.Errorf("Path = %q", got.Path)
	}
	if got.SyncWrites {
		t.Error("SyncWrites should follow the configured value")
	}
	if got.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d", got.MaxRetries)
	}
	if got.LeaseDuration != 30*time.Second {
		t.Errorf("LeaseDuration = %v", got.LeaseDuration)
	}
	if got.ReplayRate != 25 {
		t.Errorf("ReplayRate = %v", got.ReplayRate)
	}
	if got.RetryInterval != defaults.RetryInterval {
		t.Errorf("RetryInterval = %v, want default %v", got.RetryInterval, defaults.RetryInterval)
	}
	if got.EntryTTL != defaults.EntryTTL {
		t.Errorf("EntryTTL = %v, want default %v", got.EntryTTL, defaults.EntryTTL)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestPublisherConfigFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := publisherConfigFrom(&config.AuditConfig{})
		if got != audit.DefaultPublisherConfig() {
			t.Errorf("publisherConfigFrom() = %+v, want defaults", got)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		got := publisherConfigFrom(&config.AuditConfig{
			QueueSize:       16,
			Workers:         2,
			QueueFullPolicy: "block",
			BlockTimeout:    time.Second,
			DeliveryTimeout: 2 * time.Second,
		})
		if got.QueueSize != 16 || got.Workers != 2 {
			t.Errorf("sizes = %d/%d", got.QueueSize, got.Workers)
		}
		if got.Policy != audit.PolicyBlock {
			t.Errorf("Policy = %q", got.Policy)
		}
		if got.BlockTimeout != time.Second || got.DeliveryTimeout != 2*time.Second {
			t.Errorf("timeouts = %v/%v", got.BlockTimeout, got.DeliveryTimeout)
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		got := publisherConfigFrom(&config.AuditConfig{QueueFullPolicy: "explode"})
		if got.Policy != audit.PolicyDropNewest {
			t.Errorf("Policy = %q, want drop_newest", got.Policy)
		}
	})
}
