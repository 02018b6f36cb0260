// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/auditwire/internal/api"
	"github.com/tomtom215/auditwire/internal/audit"
	"github.com/tomtom215/auditwire/internal/auth"
	"github.com/tomtom215/auditwire/internal/authz"
	"github.com/tomtom215/auditwire/internal/calculation"
	"github.com/tomtom215/auditwire/internal/config"
	"github.com/tomtom215/auditwire/internal/database"
	"github.com/tomtom215/auditwire/internal/eventprocessor"
	"github.com/tomtom215/auditwire/internal/logging"
	"github.com/tomtom215/auditwire/internal/supervisor"
	"github.com/tomtom215/auditwire/internal/supervisor/services"
	"github.com/tomtom215/auditwire/internal/users"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("wal_enabled", cfg.WAL.Enabled).
		Str("admin", cfg.Security.AdminUsername).
		Msg("Starting Auditwire with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Strs("cors_origins", cfg.Security.CORSOrigins).
			Msg("CORS allows any origin; set CORS_ORIGINS before exposing the portal")
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create audit_events table")
	}
	userStore := users.NewDuckDBStore(db.Conn())
	if err := userStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create users table")
	}
	logging.Info().Msg("Database initialized successfully")

	enforcer, err := authz.NewEnforcer(cfg.Security.AdminUsername)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create authorization enforcer")
	}
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JWT manager")
	}
	revocations := auth.NewRevocationList(0)

	// Bridges zerolog to slog for sutureslog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	natsComponents, err := initNATS(ctx, cfg, auditStore)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS audit pipeline")
	}

	var deliverer audit.Deliverer = audit.DelivererFunc(auditStore.Append)
	if natsComponents != nil {
		deliverer = natsComponents.Deliverer()
	}

	auditPublisher, err := audit.NewPublisher(deliverer, publisherConfigFrom(&cfg.Audit))
	if err != nil {
		natsComponents.shutdown(context.Background())
		logging.Fatal().Err(err).Msg("Failed to create audit publisher")
	}
	// Started outside the tree so it drains only after the HTTP server has
	// stopped taking requests.
	if err := auditPublisher.Start(ctx); err != nil {
		natsComponents.shutdown(context.Background())
		logging.Fatal().Err(err).Msg("Failed to start audit publisher")
	}

	accounts := users.NewService(userStore, auditPublisher, enforcer)
	created, err := accounts.EnsureAdmin(ctx, cfg.Security.AdminUsername, cfg.Security.AdminPassword)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to bootstrap admin account")
	} else if !created && cfg.Security.AdminPassword == "" {
		logging.Info().Msg("ADMIN_PASSWORD not set, admin account bootstrap skipped")
	}

	calc := calculation.NewClient(&cfg.Calculation)

	health := eventprocessor.NewHealthChecker(5 * time.Second)
	health.Register("database", true, db.Ping)
	health.Register("calculation", false, func(context.Context) error {
		if state := calc.State(); state == "open" {
			return fmt.Errorf("circuit breaker %s", state)
		}
		return nil
	})
	if natsComponents != nil {
		natsComponents.registerHealth(health)
	}

	handler := api.NewHandler(cfg, accounts, audit.NewQueryService(auditStore, enforcer), jwtManager, revocations)
	handler.SetCalculator(calc)
	handler.SetHealthChecker(health)
	handler.SetStatsSources(auditStore, auditPublisher, natsComponents.SpoolStats())

	router := api.NewRouter(
		handler,
		auth.NewMiddleware(jwtManager, revocations),
		enforcer,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddDataService(revocations)
	if natsComponents != nil {
		natsComponents.addServices(tree, cfg.Server.ShutdownTimeout)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := auditPublisher.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("Audit publisher did not drain before the shutdown deadline")
	}
	stats := auditPublisher.Stats()
	logging.Info().
		Int64("enqueued", stats.Enqueued).
		Int64("delivered", stats.Delivered).
		Int64("failed", stats.Failed).
		Int64("dropped", stats.Dropped).
		Msg("Audit publisher stopped")

	natsComponents.shutdown(shutdownCtx)
	if err := revocations.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing revocation list")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// publisherConfigFrom overlays the configured audit settings on the publisher
// defaults. An unknown queue-full policy falls back to drop_newest.
func publisherConfigFrom(c *config.AuditConfig) audit.PublisherConfig {
	cfg := audit.DefaultPublisherConfig()
	if c.QueueSize > 0 {
		cfg.QueueSize = c.QueueSize
	}
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.QueueFullPolicy != "" {
		policy, err := audit.ParseQueueFullPolicy(c.QueueFullPolicy)
		if err != nil {
			logging.Warn().Err(err).Str("policy", c.QueueFullPolicy).Msg("Unknown queue-full policy, using drop_newest")
		} else {
			cfg.Policy = policy
		}
	}
	if c.BlockTimeout > 0 {
		cfg.BlockTimeout = c.BlockTimeout
	}
	if c.DeliveryTimeout > 0 {
		cfg.DeliveryTimeout = c.DeliveryTimeout
	}
	return cfg
}
