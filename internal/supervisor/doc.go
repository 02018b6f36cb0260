// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package supervisor provides process supervision for auditwire using suture v4.

Every long-running component runs under one supervisor tree, organized in
three layers so that a failing layer restarts on its own:

	RootSupervisor ("auditwire")
	├── DataSupervisor ("data-layer")
	│   ├── RevocationList sweeper
	│   ├── WALRetryLoopService (if WAL_ENABLED)
	│   └── WALCompactorService (if WAL_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── audit-publisher (delivery workers)
	│   └── audit-consumer (if NATS and the in-process consumer are enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The embedded NATS server and DuckDB are not supervised. Both are opened
before the tree starts and closed after it stops, since nothing in the tree
can work without them.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewComponentService("audit-publisher", publisher, 10*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

# Failure Handling

Suture counts failures with exponential decay (FailureDecay seconds). When the
count exceeds FailureThreshold the supervisor waits FailureBackoff before the
next restart. Serve returning nil means a clean stop and is not restarted.

If services do not stop within ShutdownTimeout, UnstoppedServiceReport names
them.
*/
package supervisor
