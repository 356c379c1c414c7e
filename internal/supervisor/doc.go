// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

/*
Package supervisor runs the service's long-lived goroutines under a suture v4
tree.

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddStorageService(services.NewFlushService(writer, cfg.Audit.FlushInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err := tree.Serve(ctx)

Crashed services restart with backoff. Canceling ctx stops every service and
waits up to ShutdownTimeout for each. Supervisor events (restarts, backoff,
timeouts) are logged through sutureslog into the zerolog pipeline.

See package services for the service wrappers.
*/
package supervisor
