// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

/*
Command server runs the ChaseWhiteRabbit audit trail service.

Startup order:

 1. Configuration: koanf (defaults, then config.yaml, then environment)
 2. Logging: zerolog, json or console
 3. Audit trail: primary and critical segment files, then the optional
    BadgerDB index (backfilled from the primary log) and the optional NATS
    stream sink
 4. Compliance report generator
 5. Chi router serving /api/audit, /health and /metrics
 6. Supervisor tree: audit flush and index GC in the storage layer, the
    HTTP server in the API layer

A system.startup entry is recorded once the tree is assembled and a
system.shutdown entry after it stops. SIGINT and SIGTERM trigger a graceful
shutdown.
*/
package main
