// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package services adapts the service's long-running components to
// suture.Service.
//
// Each wrapper blocks in Serve until its context is canceled and names itself
// through String for supervisor logs. Components are taken as small
// interfaces (HTTPServer, Syncer, GarbageCollector) so this package does not
// import them.
package services
