// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package logging provides the zerolog-based application logger.
//
// Application logs are operational diagnostics and are distinct from the
// audit trail in package audit: they may be sampled, dropped or reconfigured
// at runtime, audit entries may not.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Ctx(ctx).Warn().Int("skipped", n).Msg("Audit log read degraded")
//
// Ctx adds the request_id and user_id stored by the HTTP middleware.
// SlogHandler adapts zerolog to log/slog for libraries that require it
// (suture, watermill).
//
// Always terminate event chains with Msg or Send; an unterminated chain
// emits nothing.
package logging
