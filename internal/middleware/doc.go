// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package middleware provides HTTP middleware shared by every route:
// request ID propagation and Prometheus instrumentation. Both are
// chi-compatible func(http.Handler) http.Handler values.
package middleware
