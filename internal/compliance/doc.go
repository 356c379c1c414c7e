// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package compliance generates SOC2 and ISO 27001 reports from the audit
// trail.
//
// A report covers a closed date range. Generation is itself audited: a
// compliance.audit.start entry is written before the range is read and a
// compliance.audit.end entry after the report is built (outcome completed)
// or after it fails (outcome failure).
//
// Scores come from a Policy. DefaultPolicy weights deficient entries by
// risk; see WeightedDeficiencyScore.
package compliance
