// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package audit implements the append-only audit trail of the dice service.
//
// Every security and compliance relevant action is recorded as one immutable
// Entry: a classified, risk-scored, compliance-tagged JSON record appended to
// newline-delimited log files that external compliance tooling can parse
// directly.
//
// # Event Catalog
//
// Event types are dot-namespaced and wire-stable. A single static table
// (see Classify) carries the category, default risk, SOC2 / ISO 27001 / GDPR
// relevance and retention period of each type:
//
//   - auth.*:       login success and failure, logout, token refresh, password changes
//   - authz.*:      access granted and denied, permission and role changes
//   - data.*:       read, create, update, delete, export, import
//   - system.*:     config change, startup, shutdown, error, maintenance
//   - security.*:   threat detected, policy violation, vulnerability scan, incident
//   - compliance.*: audit start and end, policy update, training completed
//   - api.*:        request, rate limit exceeded, deprecation warning
//
// Unknown types are accepted with a fallback classification so that audit
// logging is never the reason a request fails.
//
// # Architecture
//
//	Logger.LogEvent() -> Builder.Build() -> Writer.Append() -> primary SegmentSink (all entries)
//	                                                        -> critical SegmentSink (severity=error)
//	                                                        -> optional sinks (index, stream)
//
// Appends are synchronous: when LogEvent returns, the entry has been handed
// to the operating system by every required sink (and fsynced when
// SyncWrites is set). Required sink failures surface as *WriteFailure from
// Writer.Append and Logger.Record; LogEvent logs and counts them instead of
// returning them. Optional sink failures are logged and counted only.
//
// # Usage Example
//
//	primary, _ := audit.OpenSegmentSink("primary", audit.SegmentConfig{
//	    Path: "/var/lib/cwr/audit.log", MaxBytes: 100 << 20, MaxSegments: 10,
//	})
//	critical, _ := audit.OpenSegmentSink("critical", audit.SegmentConfig{
//	    Path: "/var/lib/cwr/audit-critical.log", MaxBytes: 50 << 20, MaxSegments: 20,
//	})
//	writer := audit.NewWriter(
//	    audit.Route{Sink: primary},
//	    audit.Route{Sink: critical, MinSeverity: audit.SeverityError},
//	)
//	logger := audit.NewLogger(audit.NewBuilder(meta), writer, audit.DefaultConfig())
//
//	logger.LogEvent(ctx, audit.EventLoginFailed, audit.Context{
//	    User:    audit.User("u-42", "player@example.com"),
//	    Request: audit.RequestFromHTTP(r),
//	    Outcome: audit.OutcomeFailure,
//	})
//
// Querying:
//
//	reader := audit.NewReader(primary)
//	res, _ := reader.Query(ctx, audit.Filter{RiskLevel: audit.RiskHigh})
//	page, _ := audit.Paginate(res.Entries, audit.Page{Limit: 50})
//	related, _ := reader.FindRelated(ctx, page.Entries[0], audit.DefaultRelatedWindow)
//
// # Thread Safety
//
// Logger, Writer, SegmentSink and Reader are safe for concurrent use. Reads
// do not block appends and observe an eventually consistent view.
package audit
