// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

/*
Package api serves the audit trail over HTTP.

# Routes

All audit routes live under /api/audit and require the auditor role:

	GET /api/audit/events                 filtered, paginated entries
	GET /api/audit/trail/{audit_id}       one entry and its related entries
	GET /api/audit/statistics             aggregates for an optional range
	GET /api/audit/compliance/soc2        SOC2 report (start_date, end_date required)
	GET /api/audit/compliance/iso27001    ISO 27001 report (start_date, end_date required)
	GET /api/audit/types                  event type catalog
	GET /api/audit/export                 json, ndjson or cef download

GET /health and GET /metrics sit outside the audit group.

# Middleware

Every route gets request IDs, real IP resolution, panic recovery and CORS.
The audit group then runs, in order: rate limiting (per client IP), security
headers, Prometheus metrics, RequireAuth, AccessAudit and
RequireAuditPermission. AccessAudit runs before the permission check so
denied requests are still recorded as api.request entries.

# Responses

Every JSON response uses the APIResponse envelope. Errors carry a machine
readable code such as VALIDATION_FAILED, NOT_FOUND or SOC2_REPORT_ERROR.
Handler failures are also recorded as system.error audit entries.
*/
package api
