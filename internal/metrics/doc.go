// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

/*
Package metrics provides Prometheus metrics for the audit trail and its API.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router.

# Audit Metrics

  - audit_entries_logged_total{category,severity}: entries persisted
  - audit_write_failures_total{sink}: required sink failures (durability loss)
  - audit_optional_sink_failures_total{sink}: index or stream failures
  - audit_segment_rotations_total{sink}: log segment rotations
  - audit_skipped_lines_total: malformed lines skipped by the reader
  - audit_query_duration_seconds{operation}: log scan latency

# Compliance Metrics

  - compliance_reports_generated_total{report_type,status}
  - compliance_report_duration_seconds{report_type}

Alert on audit_write_failures_total: any increase means an entry did not reach
durable storage.
*/
package metrics
