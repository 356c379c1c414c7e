// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the audit trail and its HTTP surface.

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Audit Write Metrics
	AuditEntriesLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_logged_total",
			Help: "Total number of audit entries persisted",
		},
		[]string{"category", "severity"},
	)

	AuditWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of failed writes to required audit sinks",
		},
		[]string{"sink"},
	)

	AuditOptionalSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_optional_sink_failures_total",
			Help: "Total number of failed writes to optional audit sinks",
		},
		[]string{"sink"},
	)

	AuditDerivationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_derivation_failures_total",
			Help: "Total number of audit entries built with fallback defaults",
		},
	)

	AuditWriteLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_write_latency_seconds",
			Help:    "Latency of one audit append across all sinks",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	AuditSegmentRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_segment_rotations_total",
			Help: "Total number of audit log segment rotations",
		},
		[]string{"sink"},
	)

	// Audit Read Metrics
	AuditQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_query_duration_seconds",
			Help:    "Duration of audit log scans",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	AuditSkippedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_skipped_lines_total",
			Help: "Total number of malformed audit log lines skipped while reading",
		},
	)

	// Compliance Metrics
	ComplianceReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_reports_generated_total",
			Help: "Total number of compliance reports generated",
		},
		[]string{"report_type", "status"},
	)

	ComplianceReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compliance_report_duration_seconds",
			Help:    "Duration of compliance report generation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report_type"},
	)

	// Index Metrics
	IndexLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_index_lookups_total",
			Help: "Total number of audit index lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Stream Metrics
	StreamPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_stream_published_total",
			Help: "Total number of audit entries published to the event stream",
		},
	)

	StreamCircuitOpen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_stream_circuit_open_total",
			Help: "Total number of publishes rejected by the open circuit breaker",
		},
	)
)

// RecordAPIRequest records API request metrics.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuditEntry records a persisted audit entry.
func RecordAuditEntry(category, severity string, duration time.Duration) {
	AuditEntriesLogged.WithLabelValues(category, severity).Inc()
	AuditWriteLatency.Observe(duration.Seconds())
}

// RecordSinkFailure records a failed sink write.
func RecordSinkFailure(sink string, optional bool) {
	if optional {
		AuditOptionalSinkFailures.WithLabelValues(sink).Inc()
		return
	}
	AuditWriteFailures.WithLabelValues(sink).Inc()
}

// RecordAuditQuery records a log scan and the malformed lines it skipped.
func RecordAuditQuery(operation string, duration time.Duration, skipped int) {
	AuditQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if skipped > 0 {
		AuditSkippedLines.Add(float64(skipped))
	}
}

// RecordComplianceReport records a report generation attempt.
func RecordComplianceReport(reportType string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ComplianceReportsGenerated.WithLabelValues(reportType, status).Inc()
	ComplianceReportDuration.WithLabelValues(reportType).Observe(duration.Seconds())
}
