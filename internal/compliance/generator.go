// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// Querier reads the audit trail.
type Querier interface {
	Query(ctx context.Context, f audit.Filter) (*audit.QueryResult, error)
}

// EventLogger records audit entries without failing the caller.
type EventLogger interface {
	LogEvent(ctx context.Context, eventType audit.EventType, c audit.Context) string
}

// Generator builds compliance reports.
type Generator struct {
	reader Querier
	audit  EventLogger
	policy Policy
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(g *Generator) {
		if p.Score != nil {
			g.policy.Score = p.Score
		}
		if p.Status != nil {
			g.policy.Status = p.Status
		}
	}
}

// WithClock sets the clock used for generated_at.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator reading from reader and auditing itself
// through logger.
func NewGenerator(reader Querier, logger EventLogger, opts ...Option) *Generator {
	g := &Generator{
		reader: reader,
		audit:  logger,
		policy: DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a report of type t for the inclusive range start..end.
// Both bounds are required and accept RFC 3339 timestamps or YYYY-MM-DD
// dates; a date-only end covers the whole day. Invalid input returns an
// *audit.ValidationError before anything is audited.
func (g *Generator) Generate(ctx context.Context, t ReportType, start, end string, actor audit.Fields) (*Report, error) {
	began := time.Now()

	filter, err := parseRange(t, start, end)
	if err != nil {
		return nil, err
	}
	period := audit.Period{Start: start, End: end}

	g.audit.LogEvent(ctx, audit.EventComplianceAuditStart, audit.Context{
		User:    actor,
		Outcome: audit.OutcomeInitiated,
		Details: audit.Fields{
			"report_type": string(t),
			"period":      map[string]any{"start": start, "end": end},
		},
	})

	report, err := g.build(ctx, t, filter, period, actor)
	metrics.RecordComplianceReport(string(t), time.Since(began), err)
	if err != nil {
		g.audit.LogEvent(ctx, audit.EventComplianceAuditEnd, audit.Context{
			User:    actor,
			Outcome: audit.OutcomeFailure,
			Details: audit.Fields{
				"report_type": string(t),
				"error":       err.Error(),
			},
		})
		return nil, fmt.Errorf("generate %s report: %w", t, err)
	}

	g.audit.LogEvent(ctx, audit.EventComplianceAuditEnd, audit.Context{
		User:    actor,
		Outcome: audit.OutcomeCompleted,
		Details: audit.Fields{
			"report_type":      string(t),
			"report_id":        report.ReportID,
			"events_analyzed":  report.Summary["total_events"],
			"compliance_score": report.ComplianceScore,
		},
	})

	logging.Ctx(ctx).Info().
		Str("report_type", string(t)).
		Str("report_id", report.ReportID).
		Int("events_analyzed", report.Summary["total_events"]).
		Float64("compliance_score", report.ComplianceScore).
		Dur("duration", time.Since(began)).
		Msg("Compliance report generated")

	return report, nil
}

func parseRange(t ReportType, start, end string) (audit.Filter, error) {
	if !t.Valid() {
		return audit.Filter{}, audit.NewValidationError("report_type", "must be one of soc2, iso27001")
	}
	if start == "" {
		return audit.Filter{}, audit.NewValidationError("start_date", "is required")
	}
	if end == "" {
		return audit.Filter{}, audit.NewValidationError("end_date", "is required")
	}
	from, err := audit.ParseDate("start_date", start, false)
	if err != nil {
		return audit.Filter{}, err
	}
	to, err := audit.ParseDate("end_date", end, true)
	if err != nil {
		return audit.Filter{}, err
	}
	if to.Before(from) {
		return audit.Filter{}, audit.NewValidationError("end_date", "must not be before start_date")
	}
	return audit.Filter{Start: from, End: to}, nil
}

func (g *Generator) build(ctx context.Context, t ReportType, f audit.Filter, period audit.Period, actor audit.Fields) (*Report, error) {
	res, err := g.reader.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	entries := relevant(t, res.Entries)
	summary := summarize(t, entries)

	report := &Report{
		ReportID:       uuid.NewString(),
		ReportType:     t,
		Title:          t.Title(),
		Period:         period,
		GeneratedAt:    audit.NewTimestamp(g.now()),
		GeneratedBy:    actor.Str("id"),
		Summary:        summary,
		SkippedRecords: res.Skipped,
	}

	var assessments map[string]Assessment
	if t == ReportSOC2 {
		assessments = assess(g.policy, soc2Criteria, entries)
		report.TrustServicesCriteria = assessments
	} else {
		assessments = assess(g.policy, iso27001Controls, entries)
		report.ControlCategories = assessments
	}

	report.ComplianceScore = g.policy.Score(entries)
	report.ComplianceStatus = g.policy.Status(report.ComplianceScore)
	if overallStatus(assessments) == StatusNonCompliant {
		report.ComplianceStatus = StatusNonCompliant
	}
	report.Recommendations = recommend(t, summary, assessments)
	return report, nil
}
