// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// ComplianceCounts counts entries tagged for each framework.
type ComplianceCounts struct {
	SOC2     int64 `json:"soc2_events"`
	ISO27001 int64 `json:"iso27001_events"`
	GDPR     int64 `json:"gdpr_events"`
}

// Period is the time range a statistic or report covers.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Stats aggregates the entries matching a filter.
type Stats struct {
	TotalEvents        int64            `json:"total_events"`
	EventsByType       map[string]int64 `json:"events_by_type"`
	EventsByCategory   map[string]int64 `json:"events_by_category"`
	EventsByRiskLevel  map[string]int64 `json:"events_by_risk_level"`
	EventsBySeverity   map[string]int64 `json:"events_by_severity"`
	EventsByOutcome    map[string]int64 `json:"events_by_outcome"`
	ComplianceEvents   ComplianceCounts `json:"compliance_events"`
	Period             Period           `json:"period"`
	OldestEvent        *Timestamp       `json:"oldest_event,omitempty"`
	NewestEvent        *Timestamp       `json:"newest_event,omitempty"`
	SkippedRecords     int              `json:"skipped_records"`
	HighRiskEventCount int64            `json:"high_risk_events"`
}

// Aggregate computes statistics over entries.
func Aggregate(entries []Entry) *Stats {
	stats := &Stats{
		EventsByType:      make(map[string]int64),
		EventsByCategory:  make(map[string]int64),
		EventsByRiskLevel: make(map[string]int64),
		EventsBySeverity:  make(map[string]int64),
		EventsByOutcome:   make(map[string]int64),
	}

	for idx := range entries {
		e := &entries[idx]
		stats.TotalEvents++
		stats.EventsByType[string(e.EventType)]++
		stats.EventsByCategory[string(e.EventCategory)]++
		stats.EventsByRiskLevel[string(e.RiskLevel)]++
		stats.EventsBySeverity[string(e.Severity)]++
		stats.EventsByOutcome[string(e.Outcome)]++

		if e.Compliance.SOC2Relevant {
			stats.ComplianceEvents.SOC2++
		}
		if e.Compliance.ISO27001Relevant {
			stats.ComplianceEvents.ISO27001++
		}
		if e.Compliance.GDPRRelevant {
			stats.ComplianceEvents.GDPR++
		}
		if e.RiskLevel == RiskHigh || e.RiskLevel == RiskCritical {
			stats.HighRiskEventCount++
		}

		if stats.OldestEvent == nil || e.Timestamp.Before(stats.OldestEvent.Time) {
			ts := e.Timestamp
			stats.OldestEvent = &ts
		}
		if stats.NewestEvent == nil || e.Timestamp.After(stats.NewestEvent.Time) {
			ts := e.Timestamp
			stats.NewestEvent = &ts
		}
	}
	return stats
}

// Stats aggregates every entry matching f.
func (r *Reader) Stats(ctx context.Context, f Filter) (*Stats, error) {
	start := time.Now()

	res, err := r.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	stats := Aggregate(res.Entries)
	stats.SkippedRecords = res.Skipped
	stats.Period = periodOf(f)

	metrics.AuditQueryDuration.WithLabelValues("stats").Observe(time.Since(start).Seconds())
	return stats, nil
}

func periodOf(f Filter) Period {
	var p Period
	if !f.Start.IsZero() {
		p.Start = NewTimestamp(f.Start).String()
	}
	if !f.End.IsZero() {
		p.End = NewTimestamp(f.End).String()
	}
	return p
}
