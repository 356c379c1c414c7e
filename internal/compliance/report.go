// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
)

// ReportType selects the framework a report is generated for.
type ReportType string

const (
	ReportSOC2     ReportType = "soc2"
	ReportISO27001 ReportType = "iso27001"
)

// Valid reports whether t is a supported framework.
func (t ReportType) Valid() bool {
	return t == ReportSOC2 || t == ReportISO27001
}

// Title is the human readable report name.
func (t ReportType) Title() string {
	switch t {
	case ReportSOC2:
		return "SOC2 Type II"
	case ReportISO27001:
		return "ISO 27001 ISMS Audit"
	default:
		return string(t)
	}
}

// Finding groups the deficient entries of one event type inside a criterion
// or control.
type Finding struct {
	EventType   audit.EventType `json:"event_type"`
	RiskLevel   audit.RiskLevel `json:"risk_level"`
	Count       int             `json:"count"`
	Description string          `json:"description"`
}

// Assessment is the evaluation of one SOC2 criterion or ISO 27001 control.
type Assessment struct {
	EventsCount      int       `json:"events_count"`
	ComplianceScore  float64   `json:"compliance_score"`
	ComplianceStatus Status    `json:"compliance_status"`
	Findings         []Finding `json:"findings"`
}

// Report is a generated compliance report. SOC2 reports fill
// TrustServicesCriteria, ISO 27001 reports fill ControlCategories.
type Report struct {
	ReportID              string                `json:"report_id"`
	ReportType            ReportType            `json:"report_type"`
	Title                 string                `json:"title"`
	Period                audit.Period          `json:"period"`
	GeneratedAt           audit.Timestamp       `json:"generated_at"`
	GeneratedBy           string                `json:"generated_by,omitempty"`
	Summary               map[string]int        `json:"summary"`
	TrustServicesCriteria map[string]Assessment `json:"trust_services_criteria,omitempty"`
	ControlCategories     map[string]Assessment `json:"control_categories,omitempty"`
	ComplianceScore       float64               `json:"compliance_score"`
	ComplianceStatus      Status                `json:"compliance_status"`
	Recommendations       []string              `json:"recommendations"`
	SkippedRecords        int                   `json:"skipped_records"`
}

// group is a named subset of the framework's entries.
type group struct {
	name  string
	match func(e *audit.Entry) bool
}

func byCategory(c audit.Category) func(*audit.Entry) bool {
	return func(e *audit.Entry) bool { return e.EventCategory == c }
}

func typeContains(s string) func(*audit.Entry) bool {
	return func(e *audit.Entry) bool { return strings.Contains(string(e.EventType), s) }
}

var soc2Criteria = []group{
	{"security", byCategory(audit.CategorySecurity)},
	{"availability", typeContains("system")},
	{"processing_integrity", typeContains("data")},
	{"confidentiality", byCategory(audit.CategoryDataAccess)},
	{"privacy", func(e *audit.Entry) bool { return e.Compliance.GDPRRelevant }},
}

var iso27001Controls = []group{
	{"A.9_Access_Control", byCategory(audit.CategoryAuthorization)},
	{"A.12_Operations_Security", byCategory(audit.CategorySystem)},
	{"A.16_Incident_Management", typeContains("security")},
	{"A.18_Compliance", typeContains("compliance")},
}

func count(entries []audit.Entry, match func(*audit.Entry) bool) int {
	n := 0
	for i := range entries {
		if match(&entries[i]) {
			n++
		}
	}
	return n
}

func subset(entries []audit.Entry, match func(*audit.Entry) bool) []audit.Entry {
	var out []audit.Entry
	for i := range entries {
		if match(&entries[i]) {
			out = append(out, entries[i])
		}
	}
	return out
}

// relevant keeps the entries tagged for the framework.
func relevant(t ReportType, entries []audit.Entry) []audit.Entry {
	if t == ReportSOC2 {
		return subset(entries, func(e *audit.Entry) bool { return e.Compliance.SOC2Relevant })
	}
	return subset(entries, func(e *audit.Entry) bool { return e.Compliance.ISO27001Relevant })
}

func summarize(t ReportType, entries []audit.Entry) map[string]int {
	if t == ReportSOC2 {
		return map[string]int{
			"total_events":          len(entries),
			"security_events":       count(entries, byCategory(audit.CategorySecurity)),
			"authentication_events": count(entries, byCategory(audit.CategoryAuthentication)),
			"data_access_events":    count(entries, byCategory(audit.CategoryDataAccess)),
			"high_risk_events": count(entries, func(e *audit.Entry) bool {
				return e.RiskLevel == audit.RiskHigh
			}),
		}
	}
	return map[string]int{
		"total_events":          len(entries),
		"security_incidents":    count(entries, typeContains("security")),
		"access_violations":     count(entries, typeContains("access.denied")),
		"configuration_changes": count(entries, typeContains("config")),
		"compliance_events":     count(entries, typeContains("compliance")),
	}
}

func assess(policy Policy, groups []group, entries []audit.Entry) map[string]Assessment {
	out := make(map[string]Assessment, len(groups))
	for _, g := range groups {
		members := subset(entries, g.match)
		score := policy.Score(members)
		out[g.name] = Assessment{
			EventsCount:      len(members),
			ComplianceScore:  score,
			ComplianceStatus: policy.Status(score),
			Findings:         findings(members),
		}
	}
	return out
}

// findings groups deficient entries by event type, most severe first.
func findings(entries []audit.Entry) []Finding {
	byType := make(map[audit.EventType]*Finding)
	for i := range entries {
		e := &entries[i]
		if !Deficient(e) {
			continue
		}
		f, ok := byType[e.EventType]
		if !ok {
			f = &Finding{EventType: e.EventType, RiskLevel: e.RiskLevel}
			byType[e.EventType] = f
		}
		f.Count++
		if riskWeight[e.RiskLevel] > riskWeight[f.RiskLevel] {
			f.RiskLevel = e.RiskLevel
		}
	}

	out := make([]Finding, 0, len(byType))
	for _, f := range byType {
		f.Description = fmt.Sprintf("%d %s event(s) with a failed or blocked outcome", f.Count, f.EventType)
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		wi, wj := riskWeight[out[i].RiskLevel], riskWeight[out[j].RiskLevel]
		if wi != wj {
			return wi > wj
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].EventType < out[j].EventType
	})
	return out
}

func overallStatus(assessments map[string]Assessment) Status {
	for _, a := range assessments {
		if a.ComplianceStatus == StatusNonCompliant {
			return StatusNonCompliant
		}
	}
	return StatusCompliant
}

// recommend derives recommendations from the findings. Reports with no
// findings still carry the standing review reminder.
func recommend(t ReportType, summary map[string]int, assessments map[string]Assessment) []string {
	var recs []string
	names := make([]string, 0, len(assessments))
	for name := range assessments {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a := assessments[name]
		if a.ComplianceStatus == StatusNonCompliant {
			recs = append(recs, fmt.Sprintf("Remediate %s: score %.1f is below the compliance threshold", name, a.ComplianceScore))
		}
	}

	switch t {
	case ReportSOC2:
		if summary["high_risk_events"] > 0 {
			recs = append(recs, "Review high risk events and confirm each was investigated")
		}
		if summary["authentication_events"] > 0 {
			recs = append(recs, "Continue monitoring authentication failures")
		}
	case ReportISO27001:
		if summary["access_violations"] > 0 {
			recs = append(recs, "Review access control policies for repeated access violations")
		}
		if summary["security_incidents"] > 0 {
			recs = append(recs, "Confirm incident response procedures were followed for recorded security incidents")
		}
	}
	return append(recs, "Review audit trail retention and integrity at least annually")
}
