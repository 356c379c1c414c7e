// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"fmt"
	"time"
)

// TimestampLayout is the persisted timestamp format: UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Severity is the log severity of an entry. It controls sink routing.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// rank orders severities for routing decisions.
func (s Severity) rank() int {
	switch s {
	case SeverityWarn:
		return 1
	case SeverityError:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether s is at or above min.
func (s Severity) AtLeast(minimum Severity) bool {
	return s.rank() >= minimum.rank()
}

// Outcome is the result of the audited action. The set is open; these are
// the values the service itself emits.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeDenied    Outcome = "denied"
	OutcomeError     Outcome = "error"
	OutcomeDetected  Outcome = "detected"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeInitiated Outcome = "initiated"
	OutcomeCompleted Outcome = "completed"
	OutcomeUnknown   Outcome = "unknown"
)

// Failed reports whether the outcome counts as a failed action.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFailure, OutcomeDenied, OutcomeError:
		return true
	}
	return false
}

// Timestamp wraps time.Time with the persisted wire format.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to milliseconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// String returns the wire representation.
func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(TimestampLayout)+2)
	buf = append(buf, '"')
	buf = t.UTC().AppendFormat(buf, TimestampLayout)
	return append(buf, '"'), nil
}

// UnmarshalJSON implements json.Unmarshaler. Any RFC 3339 value is accepted.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid timestamp %s", s)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s[1:len(s)-1])
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	t.Time = parsed.UTC()
	return nil
}

// Fields is a free-form object attached to an entry (user, session, request,
// resource, details).
type Fields map[string]any

// Str returns the string value at key, or "" when absent or not a string.
func (f Fields) Str(key string) string {
	if f == nil {
		return ""
	}
	s, _ := f[key].(string)
	return s
}

// clone deep-copies nested maps and slices so the result shares no mutable
// state with f. A nil receiver yields an empty, non-nil map.
func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Fields:
		return val.clone()
	case map[string]any:
		return Fields(val).clone()
	case map[string]string:
		m := make(Fields, len(val))
		for k, s := range val {
			m[k] = s
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i := range val {
			s[i] = cloneValue(val[i])
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// User builds the user object for an entry.
func User(id, email string) Fields {
	f := Fields{"id": id}
	if email != "" {
		f["email"] = email
	}
	return f
}

// Session builds the session object for an entry.
func Session(id string) Fields {
	return Fields{"id": id}
}

// Request builds the request object for an entry.
func Request(ip, userAgent string) Fields {
	f := Fields{"ip": ip}
	if userAgent != "" {
		f["user_agent"] = userAgent
	}
	return f
}

// Resource builds the resource object for an entry.
func Resource(kind, id string) Fields {
	f := Fields{"type": kind}
	if id != "" {
		f["id"] = id
	}
	return f
}

// Metadata identifies the process that wrote an entry.
type Metadata struct {
	Service     string `json:"service"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Hostname    string `json:"hostname"`
	ProcessID   int    `json:"process_id"`
}

// Compliance carries the compliance tags of an entry.
type Compliance struct {
	SOC2Relevant     bool      `json:"soc2_relevant"`
	ISO27001Relevant bool      `json:"iso27001_relevant"`
	GDPRRelevant     bool      `json:"gdpr_relevant"`
	RetentionPeriod  Retention `json:"retention_period"`
}

// Entry is one immutable audit record. Field names are wire-stable: external
// compliance tooling parses the log files directly.
type Entry struct {
	Timestamp     Timestamp  `json:"timestamp"`
	AuditID       string     `json:"audit_id"`
	EventType     EventType  `json:"event_type"`
	EventCategory Category   `json:"event_category"`
	Severity      Severity   `json:"severity"`
	RiskLevel     RiskLevel  `json:"risk_level"`
	User          Fields     `json:"user"`
	Session       Fields     `json:"session"`
	Request       Fields     `json:"request"`
	Resource      Fields     `json:"resource"`
	Outcome       Outcome    `json:"outcome"`
	Details       Fields     `json:"details"`
	Metadata      Metadata   `json:"metadata"`
	Compliance    Compliance `json:"compliance"`
}

// UserID returns user.id.
func (e *Entry) UserID() string { return e.User.Str("id") }

// SessionID returns session.id.
func (e *Entry) SessionID() string { return e.Session.Str("id") }

// RequestIP returns request.ip.
func (e *Entry) RequestIP() string { return e.Request.Str("ip") }

// Context is the caller-supplied input to Build. Zero values take defaults:
// empty objects, outcome "unknown", risk and retention from the catalog.
type Context struct {
	User     Fields
	Session  Fields
	Request  Fields
	Resource Fields
	Details  Fields

	Outcome Outcome

	// RiskLevel overrides the catalog risk when valid.
	RiskLevel RiskLevel

	// RetentionPeriod overrides the catalog retention when set.
	RetentionPeriod Retention
}
