// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"time"
)

const (
	// MaxPageLimit is the largest page a query may request.
	MaxPageLimit = 1000

	// DefaultPageLimit is used when a caller does not specify a limit.
	DefaultPageLimit = 100

	dateOnlyLayout = "2006-01-02"
)

// Filter selects entries. Zero fields match everything; set fields combine
// with AND. Start and End are inclusive.
type Filter struct {
	Start     time.Time
	End       time.Time
	EventType EventType
	UserID    string
	RiskLevel RiskLevel
}

// Matches reports whether e satisfies every set field.
func (f *Filter) Matches(e *Entry) bool {
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.UserID != "" && e.UserID() != f.UserID {
		return false
	}
	if f.RiskLevel != "" && e.RiskLevel != f.RiskLevel {
		return false
	}
	return true
}

// ParseDate parses a filter bound. RFC 3339 timestamps are used as given.
// A bare YYYY-MM-DD date means the start of that UTC day, or its last
// millisecond when endOfDay is set, so a date-only end bound covers the
// whole day.
func ParseDate(field, value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, NewValidationError(field, "must be an ISO-8601 date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Millisecond)
	}
	return d.UTC(), nil
}

// Page is an offset/limit window over a sorted result.
type Page struct {
	Limit  int
	Offset int
}

// Validate checks the page bounds: limit in [1, MaxPageLimit], offset >= 0.
func (p Page) Validate() error {
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return NewValidationError("limit", "must be between 1 and 1000")
	}
	if p.Offset < 0 {
		return NewValidationError("offset", "must be non-negative")
	}
	return nil
}

// PageResult is one page of entries plus the size of the full result.
type PageResult struct {
	Entries []Entry
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// Paginate slices entries, which must already be filtered and sorted.
func Paginate(entries []Entry, p Page) (PageResult, error) {
	if err := p.Validate(); err != nil {
		return PageResult{}, err
	}

	total := len(entries)
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)

	return PageResult{
		Entries: entries[start:end],
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}, nil
}
