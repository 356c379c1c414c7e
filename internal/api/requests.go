// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/validation"
)

// EventsQuery holds the filters of GET /events and GET /export.
type EventsQuery struct {
	StartDate string `query:"start_date" json:"start_date,omitempty" validate:"omitempty,isodate"`
	EndDate   string `query:"end_date" json:"end_date,omitempty" validate:"omitempty,isodate"`
	EventType string `query:"event_type" json:"event_type,omitempty" validate:"omitempty,max=100"`
	UserID    string `query:"user_id" json:"user_id,omitempty" validate:"omitempty,max=255"`
	RiskLevel string `query:"risk_level" json:"risk_level,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Limit     int    `query:"limit" json:"-" validate:"min=1,max=1000"`
	Offset    int    `query:"offset" json:"-" validate:"min=0"`
}

// RangeQuery holds an optional date range.
type RangeQuery struct {
	StartDate string `query:"start_date" validate:"omitempty,isodate"`
	EndDate   string `query:"end_date" validate:"omitempty,isodate"`
}

// ReportQuery holds the required date range of a compliance report.
type ReportQuery struct {
	StartDate string `query:"start_date" validate:"required,isodate"`
	EndDate   string `query:"end_date" validate:"required,isodate"`
}

// TrailParams holds the path parameter of GET /trail/{audit_id}.
type TrailParams struct {
	AuditID string `query:"audit_id" validate:"required,min=10,max=100"`
}

// ExportQuery holds the format of GET /export. Filters come from EventsQuery;
// pagination is ignored.
type ExportQuery struct {
	Format string `query:"format" validate:"oneof=json ndjson cef"`
}

// intParam parses an optional integer parameter.
func intParam(q url.Values, name string, def int) (int, *validation.RequestValidationError) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &validation.RequestValidationError{Fields: []validation.FieldError{{
			Field:   name,
			Tag:     "int",
			Value:   raw,
			Message: name + " must be an integer",
		}}}
	}
	return n, nil
}

func parseEventsQuery(r *http.Request) (EventsQuery, *validation.RequestValidationError) {
	q := r.URL.Query()
	eq := EventsQuery{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		EventType: q.Get("event_type"),
		UserID:    q.Get("user_id"),
		RiskLevel: q.Get("risk_level"),
	}

	var verr *validation.RequestValidationError
	if eq.Limit, verr = intParam(q, "limit", audit.DefaultPageLimit); verr != nil {
		return eq, verr
	}
	if eq.Offset, verr = intParam(q, "offset", 0); verr != nil {
		return eq, verr
	}
	return eq, validation.ValidateStruct(&eq)
}

// Filter converts the validated query to an audit filter.
func (q *EventsQuery) Filter() (audit.Filter, error) {
	f := audit.Filter{
		EventType: audit.EventType(q.EventType),
		UserID:    q.UserID,
		RiskLevel: audit.RiskLevel(q.RiskLevel),
	}
	err := applyRange(&f, q.StartDate, q.EndDate)
	return f, err
}

// Filter converts the validated range to an audit filter.
func (q *RangeQuery) Filter() (audit.Filter, error) {
	var f audit.Filter
	err := applyRange(&f, q.StartDate, q.EndDate)
	return f, err
}

func applyRange(f *audit.Filter, start, end string) error {
	var err error
	if start != "" {
		if f.Start, err = audit.ParseDate("start_date", start, false); err != nil {
			return err
		}
	}
	if end != "" {
		if f.End, err = audit.ParseDate("end_date", end, true); err != nil {
			return err
		}
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return audit.NewValidationError("end_date", "must not be before start_date")
	}
	return nil
}
