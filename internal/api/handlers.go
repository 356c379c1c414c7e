// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/compliance"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/validation"
)

// MaxExportEntries caps a single export download.
const MaxExportEntries = 10000

// AuditLogger records audit entries without failing the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, eventType audit.EventType, c audit.Context) string
	LogAPIRequest(ctx context.Context, r *http.Request, status int, duration time.Duration, user audit.Fields) string
	LogSystemEvent(ctx context.Context, eventType audit.EventType, outcome audit.Outcome, details audit.Fields) string
}

// AuditReader queries the persisted trail.
type AuditReader interface {
	Query(ctx context.Context, f audit.Filter) (*audit.QueryResult, error)
	FindByID(ctx context.Context, auditID string) (audit.Entry, bool, error)
	FindRelated(ctx context.Context, target audit.Entry, window time.Duration) ([]audit.Entry, error)
	Stats(ctx context.Context, f audit.Filter) (*audit.Stats, error)
}

// ReportGenerator builds compliance reports.
type ReportGenerator interface {
	Generate(ctx context.Context, t compliance.ReportType, start, end string, actor audit.Fields) (*compliance.Report, error)
}

// Handler serves the audit routes.
type Handler struct {
	audit     AuditLogger
	reader    AuditReader
	reports   ReportGenerator
	exporters map[string]audit.Exporter
	started   time.Time
	version   string
}

// NewHandler creates a Handler. version is stamped into CEF exports.
func NewHandler(logger AuditLogger, reader AuditReader, reports ReportGenerator, version string) *Handler {
	return &Handler{
		audit:   logger,
		reader:  reader,
		reports: reports,
		exporters: map[string]audit.Exporter{
			"json":   audit.JSONExporter{},
			"ndjson": audit.NDJSONExporter{},
			"cef":    audit.NewCEFExporter(version),
		},
		started: time.Now(),
		version: version,
	}
}

// fail records a system.error entry for a handler failure and answers 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code, message, operation string, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("operation", operation).Msg(message)
	h.audit.LogSystemEvent(r.Context(), audit.EventSystemError, audit.OutcomeFailure, audit.Fields{
		"operation": operation,
		"error":     err.Error(),
		"endpoint":  r.URL.Path,
	})
	NewResponseWriter(w, r).Error(http.StatusInternalServerError, code, message)
}

func writeValidation(rw *ResponseWriter, err error) {
	var ve *audit.ValidationError
	if errors.As(err, &ve) {
		rw.ValidationError(ve.Error(), map[string]string{"field": ve.Field})
		return
	}
	rw.ValidationError(err.Error(), nil)
}

func writeRequestValidation(rw *ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	rw.ValidationError(apiErr.Message, apiErr.Details)
}

// ListEvents handles GET /api/audit/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q, verr := parseEventsQuery(r)
	if verr != nil {
		writeRequestValidation(rw, verr)
		return
	}
	filter, err := q.Filter()
	if err != nil {
		writeValidation(rw, err)
		return
	}

	result, err := h.reader.Query(r.Context(), filter)
	if err != nil {
		h.fail(w, r, ErrCodeRetrieval, "Failed to retrieve audit events", "list_events", err)
		return
	}
	page, err := audit.Paginate(result.Entries, audit.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		writeValidation(rw, err)
		return
	}

	pagination := &PaginationMeta{
		Total:   page.Total,
		Count:   len(page.Entries),
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	}
	rw.SuccessWithPagination(map[string]any{
		"events":          nonNil(page.Entries),
		"pagination":      pagination,
		"filters":         q,
		"skipped_records": result.Skipped,
	}, pagination)
}

// GetTrail handles GET /api/audit/trail/{audit_id}.
func (h *Handler) GetTrail(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	params := TrailParams{AuditID: chi.URLParam(r, "audit_id")}
	if verr := validation.ValidateStruct(&params); verr != nil {
		writeRequestValidation(rw, verr)
		return
	}

	entry, found, err := h.reader.FindByID(r.Context(), params.AuditID)
	if err != nil {
		h.fail(w, r, ErrCodeTrail, "Failed to retrieve audit trail", "get_trail", err)
		return
	}
	if !found {
		rw.NotFound("Audit event not found")
		return
	}

	related, err := h.reader.FindRelated(r.Context(), entry, audit.DefaultRelatedWindow)
	if err != nil {
		h.fail(w, r, ErrCodeTrail, "Failed to retrieve audit trail", "get_trail", err)
		return
	}
	rw.Success(map[string]any{
		"event":          entry,
		"related_events": nonNil(related),
	})
}

// Statistics handles GET /api/audit/statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := RangeQuery{StartDate: r.URL.Query().Get("start_date"), EndDate: r.URL.Query().Get("end_date")}
	if verr := validation.ValidateStruct(&q); verr != nil {
		writeRequestValidation(rw, verr)
		return
	}
	filter, err := q.Filter()
	if err != nil {
		writeValidation(rw, err)
		return
	}

	stats, err := h.reader.Stats(r.Context(), filter)
	if err != nil {
		h.fail(w, r, ErrCodeStats, "Failed to retrieve audit statistics", "statistics", err)
		return
	}
	rw.Success(stats)
}

// SOC2Report handles GET /api/audit/compliance/soc2.
func (h *Handler) SOC2Report(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, compliance.ReportSOC2, ErrCodeSOC2Report)
}

// ISO27001Report handles GET /api/audit/compliance/iso27001.
func (h *Handler) ISO27001Report(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, compliance.ReportISO27001, ErrCodeISO27001Report)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request, t compliance.ReportType, code string) {
	rw := NewResponseWriter(w, r)

	q := ReportQuery{StartDate: r.URL.Query().Get("start_date"), EndDate: r.URL.Query().Get("end_date")}
	if verr := validation.ValidateStruct(&q); verr != nil {
		writeRequestValidation(rw, verr)
		return
	}

	actor := PrincipalFromContext(r.Context()).AuditUser()
	report, err := h.reports.Generate(r.Context(), t, q.StartDate, q.EndDate, actor)
	if err != nil {
		if audit.IsValidation(err) {
			writeValidation(rw, err)
			return
		}
		h.fail(w, r, code, "Failed to generate "+t.Title()+" report", "generate_"+string(t)+"_report", err)
		return
	}
	rw.Success(report)
}

// EventTypeInfo describes one catalog entry.
type EventTypeInfo struct {
	Type      audit.EventType `json:"type"`
	Category  audit.Category  `json:"category"`
	RiskLevel audit.RiskLevel `json:"risk_level"`
	SOC2      bool            `json:"soc2"`
	ISO27001  bool            `json:"iso27001"`
	GDPR      bool            `json:"gdpr"`
	Retention audit.Retention `json:"retention_period"`
}

// Types handles GET /api/audit/types.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	types := audit.EventTypes()
	infos := make([]EventTypeInfo, 0, len(types))
	for _, t := range types {
		c, _ := audit.Classify(t)
		infos = append(infos, EventTypeInfo{
			Type:      t,
			Category:  c.Category,
			RiskLevel: c.Risk,
			SOC2:      c.SOC2,
			ISO27001:  c.ISO27001,
			GDPR:      c.GDPR,
			Retention: c.Retention,
		})
	}
	NewResponseWriter(w, r).Success(map[string]any{
		"event_types": infos,
		"categories":  audit.Categories(),
		"by_category": audit.EventTypesByCategory(),
	})
}

// Export handles GET /api/audit/export. It accepts the filters of
// ListEvents plus format and returns at most MaxExportEntries entries,
// newest first.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	eq := ExportQuery{Format: r.URL.Query().Get("format")}
	if eq.Format == "" {
		eq.Format = "json"
	}
	if verr := validation.ValidateStruct(&eq); verr != nil {
		writeRequestValidation(rw, verr)
		return
	}
	q, verr := parseEventsQuery(r)
	if verr != nil {
		writeRequestValidation(rw, verr)
		return
	}
	filter, err := q.Filter()
	if err != nil {
		writeValidation(rw, err)
		return
	}

	result, err := h.reader.Query(r.Context(), filter)
	if err != nil {
		h.fail(w, r, ErrCodeExport, "Failed to export audit events", "export", err)
		return
	}
	entries := result.Entries
	truncated := len(entries) > MaxExportEntries
	if truncated {
		entries = entries[:MaxExportEntries]
	}

	exporter := h.exporters[eq.Format]
	data, err := exporter.Export(entries)
	if err != nil {
		h.fail(w, r, ErrCodeExport, "Failed to export audit events", "export", err)
		return
	}

	h.audit.LogEvent(r.Context(), audit.EventDataExport, audit.Context{
		User:     PrincipalFromContext(r.Context()).AuditUser(),
		Request:  audit.Request(audit.ClientIP(r), r.UserAgent()),
		Resource: audit.Resource("audit_log", ""),
		Outcome:  audit.OutcomeSuccess,
		Details: audit.Fields{
			"format":          eq.Format,
			"records":         len(entries),
			"truncated":       truncated,
			"skipped_records": result.Skipped,
		},
	})

	filename := "audit-export-" + time.Now().UTC().Format("20060102T150405Z") + "." + exporter.FileExtension()
	rw.Attachment(exporter.ContentType(), filename, data)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

func nonNil(entries []audit.Entry) []audit.Entry {
	if entries == nil {
		return []audit.Entry{}
	}
	return entries
}
