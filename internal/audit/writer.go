// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// Sink receives encoded entries. line is one complete JSON record ending in
// '\n'; entry is the decoded form for sinks that need keys or headers.
// Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	Write(ctx context.Context, line []byte, entry *Entry) error
	Close() error
}

// Syncer is implemented by sinks that buffer in the OS page cache.
type Syncer interface {
	Sync() error
}

// Route sends entries at or above MinSeverity to Sink. Optional sinks may
// fail without failing the append.
type Route struct {
	Sink        Sink
	MinSeverity Severity
	Optional    bool
}

// Writer fans one append out to every matching route.
type Writer struct {
	routes []Route
	logger zerolog.Logger
}

// NewWriter creates a writer over routes. Required routes are written in
// order, then optional routes in order.
func NewWriter(routes ...Route) *Writer {
	return &Writer{
		routes: routes,
		logger: logging.WithComponent("audit-writer"),
	}
}

// EncodeLine returns the persisted form of e: one JSON object and '\n'.
func EncodeLine(e *Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Append persists e to every route that accepts its severity. Required
// routes are written first and every one is attempted even after one fails;
// their errors are collected into a *WriteFailure. Optional routes are
// written only once every required route has succeeded, so they never hold
// an entry the durable log lacks. Optional sink failures are logged and
// counted only. The caller's cancellation is not propagated to sinks so an
// append is never abandoned half way.
func (w *Writer) Append(ctx context.Context, e *Entry) error {
	start := time.Now()

	line, err := EncodeLine(e)
	if err != nil {
		metrics.RecordSinkFailure("encode", false)
		return &WriteFailure{AuditID: e.AuditID, Sinks: []SinkError{{Sink: "encode", Err: err}}}
	}

	ctx = context.WithoutCancel(ctx)

	var failures []SinkError
	for _, r := range w.routes {
		if r.Optional || !r.accepts(e) {
			continue
		}
		if err := r.Sink.Write(ctx, line, e); err != nil {
			metrics.RecordSinkFailure(r.Sink.Name(), false)
			failures = append(failures, SinkError{Sink: r.Sink.Name(), Err: err})
		}
	}
	if len(failures) > 0 {
		return &WriteFailure{AuditID: e.AuditID, Sinks: failures}
	}

	for _, r := range w.routes {
		if !r.Optional || !r.accepts(e) {
			continue
		}
		if err := r.Sink.Write(ctx, line, e); err != nil {
			metrics.RecordSinkFailure(r.Sink.Name(), true)
			w.logger.Warn().Err(err).
				Str("sink", r.Sink.Name()).
				Str("audit_id", e.AuditID).
				Msg("Optional audit sink write failed")
		}
	}

	metrics.RecordAuditEntry(string(e.EventCategory), string(e.Severity), time.Since(start))
	return nil
}

func (r Route) accepts(e *Entry) bool {
	return r.MinSeverity == "" || e.Severity.AtLeast(r.MinSeverity)
}

// Sync flushes every sink that supports it.
func (w *Writer) Sync() error {
	var errs []error
	for _, r := range w.routes {
		if s, ok := r.Sink.(Syncer); ok {
			if err := s.Sync(); err != nil && !errors.Is(err, ErrSinkClosed) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (w *Writer) Close() error {
	var errs []error
	for _, r := range w.routes {
		if err := r.Sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
