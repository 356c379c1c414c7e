// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
)

// Config holds audit logger configuration.
type Config struct {
	// Enabled turns audit logging on. When false LogEvent is a no-op.
	Enabled bool

	// LogToStdout mirrors every entry to the application log.
	LogToStdout bool
}

// DefaultConfig returns the default audit logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		LogToStdout: false,
	}
}

// Appender persists built entries. *Writer implements it.
type Appender interface {
	Append(ctx context.Context, e *Entry) error
}

// Logger is the inbound surface of the audit trail. It is created once at
// startup and passed to every component that records events.
type Logger struct {
	builder *Builder
	writer  Appender
	config  *Config
	enabled atomic.Bool
	logger  zerolog.Logger

	writeFailures  atomic.Int64
	onWriteFailure func(*Entry, error)
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithWriteFailureHandler registers a callback invoked when an entry could
// not be persisted by LogEvent.
func WithWriteFailureHandler(fn func(*Entry, error)) LoggerOption {
	return func(l *Logger) { l.onWriteFailure = fn }
}

// NewLogger creates an audit logger.
func NewLogger(builder *Builder, writer Appender, config *Config, opts ...LoggerOption) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	l := &Logger{
		builder: builder,
		writer:  writer,
		config:  config,
		logger:  logging.WithComponent("audit"),
	}
	l.enabled.Store(config.Enabled)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record builds and synchronously persists one entry. The entry is returned
// even when persistence fails so callers can report its audit_id.
func (l *Logger) Record(ctx context.Context, eventType EventType, c Context) (Entry, error) {
	if c.Request == nil {
		if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
			c.Request = Fields{"request_id": reqID}
		}
	}

	entry := l.builder.Build(eventType, c)
	if err := l.writer.Append(ctx, &entry); err != nil {
		return entry, err
	}
	if l.config.LogToStdout {
		l.mirror(&entry)
	}
	return entry, nil
}

// LogEvent records an event and returns its audit_id. It never fails the
// caller: a write failure is logged, counted and passed to the failure
// handler. Returns "" when audit logging is disabled.
func (l *Logger) LogEvent(ctx context.Context, eventType EventType, c Context) string {
	if !l.enabled.Load() {
		return ""
	}

	entry, err := l.Record(ctx, eventType, c)
	if err != nil {
		l.writeFailures.Add(1)
		logging.Ctx(ctx).Error().Err(err).
			Str("audit_id", entry.AuditID).
			Str("event_type", string(eventType)).
			Msg("Failed to persist audit entry")
		if l.onWriteFailure != nil {
			l.onWriteFailure(&entry, err)
		}
	}
	return entry.AuditID
}

// WriteFailures returns the number of entries LogEvent failed to persist.
func (l *Logger) WriteFailures() int64 {
	return l.writeFailures.Load()
}

// SetEnabled enables or disables audit logging at runtime.
func (l *Logger) SetEnabled(enabled bool) {
	l.enabled.Store(enabled)
}

// Enabled returns whether audit logging is enabled.
func (l *Logger) Enabled() bool {
	return l.enabled.Load()
}

func (l *Logger) mirror(e *Entry) {
	var ev *zerolog.Event
	switch e.Severity {
	case SeverityError:
		ev = l.logger.Error()
	case SeverityWarn:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Info()
	}
	ev.Str("audit_id", e.AuditID).
		Str("event_type", string(e.EventType)).
		Str("risk_level", string(e.RiskLevel)).
		Str("outcome", string(e.Outcome)).
		Str("user_id", e.UserID()).
		Msg("audit")
}

// LogAuthentication records an authentication event. Failed attempts are
// medium risk, successful ones low.
func (l *Logger) LogAuthentication(ctx context.Context, eventType EventType, user Fields, outcome Outcome, request, details Fields) string {
	risk := RiskMedium
	if outcome == OutcomeSuccess {
		risk = RiskLow
	}
	return l.LogEvent(ctx, eventType, Context{
		User:      user,
		Request:   request,
		Outcome:   outcome,
		Details:   details,
		RiskLevel: risk,
	})
}

// LogDataAccess records a data operation (read, create, update, delete,
// export, import) on resource. Deletes are high risk.
func (l *Logger) LogDataAccess(ctx context.Context, operation string, resource, user Fields, details Fields) string {
	eventType := EventType("data." + operation)
	risk := RiskLow
	if eventType == EventDataDelete {
		risk = RiskHigh
	}
	return l.LogEvent(ctx, eventType, Context{
		User:      user,
		Resource:  resource,
		Outcome:   OutcomeSuccess,
		Details:   details,
		RiskLevel: risk,
	})
}

// LogAPIRequest records a completed API request. Responses with status
// >= 400 are recorded as failures with medium risk.
func (l *Logger) LogAPIRequest(ctx context.Context, r *http.Request, status int, duration time.Duration, user Fields) string {
	outcome, risk := OutcomeSuccess, RiskLow
	if status >= http.StatusBadRequest {
		outcome, risk = OutcomeFailure, RiskMedium
	}

	req := RequestFromHTTP(r)
	req["headers"] = SanitizeHeaders(r.Header)

	return l.LogEvent(ctx, EventAPIRequest, Context{
		User:    user,
		Request: req,
		Outcome: outcome,
		Details: Fields{
			"status_code":      status,
			"response_time_ms": duration.Milliseconds(),
		},
		RiskLevel: risk,
	})
}

// LogSecurityEvent records a detected security event at high risk.
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType EventType, request, details Fields) string {
	return l.LogEvent(ctx, eventType, Context{
		Request:   request,
		Outcome:   OutcomeDetected,
		Details:   details,
		RiskLevel: RiskHigh,
	})
}

// LogSystemEvent records a system lifecycle or configuration event. Failed
// outcomes are high risk.
func (l *Logger) LogSystemEvent(ctx context.Context, eventType EventType, outcome Outcome, details Fields) string {
	risk := RiskLow
	if outcome == OutcomeFailure || outcome == OutcomeError {
		risk = RiskHigh
	}
	return l.LogEvent(ctx, eventType, Context{
		User:      SystemUser(),
		Outcome:   outcome,
		Details:   details,
		RiskLevel: risk,
	})
}

// SystemUser identifies the service itself as the actor.
func SystemUser() Fields {
	return Fields{"id": "system", "type": "system"}
}

// sensitiveHeaders are removed before request headers are persisted.
var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

// SanitizeHeaders copies h without credentials. Keys are lowercased and
// multi-valued headers joined with ", ".
func SanitizeHeaders(h http.Header) Fields {
	out := make(Fields, len(h))
	for k, v := range h {
		key := strings.ToLower(k)
		if _, drop := sensitiveHeaders[key]; drop {
			continue
		}
		out[key] = strings.Join(v, ", ")
	}
	return out
}

// ClientIP returns the originating client address of r, preferring the
// first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestFromHTTP builds the request object for an entry from r.
func RequestFromHTTP(r *http.Request) Fields {
	req := Request(ClientIP(r), r.UserAgent())
	req["method"] = r.Method
	req["url"] = r.URL.RequestURI()
	if reqID := logging.RequestIDFromContext(r.Context()); reqID != "" {
		req["request_id"] = reqID
	}
	return req
}
