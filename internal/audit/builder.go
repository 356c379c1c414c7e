// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
)

// NewMetadata returns process metadata for entries written by this process.
func NewMetadata(service, environment, version string) Metadata {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return Metadata{
		Service:     service,
		Environment: environment,
		Version:     version,
		Hostname:    hostname,
		ProcessID:   os.Getpid(),
	}
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator replaces the UUIDv4 generator.
func WithIDGenerator(gen func() string) BuilderOption {
	return func(b *Builder) { b.newID = gen }
}

// WithErrorHandler registers a callback for derivation failures. Build never
// returns an error, so this is how failures surface beyond the log.
func WithErrorHandler(fn func(eventType EventType, err error)) BuilderOption {
	return func(b *Builder) { b.onError = fn }
}

// Builder turns an event type and caller context into a complete Entry.
type Builder struct {
	metadata Metadata
	now      func() time.Time
	newID    func() string
	onError  func(EventType, error)
	logger   zerolog.Logger
}

// NewBuilder creates a Builder stamping entries with metadata.
func NewBuilder(metadata Metadata, opts ...BuilderOption) *Builder {
	b := &Builder{
		metadata: metadata,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logging.WithComponent("audit-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces a fully populated entry. It never fails: unknown event types
// use the fallback classification, invalid overrides are ignored, and any
// internal failure yields risk "low" and outcome "unknown".
func (b *Builder) Build(eventType EventType, c Context) (entry Entry) {
	entry.EventType = eventType
	entry.Metadata = b.metadata

	defer func() {
		if r := recover(); r != nil {
			b.fail(eventType, fmt.Errorf("derive audit entry: %v", r))
			entry = fallbackEntry(entry)
		}
	}()

	entry.Timestamp = NewTimestamp(b.now())
	entry.AuditID = b.newID()

	class, err := Classify(eventType)
	if err != nil {
		b.logger.Warn().Str("event_type", string(eventType)).Msg("Audit event type not in catalog, using fallback classification")
	}

	entry.EventCategory = class.Category
	entry.User = c.User.clone()
	entry.Session = c.Session.clone()
	entry.Request = c.Request.clone()
	entry.Resource = c.Resource.clone()
	entry.Details = c.Details.clone()

	entry.Outcome = c.Outcome
	if entry.Outcome == "" {
		entry.Outcome = OutcomeUnknown
	}

	entry.Severity = deriveSeverity(class, entry.Outcome)

	entry.RiskLevel = class.Risk
	if c.RiskLevel != "" {
		if c.RiskLevel.Valid() {
			entry.RiskLevel = c.RiskLevel
		} else {
			b.fail(eventType, fmt.Errorf("invalid risk level override %q", c.RiskLevel))
		}
	}

	entry.Compliance = Compliance{
		SOC2Relevant:     class.SOC2,
		ISO27001Relevant: class.ISO27001,
		GDPRRelevant:     class.GDPR,
		RetentionPeriod:  class.Retention,
	}
	if c.RetentionPeriod != "" {
		entry.Compliance.RetentionPeriod = c.RetentionPeriod
	}

	return entry
}

// deriveSeverity: failed outcomes are errors, catalog warning types are warns.
func deriveSeverity(class Classification, outcome Outcome) Severity {
	switch {
	case outcome.Failed():
		return SeverityError
	case class.Warning:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

func fallbackEntry(e Entry) Entry {
	if e.Timestamp.IsZero() {
		e.Timestamp = NewTimestamp(time.Now())
	}
	if e.AuditID == "" {
		e.AuditID = uuid.NewString()
	}
	if e.EventCategory == "" {
		e.EventCategory = categoryFromPrefix(string(e.EventType))
	}
	e.Severity = SeverityInfo
	e.RiskLevel = RiskLow
	e.Outcome = OutcomeUnknown
	class := catalog[e.EventType]
	e.Compliance = Compliance{
		SOC2Relevant:     class.SOC2,
		ISO27001Relevant: class.ISO27001,
		GDPRRelevant:     class.GDPR,
		RetentionPeriod:  class.Retention,
	}
	if e.Compliance.RetentionPeriod == "" {
		e.Compliance.RetentionPeriod = Retention7Years
	}
	for _, f := range []*Fields{&e.User, &e.Session, &e.Request, &e.Resource, &e.Details} {
		if *f == nil {
			*f = Fields{}
		}
	}
	return e
}

func (b *Builder) fail(eventType EventType, err error) {
	if err == nil || errors.Is(err, ErrUnknownEventType) {
		return
	}
	b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Audit entry derivation failed, using defaults")
	if b.onError != nil {
		b.onError(eventType, err)
	}
}
