// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEventType is returned by Classify for types outside the catalog.
	ErrUnknownEventType = errors.New("unknown audit event type")

	// ErrSinkClosed is returned when writing to a closed sink.
	ErrSinkClosed = errors.New("audit sink closed")
)

// ValidationError reports invalid caller input such as a bad date range or
// pagination bounds. HTTP handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SinkError is the failure of a single sink during an append.
type SinkError struct {
	Sink string
	Err  error
}

func (e SinkError) Error() string {
	return e.Sink + ": " + e.Err.Error()
}

// WriteFailure reports that an entry could not be persisted to one or more
// required sinks. Audit durability is a compliance requirement, so callers
// of Writer.Append must not ignore it.
type WriteFailure struct {
	AuditID string
	Sinks   []SinkError
}

func (e *WriteFailure) Error() string {
	parts := make([]string, 0, len(e.Sinks))
	for _, s := range e.Sinks {
		parts = append(parts, s.Error())
	}
	return fmt.Sprintf("audit write failed for %s: %s", e.AuditID, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying sink errors to errors.Is and errors.As.
func (e *WriteFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Sinks))
	for _, s := range e.Sinks {
		errs = append(errs, s.Err)
	}
	return errs
}
