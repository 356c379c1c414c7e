// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m), "log output: %s", buf.String())
	return m
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"bogus":    zerolog.InfoLevel,
		"":         zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

// Tests below reconfigure the global logger and must not run in parallel.

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("audit")
	l.Info().Str("k", "v").Msg("hello")

	m := decodeLine(t, &buf)
	assert.Equal(t, "hello", m["message"])
	assert.Equal(t, "audit", m["component"])
	assert.Equal(t, "info", m["level"])
	assert.Contains(t, m, "time")
}

func TestCtx_AddsRequestAndPrincipal(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithPrincipal(ctx, "admin-user")
	Ctx(ctx).Info().Msg("with context")

	m := decodeLine(t, &buf)
	assert.Equal(t, "req-1", m["request_id"])
	assert.Equal(t, "admin-user", m["user_id"])

	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Len(t, GenerateRequestID(), 36)
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.InfoLevel)
	logger := slog.New(NewSlogHandler(zl)).With("service", "http-server").WithGroup("event")

	logger.Debug("dropped")
	assert.Zero(t, buf.Len(), "debug is below the handler level")

	logger.Warn("service restarted",
		"attempt", 3,
		"backoff", 2*time.Second,
		"ok", false,
		slog.Group("cause", "kind", "panic"),
		"err", errors.New("boom"),
	)

	m := decodeLine(t, &buf)
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "service restarted", m["message"])
	assert.Equal(t, "http-server", m["event.service"])
	assert.EqualValues(t, 3, m["event.attempt"])
	assert.Equal(t, false, m["event.ok"])
	assert.Equal(t, "panic", m["event.cause.kind"])
	assert.Equal(t, "boom", m["event.err"])
}

func TestToZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, toZerologLevel(slog.LevelDebug))
	assert.Equal(t, zerolog.InfoLevel, toZerologLevel(slog.LevelInfo))
	assert.Equal(t, zerolog.WarnLevel, toZerologLevel(slog.LevelWarn))
	assert.Equal(t, zerolog.ErrorLevel, toZerologLevel(slog.LevelError+4))
}
