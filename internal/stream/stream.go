// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package stream publishes audit entries to an external event stream so a
// SIEM or search cluster can consume them. It is an optional writer route:
// a circuit breaker sheds publishes while the broker is unhealthy and the
// audit writer never waits on a dead connection.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// Name is the sink name used in metrics and write failures.
const Name = "stream"

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("audit stream is closed")

	// ErrPublishTimeout is returned when the broker does not acknowledge a
	// publish within PublishTimeout. It counts as a breaker failure.
	ErrPublishTimeout = errors.New("audit stream publish timed out")
)

// Config configures the stream sink and its NATS connection.
type Config struct {
	URL             string
	TopicPrefix     string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	TrackMsgID      bool

	// FailureThreshold is the number of consecutive publish failures that
	// opens the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	// PublishTimeout bounds one publish so a slow broker trips the breaker
	// instead of stalling every append.
	PublishTimeout time.Duration
}

// DefaultConfig returns settings for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:              natsgo.DefaultURL,
		TopicPrefix:      "audit.events",
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		TrackMsgID:       true,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		PublishTimeout:   2 * time.Second,
	}
}

// Topic returns the subject an entry is published on:
// <prefix>.<event_category>.
func (c Config) Topic(e *audit.Entry) string {
	category := string(e.EventCategory)
	if category == "" {
		category = string(audit.CategoryGeneral)
	}
	return c.TopicPrefix + "." + category
}

// Sink is an audit.Sink publishing each entry as a watermill message.
type Sink struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	cfg       Config

	mu     sync.RWMutex
	closed bool
}

// NewSink wraps publisher. The sink owns publisher and closes it on Close.
func NewSink(publisher message.Publisher, cfg Config) *Sink {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultConfig().TopicPrefix
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Sink{
		publisher: publisher,
		breaker:   newBreaker(cfg),
		cfg:       cfg,
	}
}

func newBreaker(cfg Config) *gobreaker.CircuitBreaker[struct{}] {
	logger := logging.WithComponent("audit-stream")
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "audit-stream",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Audit stream circuit breaker state changed")
		},
	})
}

// Name implements audit.Sink.
func (s *Sink) Name() string { return Name }

// State returns the breaker state (closed, half-open, open).
func (s *Sink) State() string { return s.breaker.State().String() }

// Write implements audit.Sink. The message UUID is the audit_id and doubles
// as the NATS deduplication ID.
func (s *Sink) Write(ctx context.Context, line []byte, e *audit.Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	payload := make([]byte, len(line))
	copy(payload, line)

	msg := message.NewMessage(e.AuditID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, e.AuditID)
	msg.Metadata.Set("event_type", string(e.EventType))
	msg.Metadata.Set("event_category", string(e.EventCategory))
	msg.Metadata.Set("severity", string(e.Severity))
	msg.Metadata.Set("risk_level", string(e.RiskLevel))

	topic := s.cfg.Topic(e)
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.publish(topic, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.StreamCircuitOpen.Inc()
		return fmt.Errorf("publish %s: %w", e.AuditID, err)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.AuditID, err)
	}
	metrics.StreamPublished.Inc()
	return nil
}

// publish waits at most PublishTimeout for the broker. A publish that times
// out keeps running in the background until the publisher returns.
func (s *Sink) publish(topic string, msg *message.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- s.publisher.Publish(topic, msg)
	}()

	timer := time.NewTimer(s.cfg.PublishTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrPublishTimeout
	}
}

// Close implements audit.Sink.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.publisher.Close()
}
