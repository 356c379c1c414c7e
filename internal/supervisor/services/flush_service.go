// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package services

import (
	"context"
	"time"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
)

// Syncer flushes buffered data to stable storage. Satisfied by
// *audit.Writer.
type Syncer interface {
	Sync() error
}

// FlushService syncs the audit writer every interval so entries appended
// without sync_writes reach disk within a bounded time. It syncs once more on
// shutdown.
type FlushService struct {
	syncer   Syncer
	interval time.Duration
}

// NewFlushService creates a FlushService. A non-positive interval uses 1s.
func NewFlushService(syncer Syncer, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = time.Second
	}
	return &FlushService{syncer: syncer, interval: interval}
}

// Serve implements suture.Service. Sync errors are logged and retried on the
// next tick rather than restarting the service.
func (s *FlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-ctx.Done():
			s.flush()
			return ctx.Err()
		}
	}
}

func (s *FlushService) flush() {
	if err := s.syncer.Sync(); err != nil {
		logging.Error().Err(err).Msg("Audit log sync failed")
	}
}

func (s *FlushService) String() string { return "audit-flush" }
