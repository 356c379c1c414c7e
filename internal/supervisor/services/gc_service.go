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

// GarbageCollector reclaims space in a value log. Satisfied by *index.Index.
type GarbageCollector interface {
	RunGC() error
}

// IndexGCService runs value log garbage collection on the audit index every
// interval.
type IndexGCService struct {
	gc       GarbageCollector
	interval time.Duration
}

// NewIndexGCService creates an IndexGCService. A non-positive interval uses
// 10 minutes.
func NewIndexGCService(gc GarbageCollector, interval time.Duration) *IndexGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &IndexGCService{gc: gc, interval: interval}
}

// Serve implements suture.Service.
func (s *IndexGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Audit index GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Audit index GC complete")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *IndexGCService) String() string { return "index-gc" }
