// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

const (
	// DefaultRelatedWindow is the half-width of the correlation window.
	DefaultRelatedWindow = 5 * time.Minute

	// MaxRelated caps the number of related entries returned.
	MaxRelated = 10
)

// correlated reports whether a and b share a non-empty user.id, request.ip
// or session.id.
func correlated(a, b *Entry) bool {
	if id := a.UserID(); id != "" && id == b.UserID() {
		return true
	}
	if ip := a.RequestIP(); ip != "" && ip == b.RequestIP() {
		return true
	}
	if sid := a.SessionID(); sid != "" && sid == b.SessionID() {
		return true
	}
	return false
}

// FindRelated returns up to MaxRelated entries within window of target's
// timestamp (inclusive, both directions) that share a user, client IP or
// session with it. The target itself is excluded. Results are nearest in
// time first, newer first on equal distance. A window <= 0 uses
// DefaultRelatedWindow.
func (r *Reader) FindRelated(ctx context.Context, target Entry, window time.Duration) ([]Entry, error) {
	if window <= 0 {
		window = DefaultRelatedWindow
	}
	from := target.Timestamp.Add(-window)
	to := target.Timestamp.Add(window)

	start := time.Now()
	var related []Entry
	skipped, err := r.scan(ctx, func(e *Entry) error {
		if e.AuditID == target.AuditID {
			return nil
		}
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			return nil
		}
		if correlated(&target, e) {
			related = append(related, *e)
		}
		return nil
	})
	metrics.RecordAuditQuery("find_related", time.Since(start), skipped)
	if err != nil {
		return nil, err
	}

	SortNewestFirst(related)
	sort.SliceStable(related, func(i, j int) bool {
		return distance(related[i], target) < distance(related[j], target)
	})

	if len(related) > MaxRelated {
		related = related[:MaxRelated]
	}
	return related, nil
}

func distance(e, target Entry) time.Duration {
	d := e.Timestamp.Sub(target.Timestamp.Time)
	if d < 0 {
		return -d
	}
	return d
}
