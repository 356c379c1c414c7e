// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// SegmentSource opens the log files to read, oldest first. Every file is
// opened before any is read so rotation cannot move committed records out
// from under a scan.
type SegmentSource interface {
	OpenSegments() ([]*os.File, error)
}

// Lookup resolves an audit_id without scanning the log.
type Lookup interface {
	Lookup(ctx context.Context, auditID string) (Entry, bool, error)
}

// QueryResult holds matching entries, newest first. Skipped counts malformed
// lines that were ignored; a non-zero value means the read was degraded.
type QueryResult struct {
	Entries []Entry
	Skipped int
}

// Reader queries the persisted log. Reads run alongside appends and see
// whatever had been written when each segment was opened.
type Reader struct {
	source SegmentSource
	index  Lookup
	logger zerolog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithIndex uses idx to answer FindByID before falling back to a scan.
func WithIndex(idx Lookup) ReaderOption {
	return func(r *Reader) { r.index = idx }
}

// NewReader creates a reader over source.
func NewReader(source SegmentSource, opts ...ReaderOption) *Reader {
	r := &Reader{
		source: source,
		logger: logging.WithComponent("audit-reader"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errStopScan = errors.New("stop scan")

// scan decodes every record in insertion order and calls fn for each.
// Malformed lines are counted and skipped. fn may return errStopScan.
func (r *Reader) scan(ctx context.Context, fn func(e *Entry) error) (int, error) {
	files, err := r.source.OpenSegments()
	if err != nil {
		return 0, fmt.Errorf("open audit segments: %w", err)
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	skipped := 0
	for _, f := range files {
		n, err := r.scanFile(ctx, f, fn)
		skipped += n
		if errors.Is(err, errStopScan) {
			return skipped, nil
		}
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func (r *Reader) scanFile(ctx context.Context, f *os.File, fn func(e *Entry) error) (int, error) {
	path := f.Name()
	br := bufio.NewReaderSize(f, 64*1024)
	skipped := 0
	for lineNo := 1; ; lineNo++ {
		if lineNo%256 == 0 {
			if err := ctx.Err(); err != nil {
				return skipped, err
			}
		}

		line, readErr := br.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil || e.AuditID == "" {
				skipped++
				r.logger.Debug().Str("path", path).Int("line", lineNo).Msg("Skipping malformed audit record")
			} else if err := fn(&e); err != nil {
				return skipped, err
			}
		}

		if errors.Is(readErr, io.EOF) {
			return skipped, nil
		}
		if readErr != nil {
			return skipped, fmt.Errorf("read audit segment: %w", readErr)
		}
	}
}

// Query returns entries matching f, newest first. Entries with equal
// timestamps are returned in reverse insertion order.
func (r *Reader) Query(ctx context.Context, f Filter) (*QueryResult, error) {
	start := time.Now()

	var matched []Entry
	skipped, err := r.scan(ctx, func(e *Entry) error {
		if f.Matches(e) {
			matched = append(matched, *e)
		}
		return nil
	})
	metrics.RecordAuditQuery("query", time.Since(start), skipped)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logging.Ctx(ctx).Warn().Int("skipped", skipped).Msg("Audit log read degraded: malformed records skipped")
	}

	SortNewestFirst(matched)
	return &QueryResult{Entries: matched, Skipped: skipped}, nil
}

// SortNewestFirst orders entries in insertion order by timestamp descending,
// breaking ties by reverse insertion order.
func SortNewestFirst(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp.Time)
	})
}

// FindByID returns the entry with auditID. A missing entry is reported with
// found=false and a nil error.
func (r *Reader) FindByID(ctx context.Context, auditID string) (Entry, bool, error) {
	if r.index != nil {
		e, ok, err := r.index.Lookup(ctx, auditID)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Str("audit_id", auditID).Msg("Audit index lookup failed, scanning log")
		case ok:
			return e, true, nil
		}
	}

	start := time.Now()
	var (
		found Entry
		ok    bool
	)
	skipped, err := r.scan(ctx, func(e *Entry) error {
		if e.AuditID == auditID {
			found, ok = *e, true
			return errStopScan
		}
		return nil
	})
	metrics.RecordAuditQuery("find_by_id", time.Since(start), skipped)
	if err != nil {
		return Entry{}, false, err
	}
	return found, ok, nil
}
