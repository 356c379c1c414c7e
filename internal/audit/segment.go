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
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// SegmentConfig controls a segmented JSONL file sink.
type SegmentConfig struct {
	// Path is the active segment. Rotated segments are named by inserting a
	// sequence number before the extension: audit.log, audit.1.log, audit.2.log.
	Path string

	// MaxBytes rotates before a write would grow the active segment past it.
	// Zero disables the byte bound.
	MaxBytes int64

	// MaxRecords rotates once the active segment holds this many lines.
	// Zero disables the record bound.
	MaxRecords int64

	// MaxSegments is the number of rotated segments kept. The oldest is
	// removed first.
	MaxSegments int

	// SyncWrites fsyncs after every record.
	SyncWrites bool
}

// SegmentSink appends one JSON line per entry to a size-bounded, rotating
// set of files. Each record is written with a single write call on an
// O_APPEND descriptor under a mutex, so concurrent appends never interleave.
type SegmentSink struct {
	name string
	cfg  SegmentConfig

	mu      sync.Mutex
	file    *os.File
	size    int64
	records int64
	closed  bool
}

// OpenSegmentSink opens (or creates) the active segment at cfg.Path.
func OpenSegmentSink(name string, cfg SegmentConfig) (*SegmentSink, error) {
	if cfg.Path == "" {
		return nil, errors.New("segment path is required")
	}
	if cfg.MaxSegments < 0 {
		cfg.MaxSegments = 0
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	s := &SegmentSink{name: name, cfg: cfg}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SegmentSink) open() error {
	f, err := os.OpenFile(s.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open audit segment %s: %w", s.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit segment %s: %w", s.cfg.Path, err)
	}

	s.file = f
	s.size = info.Size()
	s.records = 0
	if s.cfg.MaxRecords > 0 && s.size > 0 {
		n, err := countLines(s.cfg.Path)
		if err != nil {
			_ = f.Close()
			return err
		}
		s.records = n
	}
	return nil
}

func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("count audit segment lines: %w", err)
	}
	defer f.Close()

	var n int64
	buf := make([]byte, 64*1024)
	r := bufio.NewReader(f)
	for {
		c, err := r.Read(buf)
		n += int64(bytes.Count(buf[:c], []byte{'\n'}))
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("count audit segment lines: %w", err)
		}
	}
}

// Name returns the sink name used in logs and metrics.
func (s *SegmentSink) Name() string { return s.name }

// Write appends one complete line. line must end with '\n'.
func (s *SegmentSink) Write(_ context.Context, line []byte, _ *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if s.shouldRotate(int64(len(line))) {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	n, err := s.file.Write(line)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("write audit segment: %w", err)
	}
	if n < len(line) {
		return fmt.Errorf("write audit segment: %w", io.ErrShortWrite)
	}
	s.records++

	if s.cfg.SyncWrites {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("sync audit segment: %w", err)
		}
	}
	return nil
}

func (s *SegmentSink) shouldRotate(next int64) bool {
	if s.size == 0 {
		return false
	}
	if s.cfg.MaxBytes > 0 && s.size+next > s.cfg.MaxBytes {
		return true
	}
	return s.cfg.MaxRecords > 0 && s.records >= s.cfg.MaxRecords
}

// rotate shifts every segment up by one, dropping the oldest beyond
// MaxSegments, then opens a fresh active segment. Must hold s.mu.
func (s *SegmentSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close audit segment for rotation: %w", err)
	}

	shiftErr := s.shift()
	if err := s.open(); err != nil {
		return errors.Join(shiftErr, err)
	}
	if shiftErr != nil {
		return shiftErr
	}

	metrics.AuditSegmentRotations.WithLabelValues(s.name).Inc()
	logging.Debug().Str("sink", s.name).Str("path", s.cfg.Path).Msg("Audit segment rotated")
	return nil
}

func (s *SegmentSink) shift() error {
	if s.cfg.MaxSegments == 0 {
		if err := os.Remove(s.cfg.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove audit segment: %w", err)
		}
		return nil
	}

	oldest := segmentPath(s.cfg.Path, s.cfg.MaxSegments)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove oldest audit segment: %w", err)
	}
	for i := s.cfg.MaxSegments - 1; i >= 1; i-- {
		from := segmentPath(s.cfg.Path, i)
		if err := os.Rename(from, segmentPath(s.cfg.Path, i+1)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("shift audit segment %d: %w", i, err)
		}
	}
	if err := os.Rename(s.cfg.Path, segmentPath(s.cfg.Path, 1)); err != nil {
		return fmt.Errorf("rotate audit segment: %w", err)
	}
	return nil
}

// segmentPath returns the path of rotated segment n (n >= 1).
func segmentPath(base string, n int) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + strconv.Itoa(n) + ext
}

// Segments lists existing segment files from oldest to newest. The active
// segment is always last.
func (s *SegmentSink) Segments() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, s.cfg.MaxSegments+1)
	for i := s.cfg.MaxSegments; i >= 1; i-- {
		p := segmentPath(s.cfg.Path, i)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat audit segment: %w", err)
		}
	}
	return append(paths, s.cfg.Path), nil
}

// OpenSegments opens every segment for reading, oldest first, while holding
// the rotation lock. The returned descriptors stay valid when a later
// rotation renames or removes their files. The caller closes them.
func (s *SegmentSink) OpenSegments() ([]*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]*os.File, 0, s.cfg.MaxSegments+1)
	fail := func(err error) ([]*os.File, error) {
		for _, f := range files {
			_ = f.Close()
		}
		return nil, err
	}
	paths := make([]string, 0, s.cfg.MaxSegments+1)
	for i := s.cfg.MaxSegments; i >= 1; i-- {
		paths = append(paths, segmentPath(s.cfg.Path, i))
	}
	for _, p := range append(paths, s.cfg.Path) {
		f, err := os.Open(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fail(fmt.Errorf("open audit segment: %w", err))
		}
		files = append(files, f)
	}
	return files, nil
}

// Sync flushes the active segment to stable storage.
func (s *SegmentSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	return s.file.Sync()
}

// Close syncs and closes the active segment.
func (s *SegmentSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	syncErr := s.file.Sync()
	return errors.Join(syncErr, s.file.Close())
}
