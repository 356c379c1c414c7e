// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestSegmentPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/var/log/audit.1.log", segmentPath("/var/log/audit.log", 1))
	assert.Equal(t, "/var/log/audit-critical.12.log", segmentPath("/var/log/audit-critical.log", 12))
	assert.Equal(t, "/var/log/audit.3", segmentPath("/var/log/audit", 3))
}

func TestSegmentSink_AppendsLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := OpenSegmentSink("primary", SegmentConfig{Path: path, SyncWrites: true})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Write(context.Background(), []byte(fmt.Sprintf("{\"n\":%d}\n", i)), nil))
	}
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{`{"n":0}`, `{"n":1}`, `{"n":2}`}, readLines(t, path))
	assert.ErrorIs(t, sink.Write(context.Background(), []byte("{}\n"), nil), ErrSinkClosed)
	assert.NoError(t, sink.Close(), "double close is a no-op")
}

func TestSegmentSink_ReopenAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	cfg := SegmentConfig{Path: path, MaxRecords: 3, MaxSegments: 2}

	sink, err := OpenSegmentSink("primary", cfg)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), []byte("{\"n\":1}\n"), nil))
	require.NoError(t, sink.Write(context.Background(), []byte("{\"n\":2}\n"), nil))
	require.NoError(t, sink.Close())

	sink, err = OpenSegmentSink("primary", cfg)
	require.NoError(t, err)
	defer sink.Close()
	require.NoError(t, sink.Write(context.Background(), []byte("{\"n\":3}\n"), nil))
	require.NoError(t, sink.Write(context.Background(), []byte("{\"n\":4}\n"), nil))

	// The record count survives reopening, so the fourth record rotated.
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, readLines(t, segmentPath(path, 1)))
	assert.Equal(t, []string{`{"n":4}`}, readLines(t, path))
}

func TestSegmentSink_RotatesByBytesAndDropsOldest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	line := []byte(strings.Repeat("x", 9) + "\n") // 10 bytes
	sink, err := OpenSegmentSink("primary", SegmentConfig{Path: path, MaxBytes: 25, MaxSegments: 2})
	require.NoError(t, err)
	defer sink.Close()

	// Two records fit per segment; eight records produce four segments, of
	// which only the active one and two rotated ones survive.
	for i := 0; i < 8; i++ {
		require.NoError(t, sink.Write(context.Background(), line, nil))
	}

	segments, err := sink.Segments()
	require.NoError(t, err)
	assert.Equal(t, []string{segmentPath(path, 2), segmentPath(path, 1), path}, segments)

	_, err = os.Stat(segmentPath(path, 3))
	assert.True(t, os.IsNotExist(err), "segment beyond MaxSegments must be removed")

	for _, p := range segments {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(25))
	}
}

func TestSegmentSink_OversizedRecordStillWritten(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := OpenSegmentSink("primary", SegmentConfig{Path: path, MaxBytes: 4, MaxSegments: 1})
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), []byte("{\"big\":true}\n"), nil))
	assert.Equal(t, []string{`{"big":true}`}, readLines(t, path))
}

func TestSegmentSink_NoHistory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := OpenSegmentSink("primary", SegmentConfig{Path: path, MaxRecords: 1})
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), []byte("{\"n\":1}\n"), nil))
	require.NoError(t, sink.Write(context.Background(), []byte("{\"n\":2}\n"), nil))

	segments, err := sink.Segments()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, segments)
	assert.Equal(t, []string{`{"n":2}`}, readLines(t, path))
}

func TestSegmentSink_ConcurrentAppendsNeverInterleave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := OpenSegmentSink("primary", SegmentConfig{Path: path})
	require.NoError(t, err)

	b := NewBuilder(testMetadata())
	const writers, perWriter = 16, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				e := b.Build(EventDataRead, Context{
					User:    User(fmt.Sprintf("user-%d", w), ""),
					Details: Fields{"payload": strings.Repeat("d", 512+i)},
				})
				line, err := EncodeLine(&e)
				if err != nil {
					t.Error(err)
					return
				}
				if err := sink.Write(context.Background(), line, &e); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, sink.Close())

	lines := readLines(t, path)
	require.Len(t, lines, writers*perWriter)
	ids := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(l), &e), "line must be a complete record")
		ids[e.AuditID] = struct{}{}
	}
	assert.Len(t, ids, writers*perWriter)
}
