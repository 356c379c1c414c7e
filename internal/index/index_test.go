// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
)

func openMemory(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func newEntry(eventType audit.EventType) audit.Entry {
	b := audit.NewBuilder(audit.NewMetadata("chasewhiterabbit", "test", "2.1.0"))
	return b.Build(eventType, audit.Context{User: audit.User("player-1", ""), Outcome: audit.OutcomeSuccess})
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestIndex_WriteAndLookup(t *testing.T) {
	t.Parallel()
	idx := openMemory(t)
	ctx := context.Background()

	e := newEntry(audit.EventDataCreate)
	line, err := audit.EncodeLine(&e)
	require.NoError(t, err)
	require.NoError(t, idx.Write(ctx, line, &e))

	got, found, err := idx.Lookup(ctx, e.AuditID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, e.AuditID, got.AuditID)
	assert.Equal(t, audit.EventDataCreate, got.EventType)
	assert.Equal(t, "player-1", got.UserID())

	_, found, err = idx.Lookup(ctx, "missing-audit-id")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIndex_AsWriterRouteAndReaderLookup(t *testing.T) {
	t.Parallel()
	idx := openMemory(t)
	ctx := context.Background()

	primary, err := audit.OpenSegmentSink("primary", audit.SegmentConfig{Path: filepath.Join(t.TempDir(), "audit.log")})
	require.NoError(t, err)
	w := audit.NewWriter(audit.Route{Sink: primary}, audit.Route{Sink: idx, Optional: true})
	t.Cleanup(func() { _ = primary.Close() })

	e := newEntry(audit.EventLoginSuccess)
	require.NoError(t, w.Append(ctx, &e))

	reader := audit.NewReader(primary, audit.WithIndex(idx))
	got, found, err := reader.FindByID(ctx, e.AuditID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, e.AuditID, got.AuditID)
}

type staticQuerier []audit.Entry

func (q staticQuerier) Query(context.Context, audit.Filter) (*audit.QueryResult, error) {
	return &audit.QueryResult{Entries: q}, nil
}

func TestIndex_Backfill(t *testing.T) {
	t.Parallel()
	idx := openMemory(t)
	ctx := context.Background()

	existing := newEntry(audit.EventDataRead)
	line, err := audit.EncodeLine(&existing)
	require.NoError(t, err)
	require.NoError(t, idx.Write(ctx, line, &existing))

	entries := staticQuerier{existing, newEntry(audit.EventDataUpdate), newEntry(audit.EventDataDelete)}
	added, err := idx.Backfill(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	added, err = idx.Backfill(ctx, entries)
	require.NoError(t, err)
	assert.Zero(t, added, "backfill is idempotent")
}

func TestIndex_Persistent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	e := newEntry(audit.EventConfigChange)
	line, err := audit.EncodeLine(&e)
	require.NoError(t, err)
	require.NoError(t, idx.Write(ctx, line, &e))
	require.NoError(t, idx.RunGC())
	require.NoError(t, idx.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	_, found, err := reopened.Lookup(ctx, e.AuditID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestIndex_Closed(t *testing.T) {
	t.Parallel()
	idx, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	e := newEntry(audit.EventDataRead)
	assert.ErrorIs(t, idx.Write(context.Background(), []byte("{}\n"), &e), ErrClosed)
	_, _, err = idx.Lookup(context.Background(), e.AuditID)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, idx.Sync())
}
