// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

// Package index keeps an audit_id to entry index in BadgerDB so single-entry
// lookups do not scan the log. The index is an optional writer route: the
// NDJSON segments stay the source of truth and a missing or stale index only
// costs a scan.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/metrics"
)

// Name is the sink name used in metrics and write failures.
const Name = "index"

const prefixEntry = "entry:"

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("audit index is closed")

// Config configures the BadgerDB index.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the index in memory only (tests).
	InMemory bool

	// SyncWrites fsyncs every index write.
	SyncWrites bool

	// Compression enables Snappy block compression.
	Compression bool

	// GCRatio is the value log discard ratio for RunGC.
	GCRatio float64
}

// Index is a BadgerDB-backed audit.Sink and audit.Lookup.
type Index struct {
	db     *badger.DB
	cfg    Config
	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the index described by cfg.
func Open(cfg Config) (*Index, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("index path is required unless running in memory")
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Audit index opened")
	return &Index{db: db, cfg: cfg}, nil
}

func key(auditID string) []byte {
	return []byte(prefixEntry + auditID)
}

// Name implements audit.Sink.
func (i *Index) Name() string { return Name }

// Write implements audit.Sink. The stored value is the NDJSON line itself.
func (i *Index) Write(_ context.Context, line []byte, e *audit.Entry) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return ErrClosed
	}

	value := make([]byte, len(line))
	copy(value, line)
	return i.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key(e.AuditID), value))
	})
}

// Lookup implements audit.Lookup.
func (i *Index) Lookup(_ context.Context, auditID string) (audit.Entry, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return audit.Entry{}, false, ErrClosed
	}

	var (
		entry audit.Entry
		found bool
	)
	err := i.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(auditID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	switch {
	case err != nil:
		metrics.IndexLookups.WithLabelValues("error").Inc()
		return audit.Entry{}, false, fmt.Errorf("index lookup %s: %w", auditID, err)
	case found:
		metrics.IndexLookups.WithLabelValues("hit").Inc()
	default:
		metrics.IndexLookups.WithLabelValues("miss").Inc()
	}
	return entry, found, nil
}

// Querier reads the audit trail for Backfill.
type Querier interface {
	Query(ctx context.Context, f audit.Filter) (*audit.QueryResult, error)
}

// Backfill indexes every entry q returns that the index does not already
// hold. It returns the number of entries added.
func (i *Index) Backfill(ctx context.Context, q Querier) (int, error) {
	start := time.Now()

	res, err := q.Query(ctx, audit.Filter{})
	if err != nil {
		return 0, fmt.Errorf("read audit trail: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, ErrClosed
	}

	wb := i.db.NewWriteBatch()
	defer wb.Cancel()

	added := 0
	for idx := range res.Entries {
		e := &res.Entries[idx]
		exists, err := i.has(e.AuditID)
		if err != nil {
			return added, err
		}
		if exists {
			continue
		}
		line, err := json.Marshal(e)
		if err != nil {
			return added, fmt.Errorf("marshal entry %s: %w", e.AuditID, err)
		}
		if err := wb.Set(key(e.AuditID), line); err != nil {
			return added, fmt.Errorf("index entry %s: %w", e.AuditID, err)
		}
		added++
	}
	if err := wb.Flush(); err != nil {
		return added, fmt.Errorf("flush index batch: %w", err)
	}

	logging.Info().
		Int("added", added).
		Int("scanned", len(res.Entries)).
		Dur("duration", time.Since(start)).
		Msg("Audit index backfilled")
	return added, nil
}

func (i *Index) has(auditID string) (bool, error) {
	err := i.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(auditID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Count returns the number of indexed entries.
func (i *Index) Count() (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, ErrClosed
	}

	n := 0
	err := i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC reclaims value log space. It is a no-op for in-memory indexes.
func (i *Index) RunGC() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return ErrClosed
	}
	if i.cfg.InMemory {
		return nil
	}
	for {
		err := i.db.RunValueLogGC(i.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// Sync implements audit.Syncer.
func (i *Index) Sync() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil
	}
	return i.db.Sync()
}

// Close implements audit.Sink. It is safe to call more than once.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.db.Close()
}
