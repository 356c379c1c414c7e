// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/config"
	"github.com/tomtom215/chasewhiterabbit/internal/index"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/stream"
)

// trail is the wired audit pipeline.
type trail struct {
	writer *audit.Writer
	logger *audit.Logger
	reader *audit.Reader
	index  *index.Index // nil when disabled
}

// initTrail opens the segment files and the optional index and stream sinks.
// Only the segments are required routes; the index and stream are optional
// and never fail an append.
func initTrail(ctx context.Context, cfg *config.Config) (*trail, error) {
	primary, err := audit.OpenSegmentSink("primary", segmentConfig(cfg.Audit.PrimaryPath(), cfg.Audit.Primary, cfg.Audit.SyncWrites))
	if err != nil {
		return nil, fmt.Errorf("open primary audit log: %w", err)
	}
	critical, err := audit.OpenSegmentSink("critical", segmentConfig(cfg.Audit.CriticalPath(), cfg.Audit.Critical, cfg.Audit.SyncWrites))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open critical audit log: %w", err), primary.Close())
	}

	routes := []audit.Route{
		{Sink: primary},
		{Sink: critical, MinSeverity: audit.SeverityError},
	}
	var readerOpts []audit.ReaderOption

	var idx *index.Index
	if cfg.Index.Enabled {
		idx, err = index.Open(index.Config{
			Path:        cfg.Index.Path,
			SyncWrites:  cfg.Index.SyncWrites,
			Compression: true,
			GCRatio:     0.5,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open audit index: %w", err), primary.Close(), critical.Close())
		}
		routes = append(routes, audit.Route{Sink: idx, Optional: true})
		readerOpts = append(readerOpts, audit.WithIndex(idx))
		logging.Info().Str("path", cfg.Index.Path).Msg("Audit index enabled")
	}

	if cfg.Stream.Enabled {
		if sink, err := initStream(&cfg.Stream); err != nil {
			// The stream is optional: run without it rather than refuse to start.
			logging.Warn().Err(err).Str("url", cfg.Stream.URL).Msg("Audit stream unavailable, continuing without it")
		} else {
			routes = append(routes, audit.Route{Sink: sink, Optional: true})
			logging.Info().Str("url", cfg.Stream.URL).Str("topic_prefix", cfg.Stream.TopicPrefix).Msg("Audit stream enabled")
		}
	}

	writer := audit.NewWriter(routes...)
	builder := audit.NewBuilder(audit.NewMetadata(cfg.Audit.ServiceName, cfg.Server.Environment, cfg.Audit.Version))
	logger := audit.NewLogger(builder, writer, &audit.Config{
		Enabled:     cfg.Audit.Enabled,
		LogToStdout: cfg.Audit.LogToStdout,
	})
	reader := audit.NewReader(primary, readerOpts...)

	if idx != nil && cfg.Index.Backfill {
		if _, err := idx.Backfill(ctx, reader); err != nil {
			logging.Warn().Err(err).Msg("Audit index backfill failed, lookups fall back to scans")
		}
	}

	return &trail{writer: writer, logger: logger, reader: reader, index: idx}, nil
}

func segmentConfig(path string, p config.SegmentPolicy, syncWrites bool) audit.SegmentConfig {
	return audit.SegmentConfig{
		Path:        path,
		MaxBytes:    p.MaxBytes,
		MaxRecords:  p.MaxRecords,
		MaxSegments: p.MaxSegments,
		SyncWrites:  syncWrites,
	}
}

func initStream(cfg *config.StreamConfig) (*stream.Sink, error) {
	sc := stream.DefaultConfig()
	sc.URL = cfg.URL
	if cfg.TopicPrefix != "" {
		sc.TopicPrefix = cfg.TopicPrefix
	}
	if cfg.MaxReconnects != 0 {
		sc.MaxReconnects = cfg.MaxReconnects
	}
	if cfg.ReconnectWait > 0 {
		sc.ReconnectWait = cfg.ReconnectWait
	}
	if cfg.FailureThreshold > 0 {
		sc.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.OpenTimeout > 0 {
		sc.OpenTimeout = cfg.OpenTimeout
	}
	if cfg.PublishTimeout > 0 {
		sc.PublishTimeout = cfg.PublishTimeout
	}

	pub, err := stream.NewNATSPublisher(sc)
	if err != nil {
		return nil, err
	}
	return stream.NewSink(pub, sc), nil
}

// Close flushes and closes every sink.
func (t *trail) Close() error {
	return t.writer.Close()
}
