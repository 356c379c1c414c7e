// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package config

import (
	"path/filepath"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Audit      AuditConfig      `koanf:"audit"`
	Index      IndexConfig      `koanf:"index"`
	Stream     StreamConfig     `koanf:"stream"`
	Security   SecurityConfig   `koanf:"security"`
	Compliance ComplianceConfig `koanf:"compliance"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// LoggingConfig holds application log settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// SegmentPolicy describes one audit file and its rotation.
type SegmentPolicy struct {
	File        string `koanf:"file"`
	MaxBytes    int64  `koanf:"max_bytes"`
	MaxRecords  int64  `koanf:"max_records"`
	MaxSegments int    `koanf:"max_segments"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Dir         string `koanf:"dir"`
	ServiceName string `koanf:"service_name"`
	Version     string `koanf:"version"`

	// LogToStdout mirrors every entry into the application log.
	LogToStdout bool `koanf:"log_to_stdout"`

	// SyncWrites fsyncs after every append.
	SyncWrites bool `koanf:"sync_writes"`

	// FlushInterval bounds how long an unsynced append may sit in the page
	// cache when SyncWrites is off.
	FlushInterval time.Duration `koanf:"flush_interval"`

	Primary  SegmentPolicy `koanf:"primary"`
	Critical SegmentPolicy `koanf:"critical"`
}

// PrimaryPath is the active primary segment.
func (a *AuditConfig) PrimaryPath() string {
	return filepath.Join(a.Dir, a.Primary.File)
}

// CriticalPath is the active error-severity segment.
func (a *AuditConfig) CriticalPath() string {
	return filepath.Join(a.Dir, a.Critical.File)
}

// IndexConfig holds the BadgerDB audit index settings.
type IndexConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	SyncWrites bool          `koanf:"sync_writes"`
	Backfill   bool          `koanf:"backfill"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// StreamConfig holds the NATS stream sink settings.
type StreamConfig struct {
	Enabled          bool          `koanf:"enabled"`
	URL              string        `koanf:"url"`
	TopicPrefix      string        `koanf:"topic_prefix"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
	PublishTimeout   time.Duration `koanf:"publish_timeout"`
}

// SecurityConfig holds HTTP security settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// ComplianceConfig holds report scoring settings.
type ComplianceConfig struct {
	Threshold float64 `koanf:"threshold"`
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled:       true,
			Dir:           "logs",
			ServiceName:   "chasewhiterabbit",
			Version:       "2.1.0",
			FlushInterval: time.Second,
			Primary: SegmentPolicy{
				File:        "audit.log",
				MaxBytes:    100 << 20,
				MaxSegments: 10,
			},
			Critical: SegmentPolicy{
				File:        "audit-critical.log",
				MaxBytes:    50 << 20,
				MaxSegments: 20,
			},
		},
		Index: IndexConfig{
			Enabled:    false,
			Path:       "data/audit-index",
			Backfill:   true,
			GCInterval: 10 * time.Minute,
		},
		Stream: StreamConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			TopicPrefix:      "audit.events",
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			PublishTimeout:   2 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"http://localhost:3000"},
			RateLimitRequests: 50,
			RateLimitWindow:   15 * time.Minute,
		},
		Compliance: ComplianceConfig{
			Threshold: 80,
		},
	}
}
