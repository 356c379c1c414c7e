// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
	"test":        true,
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate checks the configuration. All problems are reported together.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateLogging(),
		c.validateAudit(),
		c.validateIndex(),
		c.validateStream(),
		c.validateSecurity(),
		c.validateCompliance(),
	)
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("server.environment must be development, staging, production or test, got %q", c.Server.Environment)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.Dir == "" {
		return errors.New("audit.dir is required")
	}
	if c.Audit.ServiceName == "" {
		return errors.New("audit.service_name is required")
	}
	if !c.Audit.SyncWrites && c.Audit.FlushInterval <= 0 {
		return errors.New("audit.flush_interval must be positive when audit.sync_writes is off")
	}
	if err := validateSegment("audit.primary", c.Audit.Primary); err != nil {
		return err
	}
	if err := validateSegment("audit.critical", c.Audit.Critical); err != nil {
		return err
	}
	if c.Audit.Primary.File == c.Audit.Critical.File {
		return errors.New("audit.primary.file and audit.critical.file must differ")
	}
	return nil
}

func validateSegment(name string, s SegmentPolicy) error {
	if s.File == "" {
		return fmt.Errorf("%s.file is required", name)
	}
	if s.MaxBytes < 0 || s.MaxRecords < 0 || s.MaxSegments < 0 {
		return fmt.Errorf("%s limits must not be negative", name)
	}
	if s.MaxBytes > 0 && s.MaxBytes < 1024 {
		return fmt.Errorf("%s.max_bytes must be at least 1024, got %d", name, s.MaxBytes)
	}
	return nil
}

func (c *Config) validateIndex() error {
	if c.Index.Enabled && c.Index.Path == "" {
		return errors.New("index.path is required when the index is enabled")
	}
	return nil
}

func (c *Config) validateStream() error {
	if !c.Stream.Enabled {
		return nil
	}
	u, err := url.Parse(c.Stream.URL)
	if err != nil || (u.Scheme != "nats" && u.Scheme != "tls") || u.Host == "" {
		return fmt.Errorf("stream.url must be a nats:// or tls:// URL, got %q", c.Stream.URL)
	}
	if c.Stream.TopicPrefix == "" {
		return errors.New("stream.topic_prefix is required when the stream is enabled")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("security.rate_limit_requests must be positive, got %d", c.Security.RateLimitRequests)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("security.rate_limit_window must be at least 1s, got %s", c.Security.RateLimitWindow)
	}
	if c.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return errors.New("security.cors_origins must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateCompliance() error {
	if c.Compliance.Threshold < 0 || c.Compliance.Threshold > 100 {
		return fmt.Errorf("compliance.threshold must be between 0 and 100, got %v", c.Compliance.Threshold)
	}
	return nil
}
