// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/chasewhiterabbit/internal/api"
	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/compliance"
	"github.com/tomtom215/chasewhiterabbit/internal/config"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
	"github.com/tomtom215/chasewhiterabbit/internal/supervisor"
	"github.com/tomtom215/chasewhiterabbit/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("audit_dir", cfg.Audit.Dir).
		Bool("index", cfg.Index.Enabled).
		Bool("stream", cfg.Stream.Enabled).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t, err := initTrail(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit trail")
		}
	}()

	generator := compliance.NewGenerator(t.reader, t.logger, compliance.WithPolicy(compliance.Policy{
		Status: compliance.ThresholdStatus(cfg.Compliance.Threshold),
	}))
	handler := api.NewHandler(t.logger, t.reader, generator, cfg.Audit.Version)
	router := api.NewRouter(cfg.Security, handler, t.logger, nil)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if !cfg.Audit.SyncWrites {
		tree.AddStorageService(services.NewFlushService(t.writer, cfg.Audit.FlushInterval))
	}
	if t.index != nil {
		tree.AddStorageService(services.NewIndexGCService(t.index, cfg.Index.GCInterval))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	t.logger.LogSystemEvent(ctx, audit.EventStartup, audit.OutcomeSuccess, audit.Fields{
		"addr":        server.Addr,
		"environment": cfg.Server.Environment,
		"index":       cfg.Index.Enabled,
		"stream":      cfg.Stream.Enabled,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	serveErr := <-tree.ServeBackground(ctx)
	if serveErr != nil && errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	outcome := audit.OutcomeSuccess
	details := audit.Fields{}
	if serveErr != nil {
		outcome = audit.OutcomeFailure
		details["error"] = serveErr.Error()
	}
	// ctx is canceled by now; the writer never abandons an append.
	t.logger.LogSystemEvent(context.Background(), audit.EventShutdown, outcome, details)

	logging.Info().Msg("Shutdown complete")
	return serveErr
}
