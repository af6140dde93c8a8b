// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/logging"
)

// Set by -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Msg("Starting sessionguard")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer app.Close()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Serving")
	if err := app.tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped")
	}

	unstopped, _ := app.tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
	}
	logging.Info().Msg("Shutdown complete")
}
