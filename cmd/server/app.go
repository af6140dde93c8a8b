// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/sessionguard/internal/activity"
	"github.com/tomtom215/sessionguard/internal/api"
	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/authz"
	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/device"
	"github.com/tomtom215/sessionguard/internal/events"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/login"
	"github.com/tomtom215/sessionguard/internal/notify"
	"github.com/tomtom215/sessionguard/internal/risk"
	"github.com/tomtom215/sessionguard/internal/session"
	"github.com/tomtom215/sessionguard/internal/store"
	"github.com/tomtom215/sessionguard/internal/supervisor"
	"github.com/tomtom215/sessionguard/internal/supervisor/services"
	ws "github.com/tomtom215/sessionguard/internal/websocket"
)

// appStore is the relational store; DuckDB and memory both satisfy it.
type appStore interface {
	login.UserStore
	device.Store
	session.Store
	risk.AlertStore
	Ping(ctx context.Context) error
	Close() error
}

// app holds everything main starts and must close.
type app struct {
	tree    *supervisor.SupervisorTree
	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn().Err(err).Msg("Close failed")
		}
	}
}

func (a *app) onClose(f func() error) {
	a.closers = append(a.closers, f)
}

//nolint:gocyclo // sequential wiring
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	st, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	a.onClose(st.Close)

	badgerDB, err := activity.OpenBadger(&cfg.Activity)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	a.onClose(badgerDB.Close)

	checks := []api.HealthCheck{
		{Name: "database", Critical: true, Check: st.Ping},
		{Name: "activity_log", Critical: true, Check: badgerCheck(badgerDB)},
	}

	var index session.Index = session.NopIndex{}
	if cfg.Redis.Enabled {
		rdb, rerr := session.ConnectRedis(ctx, &cfg.Redis)
		if rerr != nil {
			return nil, fmt.Errorf("connect redis: %w", rerr)
		}
		a.onClose(rdb.Close)
		index = session.NewRedisIndex(rdb)
		checks = append(checks, api.HealthCheck{Name: "redis", Check: redisCheck(rdb)})
	}

	bus, err := events.NewBus(&cfg.Events, watermill.NewSlogLogger(logging.NewSlogLogger()))
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	a.onClose(bus.Close)

	hub := ws.NewHub(cfg.Security.CORSOrigins...)
	handlers := []events.AlertHandler{hub}
	if notifier := notify.NewWebhookNotifier(&cfg.Events); notifier.Enabled() {
		handlers = append(handlers, notifier)
		logging.Info().Msg("Webhook alert delivery enabled")
	}
	consumer := events.NewConsumer(bus, handlers...)

	evaluator := risk.NewEvaluator(risk.Config{
		ImpossibleTravelSpeedKmh: cfg.Risk.ImpossibleTravelSpeedKmh,
		SuspiciousTravelSpeedKmh: cfg.Risk.SuspiciousTravelSpeedKmh,
		HighRiskThreshold:        cfg.Risk.HighRiskThreshold,
		CriticalRiskThreshold:    cfg.Risk.CriticalRiskThreshold,
	})
	devices := device.NewResolver(st)
	ledger := session.NewLedger(st, index, session.Config{
		InactivityThreshold: cfg.Session.InactivityThreshold,
		HistoryLimit:        cfg.Session.HistoryLimit,
	})
	alerts := risk.NewGenerator(st, risk.Publishers{bus})
	activityStore := activity.NewBadgerStore(badgerDB, cfg.Activity.Retention)
	tracker := activity.NewService(activityStore)

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("create token manager: %w", err)
	}
	loginSvc := login.NewService(login.Deps{
		Users:      st,
		Devices:    devices,
		Ledger:     ledger,
		Evaluator:  evaluator,
		Alerts:     alerts,
		Aggregator: risk.NewAggregator(st),
		Tokens:     tokens,
		Activity:   tracker,
		Evictions:  bus,
	}, login.Config{
		BcryptCost:        cfg.Security.BcryptCost,
		PasswordMinLength: cfg.Security.PasswordMinLength,
	})

	enforcer, err := authz.NewEnforcer(&cfg.Security.Casbin)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	handler := api.NewHandler(api.Deps{
		Login:    loginSvc,
		Devices:  devices,
		Ledger:   ledger,
		Alerts:   alerts,
		Activity: tracker,
		Enforcer: enforcer,
		Stream:   hub,
		Checks:   checks,
		Version:  version,
	})
	router := api.NewRouter(handler,
		auth.NewMiddleware(tokens, loginSvc, api.WriteServiceError),
		authz.NewMiddleware(enforcer, api.WriteServiceError),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddMaintenanceService(services.NewRunnerService("session-sweeper",
		session.NewSweeper(ledger, cfg.Session.SweepInterval)))
	tree.AddMaintenanceService(services.NewRunnerService("activity-gc",
		activity.NewGCRunner(activityStore, cfg.Activity.GCInterval)))
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", hub))
	tree.AddMessagingService(services.NewRunnerService("event-consumer", consumer))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("event_bus", bus.Backend()).
		Bool("redis_index", cfg.Redis.Enabled).
		Msg("Components initialized")

	a.tree = tree
	return a, nil
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (appStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logging.Warn().Msg("Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	case config.DriverDuckDB, "":
		st, err := store.OpenDuckDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func badgerCheck(db *badger.DB) func(context.Context) error {
	return func(context.Context) error {
		if db.IsClosed() {
			return fmt.Errorf("activity log is closed")
		}
		return nil
	}
}

func redisCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
