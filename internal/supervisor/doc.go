// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package supervisor runs sessionguard's long-lived components under a
// suture v4 supervisor tree with restart backoff and bounded shutdown.
//
// Usage:
//
//	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddMaintenanceService(services.NewRunnerService("session-sweeper", sweeper))
//	tree.AddMessagingService(services.NewRunnerService("websocket-hub", hub))
//	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
//	err := tree.Serve(ctx)
package supervisor
