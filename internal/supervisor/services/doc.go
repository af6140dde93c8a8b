// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package services adapts sessionguard's long-running components to
// suture.Service so the supervisor tree can restart them:
//
//   - HTTPServerService: the API server with graceful drain
//   - RunnerService: any RunWithContext loop (websocket hub, session
//     sweeper, activity log GC, event consumer)
package services
