// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package store provides the persistence backends for users, devices,
sessions and risk alerts.

Two implementations satisfy the same set of interfaces
(login.UserStore, device.Store, session.Store, risk.AlertStore):

  - DuckDBStore: durable storage in an embedded DuckDB database
  - MemoryStore: process-local maps, used by the "memory" driver and in tests

Lookups by ID return nil, nil when the record does not exist. Callers turn
that into models.ErrNotFound where the absence is a client error.
*/
package store
