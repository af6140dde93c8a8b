// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package authz decides what a role may do, using a Casbin RBAC model.
//
// Objects are resource names (devices, sessions, alerts, ...) and actions
// are read, write or a named operation such as sweep. The admin role
// inherits every user permission. The model and policy are embedded and
// can be replaced with files through security.casbin.
package authz
