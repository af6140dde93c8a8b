// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package testinfra provides shared test infrastructure.
//
// # Redis Container
//
// Behind the integration build tag, NewRedisContainer starts a real Redis
// through testcontainers-go for the session index tests:
//
//	func TestRedisIndex(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//	    // connect to rc.Addr
//	}
//
// Run them with:
//
//	go test -tags integration ./...
//
// # Webhook Server
//
// MockWebhookServer captures HTTP deliveries in unit tests and needs no tag.
package testinfra
