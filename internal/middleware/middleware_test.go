// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/metrics"
)

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/test-devices/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues("GET", "/api/v1/test-devices/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/test-devices/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status = %d, want 418", rec.Code)
		}
	}

	if got := testutil.ToFloat64(counter); got != before+3 {
		t.Errorf("counter = %v, want %v", got, before+3)
	}
}

func TestPrometheusMetrics_FirstStatusWins(t *testing.T) {
	t.Parallel()

	var captured *metricsResponseWriter
	h := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		captured = w.(*metricsResponseWriter)
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	if captured.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want 201", captured.statusCode)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	t.Parallel()

	if got := RoutePattern(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != unmatchedRoute {
		t.Errorf("RoutePattern = %q, want %q", got, unmatchedRoute)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seenLogging, seenChi string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenLogging = logging.RequestIDFromContext(r.Context())
		seenChi = chimiddleware.GetReqID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"upstream", "req-from-proxy", true},
		{"oversized upstream", strings.Repeat("x", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.incoming != "" {
			req.Header.Set(RequestIDHeader, tt.incoming)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get(RequestIDHeader)
		if got == "" {
			t.Fatalf("%s: no request ID on response", tt.name)
		}
		if tt.keep && got != tt.incoming {
			t.Errorf("%s: request ID = %q, want %q", tt.name, got, tt.incoming)
		}
		if !tt.keep && got == tt.incoming {
			t.Errorf("%s: upstream ID should have been replaced", tt.name)
		}
		if seenLogging != got || seenChi != got {
			t.Errorf("%s: context IDs %q/%q, header %q", tt.name, seenLogging, seenChi, got)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame denial")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS expected over TLS")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS expected behind a TLS proxy")
	}
}
