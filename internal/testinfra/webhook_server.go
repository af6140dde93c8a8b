// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// WebhookCapture represents a captured webhook request.
type WebhookCapture struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// MockWebhookServer captures every request it receives.
type MockWebhookServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	captures []WebhookCapture
	status   int
}

// NewMockWebhookServer starts a capturing server that answers 200.
// It is closed automatically when the test ends.
func NewMockWebhookServer(t *testing.T) *MockWebhookServer {
	t.Helper()

	mws := &MockWebhookServer{status: http.StatusOK}
	mws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		mws.mu.Lock()
		mws.captures = append(mws.captures, WebhookCapture{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		status := mws.status
		mws.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(mws.Server.Close)

	return mws
}

// URL returns the server URL.
func (m *MockWebhookServer) URL() string {
	return m.Server.URL
}

// SetStatus changes the status code returned for subsequent requests.
func (m *MockWebhookServer) SetStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = code
}

// GetCaptures returns all captured requests.
func (m *MockWebhookServer) GetCaptures() []WebhookCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]WebhookCapture, len(m.captures))
	copy(result, m.captures)
	return result
}

// WaitForCaptures waits until at least n requests are captured or timeout elapses.
func (m *MockWebhookServer) WaitForCaptures(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		count := len(m.captures)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
