// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sessionguard/internal/events"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// testClient creates a client without a connection.
func testClient(hub *Hub, userID string) *Client {
	return &Client{id: clientIDCounter.Add(1), userID: userID, hub: hub, send: make(chan Message, sendBuffer)}
}

func expectMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func expectNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case m := <-c.send:
		t.Fatalf("unexpected message %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoutesAlertsToOwningUser(t *testing.T) {
	hub := startHub(t)

	alice1 := testClient(hub, "alice")
	alice2 := testClient(hub, "alice")
	bob := testClient(hub, "bob")
	for _, c := range []*Client{alice1, alice2, bob} {
		hub.Register <- c
	}

	a := &models.RiskAlert{ID: "a1", UserID: "alice", AlertType: models.AlertSuspiciousDevice, Severity: models.SeverityHigh}
	if err := hub.HandleAlert(context.Background(), a); err != nil {
		t.Fatalf("HandleAlert: %v", err)
	}

	for _, c := range []*Client{alice1, alice2} {
		m := expectMessage(t, c)
		if m.Type != MessageTypeRiskAlert {
			t.Errorf("type = %q, want %q", m.Type, MessageTypeRiskAlert)
		}
		if got, ok := m.Data.(*models.RiskAlert); !ok || got.ID != "a1" {
			t.Errorf("unexpected data %#v", m.Data)
		}
	}
	expectNoMessage(t, bob)

	if hub.UserClientCount("alice") != 2 || hub.GetClientCount() != 3 {
		t.Errorf("counts: alice=%d total=%d", hub.UserClientCount("alice"), hub.GetClientCount())
	}
}

func TestHub_SessionEvicted(t *testing.T) {
	hub := startHub(t)

	c := testClient(hub, "alice")
	hub.Register <- c

	_ = hub.HandleSessionEvicted(context.Background(), &events.SessionEvicted{UserID: "alice", SessionID: "s-old"})
	if m := expectMessage(t, c); m.Type != MessageTypeSessionEvicted {
		t.Errorf("type = %q", m.Type)
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := startHub(t)

	c := testClient(hub, "alice")
	hub.Register <- c
	hub.Unregister <- c
	// Unregistering twice is harmless.
	hub.Unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d, want 0", hub.GetClientCount())
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := &Client{id: clientIDCounter.Add(1), userID: "alice", hub: hub, send: make(chan Message)}
	hub.Register <- slow

	hub.SendToUser("alice", MessageTypeRiskAlert, nil)

	deadline := time.Now().Add(time.Second)
	for hub.UserClientCount("alice") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was not dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	c := testClient(hub, "alice")
	hub.Register <- c
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext returned %v", err)
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Errorf("got %q", got)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("got %q", got)
	}
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	wildcard := originChecker([]string{"*"})
	if !wildcard(req("https://evil.example")) {
		t.Error("wildcard should accept any origin")
	}

	strict := originChecker([]string{"https://app.example"})
	if !strict(req("https://app.example")) || strict(req("https://evil.example")) {
		t.Error("strict checker mismatch")
	}
	if !strict(req("")) {
		t.Error("requests without Origin are not browser cross-origin requests")
	}
}

func TestServeWS_EndToEnd(t *testing.T) {
	hub := startHub(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.ServeWS(w, r, r.URL.Query().Get("user")); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=alice"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.UserClientCount("alice") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Application-level ping.
	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong Message
	if err := conn.ReadJSON(&pong); err != nil || pong.Type != MessageTypePong {
		t.Fatalf("expected pong, got %+v (%v)", pong, err)
	}

	_ = hub.HandleAlert(context.Background(), &models.RiskAlert{ID: "a1", UserID: "alice"})
	var got struct {
		Type string           `json:"type"`
		Data models.RiskAlert `json:"data"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read alert: %v", err)
	}
	if got.Type != MessageTypeRiskAlert || got.Data.ID != "a1" {
		t.Errorf("unexpected frame %+v", got)
	}
}
