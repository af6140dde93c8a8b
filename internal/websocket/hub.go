// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package websocket

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sessionguard/internal/events"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types.
const (
	MessageTypeRiskAlert      = "risk_alert"
	MessageTypeSessionEvicted = "session_evicted"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the JSON frame exchanged with clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type delivery struct {
	userID  string
	message Message
}

// Hub routes messages to the clients of one user.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	deliveries chan delivery
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewHub creates a hub. allowedOrigins restricts the Origin header of
// upgrade requests; an empty list or "*" accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		deliveries: make(chan delivery, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades the request and registers a client for userID.
// The caller must have authenticated the user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := NewClient(h, conn, userID)
	h.Register <- client
	client.Start()
	return nil
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client. Lifecycle events are handled before deliveries.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.WSConnectionsActive.Inc()
	logging.Debug().Str("user_id", c.userID).Int("total_clients", h.GetClientCount()).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	removed := h.dropLocked(c)
	h.mu.Unlock()

	if removed {
		logging.Debug().Str("user_id", c.userID).Int("total_clients", h.GetClientCount()).Msg("websocket client disconnected")
	}
}

// dropLocked closes and forgets c. The caller holds h.mu.
func (h *Hub) dropLocked(c *Client) bool {
	set, ok := h.clients[c.userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.WSConnectionsActive.Dec()
	return true
}

// sortedLocked returns the clients of userID in ID order. The caller holds h.mu.
func (h *Hub) sortedLocked(userID string) []*Client {
	set := h.clients[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedLocked(d.userID) {
		select {
		case c.send <- d.message:
		default:
			// Slow consumer.
			h.dropLocked(c)
		}
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	n := 0
	users := make([]string, 0, len(h.clients))
	for u := range h.clients {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		for _, c := range h.sortedLocked(u) {
			h.dropLocked(c)
			n++
		}
	}
	h.mu.Unlock()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// SendToUser queues a message for every client of userID. It never
// blocks; when the queue is full the message is dropped.
func (h *Hub) SendToUser(userID, messageType string, data interface{}) {
	select {
	case h.deliveries <- delivery{userID: userID, message: Message{Type: messageType, Data: data}}:
	default:
		logging.Warn().Str("user_id", userID).Str("type", messageType).Msg("websocket delivery queue full, message dropped")
	}
}

// HandleAlert implements events.AlertHandler.
func (h *Hub) HandleAlert(_ context.Context, a *models.RiskAlert) error {
	h.SendToUser(a.UserID, MessageTypeRiskAlert, a)
	return nil
}

// HandleSessionEvicted implements events.EvictionHandler.
func (h *Hub) HandleSessionEvicted(_ context.Context, e *events.SessionEvicted) error {
	h.SendToUser(e.UserID, MessageTypeSessionEvicted, e)
	return nil
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// UserClientCount returns the number of connected clients of userID.
func (h *Hub) UserClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
