// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package websocket implements the push channel behind the OBS overlay and
// the dashboard. Overlay pages connect as Browser Sources and receive alert,
// now-playing, and announcement messages; dashboard pages receive deployment
// progress and service status updates.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
)

// Message types pushed to connected clients.
const (
	MessageTypeAlert          = "alert"
	MessageTypeNowPlaying     = "now_playing"
	MessageTypeAnnouncement   = "announcement"
	MessageTypeDeployProgress = "deploy_progress"
	MessageTypeServiceStatus  = "service_status"
	MessageTypeDynDNSUpdate   = "dyndns_update"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the wire envelope for all WebSocket traffic.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// onRegister, when set, runs for each newly registered client. The
	// alert dispatcher uses it to replay recent alerts to reconnecting
	// overlays.
	onRegister   func(*Client)
	onRegisterMu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// SetOnRegister installs a callback invoked for every client that registers.
// Must be called before the hub starts serving.
func (h *Hub) SetOnRegister(fn func(*Client)) {
	h.onRegisterMu.Lock()
	h.onRegister = fn
	h.onRegisterMu.Unlock()
}

// RunWithContext runs the hub until the context is canceled, then closes all
// clients and returns ctx.Err(). Designed for suture supervision.
//
// Lifecycle events (register/unregister) are drained before broadcasts so
// client state is consistent when a message fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		// Drain pending lifecycle events first.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Str("component", "websocket").Int("total_clients", total).Msg("websocket client connected")

	h.onRegisterMu.RLock()
	fn := h.onRegister
	h.onRegisterMu.RUnlock()
	if fn != nil {
		fn(client)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Str("component", "websocket").Int("total_clients", total).Msg("websocket client disconnected")
}

// broadcastToClients fans a message out to all clients in client-ID order.
// Clients whose send buffer is full are dropped; a stalled overlay must not
// block the rest.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

// shutdown closes all connected clients.
func (h *Hub) shutdown() {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	logging.Info().Str("component", "websocket").Int("clients_closed", count).Msg("websocket hub stopped")
}

// Broadcast queues a message for all connected clients. Non-blocking: if the
// hub's broadcast buffer is full the message is dropped with a warning.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	message := Message{Type: messageType, Data: data}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("component", "websocket").Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// NowPlayingData is sent with now_playing messages.
type NowPlayingData struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requested_by,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// BroadcastNowPlaying notifies overlays of the currently playing song.
func (h *Hub) BroadcastNowPlaying(title, artist, requestedBy string) {
	h.Broadcast(MessageTypeNowPlaying, NowPlayingData{
		Title:       title,
		Artist:      artist,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// DeployProgressData is sent with deploy_progress messages.
type DeployProgressData struct {
	DeploymentID string `json:"deployment_id"`
	Stage        string `json:"stage"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BroadcastDeployProgress notifies dashboard clients of deployment progress.
func (h *Hub) BroadcastDeployProgress(data *DeployProgressData) {
	h.Broadcast(MessageTypeDeployProgress, data)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
