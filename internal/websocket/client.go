// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package websocket

import (
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/homelab-ops/homestead/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Per-client send buffer.
	sendBufferSize = 64
)

// clientIDCounter assigns a stable ordering to clients for deterministic
// broadcast fan-out.
var clientIDCounter atomic.Uint64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Overlays load from OBS Browser Sources which send no Origin
		// header, and the dashboard may be served from another host on
		// the LAN. Auth happens before the upgrade.
		return true
	},
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewTestClient creates a client with no underlying connection. Tests in
// other packages use it to observe hub traffic through Messages.
func NewTestClient(buffer int) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message, buffer),
	}
}

// Messages exposes the client's outbound queue for tests.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// Send queues a message for this client only. Returns false if the client's
// buffer is full or the client is closing.
func (c *Client) Send(message Message) bool {
	defer func() {
		// send may be closed by the hub concurrently.
		_ = recover()
	}()
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// readPump pumps messages from the websocket connection to the hub.
// The only client-to-server traffic is the ping keepalive.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Debug().Str("component", "websocket").Err(err).Msg("websocket read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == MessageTypePing {
			c.Send(Message{Type: MessageTypePong})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(message)
			if err != nil {
				logging.Error().Str("component", "websocket").Err(err).Str("message_type", message.Type).Msg("failed to marshal websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and registers
// the client with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Str("component", "websocket").Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBufferSize),
	}
	client.hub.Register <- client

	go client.writePump()
	go client.readPump()
}
