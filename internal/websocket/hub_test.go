// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package websocket

import (
	"context"
	"testing"
	"time"
)

func newTestClient(id uint64, buffer int) *Client {
	return &Client{
		id:   id,
		send: make(chan Message, buffer),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not shut down")
		}
	})
	return hub, cancel
}

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub, _ := startHub(t)

	client := newTestClient(1, 4)
	hub.Register <- client

	waitForClients(t, hub, 1)

	hub.Broadcast(MessageTypeAnnouncement, map[string]string{"text": "going live soon"})

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeAnnouncement {
			t.Errorf("message type = %q, want %q", msg.Type, MessageTypeAnnouncement)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive broadcast")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	client := newTestClient(1, 4)
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := newTestClient(1, 1)
	fast := newTestClient(2, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitForClients(t, hub, 2)

	// Fill the slow client's buffer, then broadcast again: the slow client
	// must be dropped and the fast client must still receive everything.
	hub.Broadcast(MessageTypeServiceStatus, "first")
	hub.Broadcast(MessageTypeServiceStatus, "second")

	waitForClients(t, hub, 1)

	received := 0
	timeout := time.After(2 * time.Second)
	for received < 2 {
		select {
		case <-fast.send:
			received++
		case <-timeout:
			t.Fatalf("fast client received %d messages, want 2", received)
		}
	}
}

func TestHubOnRegisterCallback(t *testing.T) {
	hub := NewHub()
	called := make(chan *Client, 1)
	hub.SetOnRegister(func(c *Client) {
		called <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	client := newTestClient(1, 4)
	hub.Register <- client

	select {
	case got := <-called:
		if got != client {
			t.Error("onRegister called with wrong client")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onRegister not called")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()

	client := newTestClient(1, 4)
	hub.Register <- client
	waitForClients(t, hub, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after cancel")
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel closed on shutdown")
		}
	default:
		t.Error("send channel still open after shutdown")
	}
}

func TestClientSendNonBlocking(t *testing.T) {
	client := newTestClient(1, 1)
	if !client.Send(Message{Type: MessageTypeAlert}) {
		t.Error("first send should succeed")
	}
	if client.Send(Message{Type: MessageTypeAlert}) {
		t.Error("send to full buffer should report false")
	}

	close(client.send)
	if client.Send(Message{Type: MessageTypeAlert}) {
		t.Error("send to closed channel should report false")
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}
