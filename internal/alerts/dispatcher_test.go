// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/homelab-ops/homestead/internal/websocket"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestStoreSaveAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		alert := New(KindFollow, "viewer", "twitch", "", 0)
		alert.Timestamp = base.Add(time.Duration(i) * time.Second)
		alert.Message = alert.Timestamp.Format(time.RFC3339Nano)
		if err := store.Save(alert); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	recent, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.After(recent[i-1].Timestamp) {
			t.Error("expected newest-first ordering")
		}
	}
}

func TestStoreRecentZeroLimit(t *testing.T) {
	store := openTestStore(t)
	recent, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent != nil {
		t.Errorf("expected nil for zero limit, got %d alerts", len(recent))
	}
}

func TestEnqueueRejectsUnknownKind(t *testing.T) {
	d := NewDispatcher(websocket.NewHub(), nil, time.Second, 4, 0)
	alert := New("confetti", "someone", "", "", 0)
	if err := d.Enqueue(alert); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	d := NewDispatcher(websocket.NewHub(), nil, time.Second, 2, 0)

	first := New(KindFollow, "first", "twitch", "", 0)
	second := New(KindFollow, "second", "twitch", "", 0)
	third := New(KindFollow, "third", "twitch", "", 0)

	for _, a := range []*Alert{first, second, third} {
		if err := d.Enqueue(a); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	if d.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", d.Pending())
	}
	got := <-d.queue
	if got.Username != "second" {
		t.Errorf("head of queue = %q, want %q (oldest dropped)", got.Username, "second")
	}
}

func TestDispatcherSequencesAlerts(t *testing.T) {
	hub := websocket.NewHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() { _ = hub.RunWithContext(hubCtx) }()

	store := openTestStore(t)
	display := 50 * time.Millisecond
	d := NewDispatcher(hub, store, display, 8, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.RunWithContext(ctx) }()

	client := registerTestClient(t, hub)

	if err := d.Enqueue(New(KindRaid, "raider", "twitch", "", 42)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := d.Enqueue(New(KindCheer, "cheerer", "twitch", "", 100)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	firstAt := recvAlert(t, client)
	secondAt := recvAlert(t, client)
	if gap := secondAt.Sub(firstAt); gap < display {
		t.Errorf("alerts arrived %v apart, want at least %v", gap, display)
	}

	// Both alerts were persisted for replay.
	waitFor(t, func() bool {
		recent, err := store.Recent(10)
		return err == nil && len(recent) == 2
	})
}

func TestReplayToSendsOldestFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().UTC()
	names := []string{"one", "two", "three"}
	for i, name := range names {
		alert := New(KindFollow, name, "twitch", "", 0)
		alert.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := store.Save(alert); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	hub := websocket.NewHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() { _ = hub.RunWithContext(hubCtx) }()

	d := NewDispatcher(hub, store, time.Second, 4, 2)
	hub.SetOnRegister(d.ReplayTo)

	client := registerTestClient(t, hub)

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-client.Messages():
			p, ok := msg.Data.(payload)
			if !ok {
				t.Fatalf("unexpected data type %T", msg.Data)
			}
			if !p.Replay {
				t.Error("replayed alert missing replay flag")
			}
			got = append(got, p.Username)
		case <-timeout:
			t.Fatalf("received %d replayed alerts, want 2", len(got))
		}
	}
	if got[0] != "two" || got[1] != "three" {
		t.Errorf("replay order = %v, want [two three]", got)
	}
}

func recvAlert(t *testing.T, client *websocket.Client) time.Time {
	t.Helper()
	select {
	case msg := <-client.Messages():
		if msg.Type != websocket.MessageTypeAlert {
			t.Fatalf("message type = %q, want alert", msg.Type)
		}
		return time.Now()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert")
		return time.Time{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func registerTestClient(t *testing.T, hub *websocket.Hub) *websocket.Client {
	t.Helper()
	client := websocket.NewTestClient(16)
	hub.Register <- client
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() >= 1 {
			return client
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client did not register")
	return nil
}
