// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/config"
)

func newLocalBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(&config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return bus
}

func TestBusPublishSubscribeRoundTrip(t *testing.T) {
	bus := newLocalBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, TopicDynDNS)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	event := NewEvent("dyndns_update", map[string]string{
		"record":  "home.example.net",
		"current": "203.0.113.7",
	})
	if err := bus.Publish(ctx, TopicDynDNS, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-messages:
		got, err := UnmarshalEvent(msg)
		if err != nil {
			t.Fatalf("UnmarshalEvent: %v", err)
		}
		if got.ID != event.ID {
			t.Errorf("event ID = %q, want %q", got.ID, event.ID)
		}
		if got.Type != "dyndns_update" {
			t.Errorf("event type = %q, want dyndns_update", got.Type)
		}
		var payload map[string]string
		if err := DecodePayload(got, &payload); err != nil {
			t.Fatalf("DecodePayload: %v", err)
		}
		if payload["current"] != "203.0.113.7" {
			t.Errorf("payload current = %q", payload["current"])
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestBusPublishAfterClose(t *testing.T) {
	bus, err := NewBus(&config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Publish(context.Background(), TopicAlerts, NewEvent("x", nil)); err == nil {
		t.Fatal("expected error publishing on closed bus")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []*alerts.Alert
}

func (s *recordingSink) Enqueue(a *alerts.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func TestRelayDeliversAlertsToSink(t *testing.T) {
	bus := newLocalBus(t)
	sink := &recordingSink{}
	relay := NewRelay(bus, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := relay.RunWithContext(ctx); err != nil && err != context.Canceled {
			t.Errorf("RunWithContext: %v", err)
		}
	}()

	// Give the relay a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	alert := alerts.New(alerts.KindFollow, "viewer42", "twitch", "", 0)
	if err := bus.Publish(ctx, TopicAlerts, NewEvent("alert", alert)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatalf("sink received %d alerts, want 1", sink.count())
	}

	sink.mu.Lock()
	got := sink.alerts[0]
	sink.mu.Unlock()
	if got.Kind != alerts.KindFollow || got.Username != "viewer42" {
		t.Errorf("relayed alert = %+v", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop on cancel")
	}
}

func TestRelayAcksUndecodableMessage(t *testing.T) {
	bus := newLocalBus(t)
	sink := &recordingSink{}
	relay := NewRelay(bus, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = relay.RunWithContext(ctx)
	}()
	time.Sleep(50 * time.Millisecond)

	// A payload that cannot decode into an alert.
	event := NewEvent("alert", "not an alert object")
	if err := bus.Publish(ctx, TopicAlerts, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Then a valid alert; it must still arrive after the bad one.
	alert := alerts.New(alerts.KindRaid, "raider", "twitch", "", 0)
	if err := bus.Publish(ctx, TopicAlerts, NewEvent("alert", alert)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatalf("sink received %d alerts, want 1", sink.count())
	}
}
