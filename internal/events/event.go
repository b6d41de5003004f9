// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package events provides the internal event bus. Domain events flow through
// Watermill, backed by NATS JetStream when enabled and by an in-process
// channel pub/sub otherwise. The standalone alert ingest path rides the bus so
// alerts survive a restart when JetStream is on.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
)

// Topics carried on the bus. NATS subjects map one-to-one.
const (
	TopicAlerts      = "homestead.alerts"
	TopicDeployments = "homestead.deployments"
	TopicDynDNS      = "homestead.dyndns"
)

// Event is the envelope for every message on the bus.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent wraps a payload in an envelope with a fresh ID and UTC timestamp.
func NewEvent(eventType string, payload interface{}) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Marshal converts the event into a Watermill message. The message UUID
// matches the event ID so JetStream deduplication keys on it.
func (e *Event) Marshal() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	msg := message.NewMessage(e.ID, data)
	msg.Metadata.Set("event_type", e.Type)
	return msg, nil
}

// UnmarshalEvent decodes a Watermill message back into an envelope. The
// payload comes back as the generic JSON shape; consumers re-decode it with
// DecodePayload.
func UnmarshalEvent(msg *message.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event %s: %w", msg.UUID, err)
	}
	return &e, nil
}

// DecodePayload re-decodes the envelope payload into a concrete type.
func DecodePayload(e *Event, out interface{}) error {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
