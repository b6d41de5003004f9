// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/logging"
)

// AlertSink receives alerts consumed off the bus. *alerts.Dispatcher
// satisfies it.
type AlertSink interface {
	Enqueue(alert *alerts.Alert) error
}

// AlertPublisher is the producing side of the alert topic. Services that
// raise alerts publish through it; the relay delivers to the dispatcher.
type AlertPublisher struct {
	bus *Bus
}

// NewAlertPublisher creates an AlertSink that publishes to the bus.
func NewAlertPublisher(bus *Bus) *AlertPublisher {
	return &AlertPublisher{bus: bus}
}

// Enqueue publishes the alert to the alert topic.
func (p *AlertPublisher) Enqueue(alert *alerts.Alert) error {
	return p.bus.Publish(context.Background(), TopicAlerts, NewEvent("alert", alert))
}

// Relay consumes the alert topic and hands each alert to the dispatcher.
// Webhook ingest publishes to the bus instead of calling the dispatcher
// directly, so with JetStream enabled alerts raised while the process was
// down are delivered on restart.
type Relay struct {
	bus    *Bus
	sink   AlertSink
	logger zerolog.Logger
}

// NewRelay creates the alert relay service.
func NewRelay(bus *Bus, sink AlertSink) *Relay {
	return &Relay{
		bus:    bus,
		sink:   sink,
		logger: logging.Logger().With().Str("component", "alert-relay").Logger(),
	}
}

// RunWithContext consumes alerts until the context is canceled. Designed for
// suture supervision.
func (r *Relay) RunWithContext(ctx context.Context) error {
	messages, err := r.bus.Subscribe(ctx, TopicAlerts)
	if err != nil {
		return err
	}

	r.logger.Info().Msg("alert relay started")

	for msg := range messages {
		event, err := UnmarshalEvent(msg)
		if err != nil {
			// A message that cannot decode never will; ack it away.
			r.logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("dropping undecodable alert event")
			msg.Ack()
			continue
		}

		var alert alerts.Alert
		if err := DecodePayload(event, &alert); err != nil {
			r.logger.Warn().Err(err).Str("event_id", event.ID).Msg("dropping malformed alert payload")
			msg.Ack()
			continue
		}

		if err := r.sink.Enqueue(&alert); err != nil {
			r.logger.Warn().Err(err).Str("kind", alert.Kind).Msg("alert rejected by dispatcher")
		}
		msg.Ack()
	}

	return ctx.Err()
}
