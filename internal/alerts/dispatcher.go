// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
	"github.com/homelab-ops/homestead/internal/websocket"
)

// payload is the wire shape of an alert message. Replay is set for alerts
// re-sent to a reconnecting overlay so it can skip sound effects.
type payload struct {
	*Alert
	Replay bool `json:"replay,omitempty"`
}

// Dispatcher serializes alerts onto the overlay. Only one alert is shown at
// a time; the next alert waits until the display duration of the current one
// has elapsed.
type Dispatcher struct {
	hub             *websocket.Hub
	store           *Store
	queue           chan *Alert
	displayDuration time.Duration
	replayCount     int
	logger          zerolog.Logger
}

// NewDispatcher creates a dispatcher. store may be nil, which disables
// persistence and replay.
func NewDispatcher(hub *websocket.Hub, store *Store, displayDuration time.Duration, queueSize, replayCount int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 32
	}
	if displayDuration <= 0 {
		displayDuration = 8 * time.Second
	}
	return &Dispatcher{
		hub:             hub,
		store:           store,
		queue:           make(chan *Alert, queueSize),
		displayDuration: displayDuration,
		replayCount:     replayCount,
		logger:          logging.Logger().With().Str("component", "alert-dispatcher").Logger(),
	}
}

// Enqueue validates and queues an alert. When the queue is full the oldest
// pending alert is dropped so fresh events keep flowing during raids.
func (d *Dispatcher) Enqueue(alert *Alert) error {
	if !KnownKind(alert.Kind) {
		return fmt.Errorf("unknown alert kind %q", alert.Kind)
	}

	for {
		select {
		case d.queue <- alert:
			return nil
		default:
		}
		select {
		case dropped := <-d.queue:
			d.logger.Warn().
				Str("kind", dropped.Kind).
				Str("alert_id", dropped.ID).
				Msg("alert queue full, dropping oldest alert")
		default:
		}
	}
}

// Pending returns the number of queued alerts.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// RunWithContext drains the queue until the context is canceled. Each alert
// is persisted, broadcast, and then held for the display duration before the
// next one goes out. Designed for suture supervision.
func (d *Dispatcher) RunWithContext(ctx context.Context) error {
	d.logger.Info().
		Dur("display_duration", d.displayDuration).
		Int("queue_size", cap(d.queue)).
		Msg("alert dispatcher started")

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("alert dispatcher stopped")
			return ctx.Err()
		case alert := <-d.queue:
			if d.store != nil {
				if err := d.store.Save(alert); err != nil {
					d.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to persist alert")
				}
			}

			d.hub.Broadcast(websocket.MessageTypeAlert, payload{Alert: alert})
			metrics.AlertsDispatched.WithLabelValues(alert.Kind).Inc()
			d.logger.Debug().
				Str("kind", alert.Kind).
				Str("username", alert.Username).
				Msg("alert dispatched")

			timer.Reset(d.displayDuration)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				d.logger.Info().Msg("alert dispatcher stopped")
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// ReplayTo sends the most recent alerts to a single client, oldest first,
// marked as replays. Wired as the hub's on-register hook.
func (d *Dispatcher) ReplayTo(client *websocket.Client) {
	if d.store == nil || d.replayCount <= 0 {
		return
	}

	recent, err := d.store.Recent(d.replayCount)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to load alerts for replay")
		return
	}

	for i := len(recent) - 1; i >= 0; i-- {
		client.Send(websocket.Message{
			Type: websocket.MessageTypeAlert,
			Data: payload{Alert: recent[i], Replay: true},
		})
	}
}
