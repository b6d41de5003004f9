// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package streambot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/websocket"
)

// AnnouncementStore is the slice of the database the announcer needs.
type AnnouncementStore interface {
	ListAnnouncements(ctx context.Context, enabledOnly bool) ([]*models.Announcement, error)
}

// Announcer rotates through the enabled announcements on a fixed interval,
// pushing each one to the overlay and dashboard. The rotation position
// survives announcement edits: it advances by index and wraps, so adding or
// removing entries never stalls it.
type Announcer struct {
	cfg    *config.StreamBotConfig
	store  AnnouncementStore
	hub    *websocket.Hub
	logger zerolog.Logger

	mu   sync.Mutex
	next int
}

// NewAnnouncer creates the announcement rotation service.
func NewAnnouncer(cfg *config.StreamBotConfig, store AnnouncementStore, hub *websocket.Hub) *Announcer {
	return &Announcer{
		cfg:    cfg,
		store:  store,
		hub:    hub,
		logger: logging.Logger().With().Str("component", "announcer").Logger(),
	}
}

// RunWithContext rotates until the context is canceled. Designed for suture
// supervision.
func (a *Announcer) RunWithContext(ctx context.Context) error {
	interval := a.cfg.AnnounceInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	a.logger.Info().Dur("interval", interval).Msg("announcer started")

	if a.cfg.AnnounceOnStartup {
		a.announceNext(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("announcer stopped")
			return ctx.Err()
		case <-ticker.C:
			a.announceNext(ctx)
		}
	}
}

// AnnounceNow pushes the next announcement immediately, outside the rotation
// schedule. Returns the announcement sent, or nil when none are enabled.
func (a *Announcer) AnnounceNow(ctx context.Context) (*models.Announcement, error) {
	return a.announceNext(ctx)
}

func (a *Announcer) announceNext(ctx context.Context) (*models.Announcement, error) {
	enabled, err := a.store.ListAnnouncements(ctx, true)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load announcements")
		return nil, err
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	a.mu.Lock()
	idx := a.next % len(enabled)
	a.next = idx + 1
	a.mu.Unlock()

	announcement := enabled[idx]
	if a.hub != nil {
		a.hub.Broadcast(websocket.MessageTypeAnnouncement, announcement)
	}
	a.logger.Debug().Str("announcement_id", announcement.ID).Msg("announcement posted")
	return announcement, nil
}
