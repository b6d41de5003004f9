// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package streambot implements the chat-facing stream features: the viewer
// song request queue and the rotating announcement poster.
package streambot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/database"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/websocket"
)

// ErrRequestsDisabled is returned when song requests are turned off.
var ErrRequestsDisabled = errors.New("song requests are disabled")

// ErrQueueFull is returned when the global queue cap is reached.
var ErrQueueFull = errors.New("song queue is full")

// ErrUserLimitReached is returned when a viewer hits their per-user cap.
var ErrUserLimitReached = errors.New("per-user request limit reached")

// SongStore is the slice of the database the song service needs.
type SongStore interface {
	InsertSongRequest(ctx context.Context, req *models.SongRequest) error
	SongQueue(ctx context.Context) ([]*models.SongRequest, error)
	CountPendingSongRequests(ctx context.Context, user string) (total, byUser int, err error)
	NextSongRequest(ctx context.Context) (*models.SongRequest, error)
	SkipSongRequest(ctx context.Context, id string) (*models.SongRequest, error)
	ClearSongQueue(ctx context.Context) (int64, error)
	SongHistory(ctx context.Context, limit, offset int) ([]*models.SongRequest, error)
}

// AlertSink receives a song request alert for the overlay. Usually the
// alert dispatcher.
type AlertSink interface {
	Enqueue(alert *alerts.Alert) error
}

// Songs manages the viewer song request queue.
type Songs struct {
	cfg    *config.StreamBotConfig
	store  SongStore
	hub    *websocket.Hub
	sink   AlertSink
	logger zerolog.Logger
}

// NewSongs creates the song request service. hub and sink may be nil.
func NewSongs(cfg *config.StreamBotConfig, store SongStore, hub *websocket.Hub, sink AlertSink) *Songs {
	return &Songs{
		cfg:    cfg,
		store:  store,
		hub:    hub,
		sink:   sink,
		logger: logging.Logger().With().Str("component", "songs").Logger(),
	}
}

// Request adds a song to the queue, enforcing the global and per-user caps.
func (s *Songs) Request(ctx context.Context, req *models.SongRequest) (*models.SongRequest, error) {
	if !s.cfg.RequestsEnabled {
		return nil, ErrRequestsDisabled
	}
	req.Title = strings.TrimSpace(req.Title)
	req.RequestedBy = strings.TrimSpace(req.RequestedBy)
	if req.Title == "" {
		return nil, errors.New("song title is required")
	}
	if req.RequestedBy == "" {
		return nil, errors.New("requester is required")
	}

	total, byUser, err := s.store.CountPendingSongRequests(ctx, req.RequestedBy)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxQueue > 0 && total >= s.cfg.MaxQueue {
		metrics.SongRequestsTotal.WithLabelValues("rejected_full").Inc()
		return nil, fmt.Errorf("%w (%d queued)", ErrQueueFull, total)
	}
	if s.cfg.PerUserLimit > 0 && byUser >= s.cfg.PerUserLimit {
		metrics.SongRequestsTotal.WithLabelValues("rejected_user_limit").Inc()
		return nil, fmt.Errorf("%w (%d queued for %s)", ErrUserLimitReached, byUser, req.RequestedBy)
	}

	if err := s.store.InsertSongRequest(ctx, req); err != nil {
		return nil, err
	}
	req.Position = total + 1
	metrics.SongRequestsTotal.WithLabelValues("queued").Inc()

	s.logger.Info().
		Str("title", req.Title).
		Str("requested_by", req.RequestedBy).
		Int("position", req.Position).
		Msg("song requested")

	if s.sink != nil {
		alert := alerts.New(alerts.KindSongRequest, req.RequestedBy, req.Platform, req.Title, 0)
		if err := s.sink.Enqueue(alert); err != nil {
			s.logger.Warn().Err(err).Msg("failed to queue song request alert")
		}
	}
	return req, nil
}

// Queue returns the pending queue with positions.
func (s *Songs) Queue(ctx context.Context) ([]*models.SongRequest, error) {
	return s.store.SongQueue(ctx)
}

// Play advances to the next request and announces it as now playing.
func (s *Songs) Play(ctx context.Context) (*models.SongRequest, error) {
	req, err := s.store.NextSongRequest(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("title", req.Title).Msg("song playing")
	if s.hub != nil {
		s.hub.BroadcastNowPlaying(req.Title, req.Artist, req.RequestedBy)
	}
	return req, nil
}

// Skip drops a request without playing it. An empty id skips the head of
// the queue.
func (s *Songs) Skip(ctx context.Context, id string) (*models.SongRequest, error) {
	req, err := s.store.SkipSongRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("title", req.Title).Msg("song skipped")
	return req, nil
}

// Clear empties the pending queue.
func (s *Songs) Clear(ctx context.Context) (int64, error) {
	n, err := s.store.ClearSongQueue(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("cleared", n).Msg("song queue cleared")
	return n, nil
}

// History returns played and skipped requests, newest first.
func (s *Songs) History(ctx context.Context, limit, offset int) ([]*models.SongRequest, error) {
	return s.store.SongHistory(ctx, limit, offset)
}

// IsEmptyQueue reports whether err means the queue had nothing to play.
func IsEmptyQueue(err error) bool {
	return errors.Is(err, database.ErrQueueEmpty)
}
