// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package streambot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/database"
	"github.com/homelab-ops/homestead/internal/models"
)

// memSongs is an in-memory SongStore.
type memSongs struct {
	queue   []*models.SongRequest
	history []*models.SongRequest
}

func (m *memSongs) InsertSongRequest(ctx context.Context, req *models.SongRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.SongStatusPending
	copied := *req
	m.queue = append(m.queue, &copied)
	return nil
}

func (m *memSongs) SongQueue(ctx context.Context) ([]*models.SongRequest, error) {
	out := make([]*models.SongRequest, len(m.queue))
	for i, req := range m.queue {
		copied := *req
		copied.Position = i + 1
		out[i] = &copied
	}
	return out, nil
}

func (m *memSongs) CountPendingSongRequests(ctx context.Context, user string) (int, int, error) {
	byUser := 0
	for _, req := range m.queue {
		if req.RequestedBy == user {
			byUser++
		}
	}
	return len(m.queue), byUser, nil
}

func (m *memSongs) NextSongRequest(ctx context.Context) (*models.SongRequest, error) {
	if len(m.queue) == 0 {
		return nil, database.ErrQueueEmpty
	}
	req := m.queue[0]
	m.queue = m.queue[1:]
	req.Status = models.SongStatusPlaying
	m.history = append(m.history, req)
	return req, nil
}

func (m *memSongs) SkipSongRequest(ctx context.Context, id string) (*models.SongRequest, error) {
	if len(m.queue) == 0 {
		return nil, database.ErrQueueEmpty
	}
	req := m.queue[0]
	m.queue = m.queue[1:]
	req.Status = models.SongStatusSkipped
	m.history = append(m.history, req)
	return req, nil
}

func (m *memSongs) ClearSongQueue(ctx context.Context) (int64, error) {
	n := int64(len(m.queue))
	m.queue = nil
	return n, nil
}

func (m *memSongs) SongHistory(ctx context.Context, limit, offset int) ([]*models.SongRequest, error) {
	return m.history, nil
}

type captureSink struct {
	alerts []*alerts.Alert
}

func (c *captureSink) Enqueue(a *alerts.Alert) error {
	c.alerts = append(c.alerts, a)
	return nil
}

func songConfig() *config.StreamBotConfig {
	return &config.StreamBotConfig{
		RequestsEnabled: true,
		MaxQueue:        3,
		PerUserLimit:    2,
	}
}

func TestRequestEnforcesPerUserLimit(t *testing.T) {
	s := NewSongs(songConfig(), &memSongs{}, nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.Request(ctx, &models.SongRequest{Title: "song", RequestedBy: "alice"}); err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
	}

	_, err := s.Request(ctx, &models.SongRequest{Title: "one more", RequestedBy: "alice"})
	if !errors.Is(err, ErrUserLimitReached) {
		t.Errorf("expected ErrUserLimitReached, got %v", err)
	}

	// Another viewer can still queue.
	if _, err := s.Request(ctx, &models.SongRequest{Title: "song", RequestedBy: "bob"}); err != nil {
		t.Errorf("bob's request failed: %v", err)
	}
}

func TestRequestEnforcesGlobalCap(t *testing.T) {
	s := NewSongs(songConfig(), &memSongs{}, nil, nil)
	ctx := context.Background()

	for i, user := range []string{"a", "b", "c"} {
		if _, err := s.Request(ctx, &models.SongRequest{Title: "song", RequestedBy: user}); err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
	}

	_, err := s.Request(ctx, &models.SongRequest{Title: "song", RequestedBy: "d"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestRequestDisabled(t *testing.T) {
	cfg := songConfig()
	cfg.RequestsEnabled = false
	s := NewSongs(cfg, &memSongs{}, nil, nil)

	_, err := s.Request(context.Background(), &models.SongRequest{Title: "song", RequestedBy: "x"})
	if !errors.Is(err, ErrRequestsDisabled) {
		t.Errorf("expected ErrRequestsDisabled, got %v", err)
	}
}

func TestRequestAssignsPositionAndAlert(t *testing.T) {
	sink := &captureSink{}
	s := NewSongs(songConfig(), &memSongs{}, nil, sink)
	ctx := context.Background()

	first, err := s.Request(ctx, &models.SongRequest{Title: "first", RequestedBy: "alice", Platform: models.PlatformTwitch})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	second, err := s.Request(ctx, &models.SongRequest{Title: "second", RequestedBy: "bob"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if first.Position != 1 || second.Position != 2 {
		t.Errorf("positions = %d, %d, want 1, 2", first.Position, second.Position)
	}
	if len(sink.alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(sink.alerts))
	}
	if sink.alerts[0].Kind != alerts.KindSongRequest || sink.alerts[0].Username != "alice" {
		t.Errorf("alert = %+v", sink.alerts[0])
	}
}

func TestRequestRejectsBlankFields(t *testing.T) {
	s := NewSongs(songConfig(), &memSongs{}, nil, nil)
	ctx := context.Background()

	if _, err := s.Request(ctx, &models.SongRequest{Title: "  ", RequestedBy: "x"}); err == nil {
		t.Error("expected error for blank title")
	}
	if _, err := s.Request(ctx, &models.SongRequest{Title: "song", RequestedBy: ""}); err == nil {
		t.Error("expected error for blank requester")
	}
}

func TestPlayEmptyQueue(t *testing.T) {
	s := NewSongs(songConfig(), &memSongs{}, nil, nil)
	_, err := s.Play(context.Background())
	if !IsEmptyQueue(err) {
		t.Errorf("expected empty-queue error, got %v", err)
	}
}

// memAnnouncements is an in-memory AnnouncementStore.
type memAnnouncements struct {
	entries []*models.Announcement
}

func (m *memAnnouncements) ListAnnouncements(ctx context.Context, enabledOnly bool) ([]*models.Announcement, error) {
	var out []*models.Announcement
	for _, a := range m.entries {
		if !enabledOnly || a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestAnnouncerRotates(t *testing.T) {
	store := &memAnnouncements{entries: []*models.Announcement{
		{ID: "1", Text: "one", Enabled: true},
		{ID: "2", Text: "two", Enabled: false},
		{ID: "3", Text: "three", Enabled: true},
	}}
	a := NewAnnouncer(&config.StreamBotConfig{AnnouncerEnabled: true}, store, nil)

	var got []string
	for i := 0; i < 4; i++ {
		ann, err := a.AnnounceNow(context.Background())
		if err != nil {
			t.Fatalf("AnnounceNow: %v", err)
		}
		got = append(got, ann.ID)
	}

	want := []string{"1", "3", "1", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rotation = %v, want %v", got, want)
			break
		}
	}
}

func TestAnnouncerNoEnabledEntries(t *testing.T) {
	a := NewAnnouncer(&config.StreamBotConfig{}, &memAnnouncements{}, nil)
	ann, err := a.AnnounceNow(context.Background())
	if err != nil {
		t.Fatalf("AnnounceNow: %v", err)
	}
	if ann != nil {
		t.Errorf("announcement = %+v, want nil", ann)
	}
}

func TestAnnouncerRunStopsOnCancel(t *testing.T) {
	a := NewAnnouncer(&config.StreamBotConfig{AnnounceInterval: time.Hour}, &memAnnouncements{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunWithContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("announcer did not stop")
	}
}
