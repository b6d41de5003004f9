// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package database

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/homelab-ops/homestead/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSongRequestLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.NextSongRequest(ctx); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("NextSongRequest on empty queue = %v, want ErrQueueEmpty", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i, title := range []string{"first", "second", "third"} {
		req := &models.SongRequest{
			Title:       title,
			RequestedBy: "viewer",
			Platform:    models.PlatformTwitch,
			RequestedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.InsertSongRequest(ctx, req); err != nil {
			t.Fatalf("InsertSongRequest(%q): %v", title, err)
		}
	}

	queue, err := db.SongQueue(ctx)
	if err != nil {
		t.Fatalf("SongQueue: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	if queue[0].Title != "first" || queue[0].Position != 1 {
		t.Errorf("head = %q pos %d, want first pos 1", queue[0].Title, queue[0].Position)
	}

	playing, err := db.NextSongRequest(ctx)
	if err != nil {
		t.Fatalf("NextSongRequest: %v", err)
	}
	if playing.Title != "first" || playing.Status != models.SongStatusPlaying {
		t.Errorf("playing = %q/%s, want first/playing", playing.Title, playing.Status)
	}

	// Advancing again retires the playing song and promotes the next one.
	playing, err = db.NextSongRequest(ctx)
	if err != nil {
		t.Fatalf("NextSongRequest: %v", err)
	}
	if playing.Title != "second" {
		t.Errorf("playing = %q, want second", playing.Title)
	}

	skipped, err := db.SkipSongRequest(ctx, "")
	if err != nil {
		t.Fatalf("SkipSongRequest: %v", err)
	}
	if skipped.Title != "third" || skipped.Status != models.SongStatusSkipped {
		t.Errorf("skipped = %q/%s, want third/skipped", skipped.Title, skipped.Status)
	}

	queue, err = db.SongQueue(ctx)
	if err != nil {
		t.Fatalf("SongQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("queue length after drain = %d, want 0", len(queue))
	}

	history, err := db.SongHistory(ctx, 10, 0)
	if err != nil {
		t.Fatalf("SongHistory: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2 (played first + skipped third)", len(history))
	}
}

func TestCountPendingSongRequests(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "alice", "bob"} {
		req := &models.SongRequest{Title: "song", RequestedBy: user}
		if err := db.InsertSongRequest(ctx, req); err != nil {
			t.Fatalf("InsertSongRequest: %v", err)
		}
	}

	total, byAlice, err := db.CountPendingSongRequests(ctx, "alice")
	if err != nil {
		t.Fatalf("CountPendingSongRequests: %v", err)
	}
	if total != 3 || byAlice != 2 {
		t.Errorf("counts = %d/%d, want 3/2", total, byAlice)
	}
}

func TestClearSongQueue(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := db.InsertSongRequest(ctx, &models.SongRequest{Title: "song", RequestedBy: "x"}); err != nil {
			t.Fatalf("InsertSongRequest: %v", err)
		}
	}

	n, err := db.ClearSongQueue(ctx)
	if err != nil {
		t.Fatalf("ClearSongQueue: %v", err)
	}
	if n != 4 {
		t.Errorf("cleared = %d, want 4", n)
	}
}

func TestAnnouncementCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := &models.Announcement{Text: "follow on all platforms", Enabled: true}
	if err := db.InsertAnnouncement(ctx, a); err != nil {
		t.Fatalf("InsertAnnouncement: %v", err)
	}

	b := &models.Announcement{Text: "discord link in bio", Enabled: false}
	if err := db.InsertAnnouncement(ctx, b); err != nil {
		t.Fatalf("InsertAnnouncement: %v", err)
	}

	enabled, err := db.ListAnnouncements(ctx, true)
	if err != nil {
		t.Fatalf("ListAnnouncements: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != a.ID {
		t.Errorf("enabled announcements = %d, want only the enabled one", len(enabled))
	}

	a.Text = "updated"
	a.Enabled = false
	if err := db.UpdateAnnouncement(ctx, a); err != nil {
		t.Fatalf("UpdateAnnouncement: %v", err)
	}
	got, err := db.GetAnnouncement(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAnnouncement: %v", err)
	}
	if got.Text != "updated" || got.Enabled {
		t.Errorf("got %q enabled=%v, want updated/false", got.Text, got.Enabled)
	}

	if err := db.DeleteAnnouncement(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAnnouncement: %v", err)
	}
	if _, err := db.GetAnnouncement(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAnnouncement after delete = %v, want ErrNotFound", err)
	}
	if err := db.DeleteAnnouncement(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestRestreamTargetKeyPreservedOnUpdate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	target := &models.RestreamTarget{
		Platform:  models.PlatformTwitch,
		RTMPURL:   "rtmp://live.twitch.tv/app",
		StreamKey: "live_secret",
		Enabled:   true,
	}
	if err := db.UpsertRestreamTarget(ctx, target); err != nil {
		t.Fatalf("UpsertRestreamTarget: %v", err)
	}

	// Update without a key: the stored key must survive.
	update := &models.RestreamTarget{
		Platform: models.PlatformTwitch,
		RTMPURL:  "rtmp://live.twitch.tv/app2",
		Enabled:  false,
	}
	if err := db.UpsertRestreamTarget(ctx, update); err != nil {
		t.Fatalf("UpsertRestreamTarget update: %v", err)
	}

	got, err := db.GetRestreamTarget(ctx, models.PlatformTwitch)
	if err != nil {
		t.Fatalf("GetRestreamTarget: %v", err)
	}
	if got.StreamKey != "live_secret" {
		t.Errorf("stream key = %q, want preserved original", got.StreamKey)
	}
	if got.RTMPURL != "rtmp://live.twitch.tv/app2" || got.Enabled {
		t.Errorf("url/enabled not updated: %q %v", got.RTMPURL, got.Enabled)
	}
	if got.ID != target.ID {
		t.Errorf("update created a new row: %s != %s", got.ID, target.ID)
	}
}

func TestDNSRecordUpsertAndChecks(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rec := &models.DNSRecord{Name: "nas.home.example.com", Type: "A", Value: "192.168.1.10", TTL: 300}
	if err := db.UpsertDNSRecord(ctx, rec); err != nil {
		t.Fatalf("UpsertDNSRecord: %v", err)
	}

	rec2 := &models.DNSRecord{Name: "nas.home.example.com", Type: "A", Value: "192.168.1.20", TTL: 600}
	if err := db.UpsertDNSRecord(ctx, rec2); err != nil {
		t.Fatalf("UpsertDNSRecord update: %v", err)
	}

	records, err := db.ListDNSRecords(ctx)
	if err != nil {
		t.Fatalf("ListDNSRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (upsert, not insert)", len(records))
	}
	if records[0].Value != "192.168.1.20" || records[0].TTL != 600 {
		t.Errorf("record not updated: %+v", records[0])
	}

	for i := 0; i < 3; i++ {
		check := &models.DynDNSCheck{
			CheckedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
			PublicIP:  "203.0.113.7",
			Changed:   i == 2,
			Updated:   i == 2,
		}
		if err := db.InsertDynDNSCheck(ctx, check); err != nil {
			t.Fatalf("InsertDynDNSCheck: %v", err)
		}
	}

	checks, err := db.RecentDynDNSChecks(ctx, 2)
	if err != nil {
		t.Fatalf("RecentDynDNSChecks: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(checks))
	}
	if !checks[0].Changed {
		t.Error("newest check should be the changed one")
	}

	pruned, err := db.PruneDynDNSChecks(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneDynDNSChecks: %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}
}

func TestDeploymentLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	d := &models.Deployment{Name: "media-stack", Target: "media"}
	if err := db.InsertDeployment(ctx, d); err != nil {
		t.Fatalf("InsertDeployment: %v", err)
	}
	if d.Status != models.DeployStatusPending {
		t.Errorf("initial status = %q, want pending", d.Status)
	}

	step := &models.DeploymentStep{DeploymentID: d.ID, Stage: "validate", Status: models.DeployStatusRunning}
	if err := db.InsertDeploymentStep(ctx, step); err != nil {
		t.Fatalf("InsertDeploymentStep: %v", err)
	}

	now := time.Now().UTC()
	step.Status = models.DeployStatusSucceeded
	step.FinishedAt = &now
	if err := db.UpdateDeploymentStep(ctx, step); err != nil {
		t.Fatalf("UpdateDeploymentStep: %v", err)
	}

	d.Status = models.DeployStatusSucceeded
	d.CurrentStage = "verify"
	d.FinishedAt = &now
	if err := db.UpdateDeployment(ctx, d); err != nil {
		t.Fatalf("UpdateDeployment: %v", err)
	}

	got, err := db.GetDeployment(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDeployment: %v", err)
	}
	if got.Status != models.DeployStatusSucceeded || got.FinishedAt == nil {
		t.Errorf("deployment not updated: %+v", got)
	}

	steps, err := db.DeploymentSteps(ctx, d.ID)
	if err != nil {
		t.Fatalf("DeploymentSteps: %v", err)
	}
	if len(steps) != 1 || steps[0].Status != models.DeployStatusSucceeded {
		t.Errorf("steps = %+v, want one succeeded step", steps)
	}
}

// IDs go in as uuid strings and must come back byte for byte, because the
// API re-uses scanned IDs as bind parameters for follow-up writes.
func TestIDRoundTripsAsString(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	req := &models.SongRequest{Title: "song", RequestedBy: "viewer"}
	if err := db.InsertSongRequest(ctx, req); err != nil {
		t.Fatalf("InsertSongRequest: %v", err)
	}

	queue, err := db.SongQueue(ctx)
	if err != nil {
		t.Fatalf("SongQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
	if !utf8.ValidString(queue[0].ID) {
		t.Fatalf("scanned ID is not valid UTF-8: %q", queue[0].ID)
	}
	if queue[0].ID != req.ID {
		t.Fatalf("scanned ID = %q, want %q", queue[0].ID, req.ID)
	}

	// The scanned ID must work as a query parameter.
	skipped, err := db.SkipSongRequest(ctx, queue[0].ID)
	if err != nil {
		t.Fatalf("SkipSongRequest with scanned ID: %v", err)
	}
	if skipped.ID != req.ID {
		t.Errorf("skipped ID = %q, want %q", skipped.ID, req.ID)
	}
}

func TestClipCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c := &models.Clip{Title: "great play", URL: "https://clips.twitch.tv/abc", Game: "Factorio"}
	if err := db.InsertClip(ctx, c); err != nil {
		t.Fatalf("InsertClip: %v", err)
	}

	clips, err := db.ListClips(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(clips) != 1 || clips[0].Game != "Factorio" {
		t.Errorf("clips = %+v", clips)
	}

	c.Title = "even better play"
	c.Game = "Satisfactory"
	if err := db.UpdateClip(ctx, c); err != nil {
		t.Fatalf("UpdateClip: %v", err)
	}
	got, err := db.GetClip(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetClip: %v", err)
	}
	if got.Title != "even better play" || got.Game != "Satisfactory" {
		t.Errorf("clip not updated: %+v", got)
	}
	if err := db.UpdateClip(ctx, &models.Clip{ID: "missing", Title: "x", URL: "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateClip missing = %v, want ErrNotFound", err)
	}

	if err := db.DeleteClip(ctx, c.ID); err != nil {
		t.Fatalf("DeleteClip: %v", err)
	}
	if _, err := db.GetClip(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetClip after delete = %v, want ErrNotFound", err)
	}
}
