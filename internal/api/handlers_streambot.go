// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homelab-ops/homestead/internal/database"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/streambot"
)

// redactedKey replaces stored stream keys in API responses.
const redactedKey = "********"

// --- song requests ---

// SongQueue returns the pending queue in play order.
func (h *Handlers) SongQueue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	queue, err := h.songs.Queue(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(queue)
}

// SongRequestCreate adds a viewer request to the queue.
func (h *Handlers) SongRequestCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req songRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.songs.Request(r.Context(), &models.SongRequest{
		Title:       req.Title,
		Artist:      req.Artist,
		URL:         req.URL,
		RequestedBy: req.RequestedBy,
		Platform:    req.Platform,
	})
	if err != nil {
		switch {
		case errors.Is(err, streambot.ErrRequestsDisabled):
			rw.ServiceUnavailable("song requests are disabled")
		case errors.Is(err, streambot.ErrQueueFull):
			rw.Conflict("the song queue is full")
		case errors.Is(err, streambot.ErrUserLimitReached):
			rw.Conflict("per-user request limit reached")
		default:
			rw.DatabaseError(err)
		}
		return
	}
	rw.Created(created)
}

// SongPlay promotes the next pending request to playing and pushes
// now-playing to the overlay.
func (h *Handlers) SongPlay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	next, err := h.songs.Play(r.Context())
	if err != nil {
		if streambot.IsEmptyQueue(err) {
			rw.NotFound("the song queue is empty")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(next)
}

// SongSkip skips one request, by ID or the oldest pending.
func (h *Handlers) SongSkip(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	// An empty body skips the oldest pending request.
	var req skipRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	skipped, err := h.songs.Skip(r.Context(), req.ID)
	if err != nil {
		if streambot.IsEmptyQueue(err) || errors.Is(err, database.ErrNotFound) {
			rw.NotFound("no matching pending request")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(skipped)
}

// SongClear empties the pending queue.
func (h *Handlers) SongClear(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cleared, err := h.songs.Clear(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]int64{"cleared": cleared})
}

// SongHistory returns played and skipped requests, newest first.
func (h *Handlers) SongHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, offset := h.pagination(r)
	history, err := h.songs.History(r.Context(), limit, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(history)
}

// --- announcements ---

// AnnouncementsList returns all announcements, or only enabled ones with
// ?enabled=true.
func (h *Handlers) AnnouncementsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	enabledOnly := r.URL.Query().Get("enabled") == "true"
	list, err := h.db.ListAnnouncements(r.Context(), enabledOnly)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(list)
}

// AnnouncementCreate adds a rotation entry.
func (h *Handlers) AnnouncementCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a := &models.Announcement{Text: req.Text, Enabled: true}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}
	if err := h.db.InsertAnnouncement(r.Context(), a); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(a)
}

// AnnouncementUpdate edits text or enabled state.
func (h *Handlers) AnnouncementUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := h.db.GetAnnouncement(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("announcement not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	existing.Text = req.Text
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	if err := h.db.UpdateAnnouncement(r.Context(), existing); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(existing)
}

// AnnouncementDelete removes a rotation entry.
func (h *Handlers) AnnouncementDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteAnnouncement(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("announcement not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

// AnnouncementTrigger fires the next rotation entry immediately.
func (h *Handlers) AnnouncementTrigger(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	a, err := h.announcer.AnnounceNow(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if a == nil {
		rw.NotFound("no enabled announcements")
		return
	}
	rw.Success(a)
}

// --- clips ---

// ClipsList returns saved clips, newest first.
func (h *Handlers) ClipsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, offset := h.pagination(r)
	clips, err := h.db.ListClips(r.Context(), limit, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(clips)
}

// ClipCreate saves a stream highlight.
func (h *Handlers) ClipCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req clipRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := &models.Clip{
		Title:     req.Title,
		URL:       req.URL,
		Game:      req.Game,
		Platform:  req.Platform,
		CreatedBy: req.CreatedBy,
	}
	if err := h.db.InsertClip(r.Context(), c); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(c)
}

// ClipUpdate rewrites a saved clip.
func (h *Handlers) ClipUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	var req clipRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.db.GetClip(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("clip not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	c.Title = req.Title
	c.URL = req.URL
	c.Game = req.Game
	c.Platform = req.Platform
	c.CreatedBy = req.CreatedBy
	if err := h.db.UpdateClip(r.Context(), c); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(c)
}

// ClipDelete removes a clip record.
func (h *Handlers) ClipDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteClip(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("clip not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

// --- restream targets ---

// RestreamTargetsList returns all RTMP outputs with their keys redacted.
func (h *Handlers) RestreamTargetsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	targets, err := h.db.ListRestreamTargets(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	for _, t := range targets {
		redactTarget(t)
	}
	rw.Success(targets)
}

// RestreamTargetUpsert creates or updates the target for a platform. An
// empty stream key on update keeps the stored key.
func (h *Handlers) RestreamTargetUpsert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req restreamTargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t := &models.RestreamTarget{
		Platform:  req.Platform,
		RTMPURL:   req.RTMPURL,
		StreamKey: req.StreamKey,
		Enabled:   true,
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	if err := h.db.UpsertRestreamTarget(r.Context(), t); err != nil {
		rw.DatabaseError(err)
		return
	}
	redactTarget(t)
	rw.Success(t)
}

// RestreamTargetDelete removes the target for a platform.
func (h *Handlers) RestreamTargetDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	platform := chi.URLParam(r, "platform")

	if err := h.db.DeleteRestreamTarget(r.Context(), platform); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("restream target not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

func redactTarget(t *models.RestreamTarget) {
	if t.StreamKey != "" {
		t.StreamKey = redactedKey
	}
}
