// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homelab-ops/homestead/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrQueueEmpty is returned when the song queue has no pending requests.
var ErrQueueEmpty = errors.New("song queue is empty")

// InsertSongRequest persists a new song request in pending state and returns
// it with ID and timestamp filled in.
func (db *DB) InsertSongRequest(ctx context.Context, req *models.SongRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	req.Status = models.SongStatusPending

	stmt, err := db.prepareCached(ctx, `
		INSERT INTO song_requests (id, title, artist, url, requested_by, platform, status, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, req.ID, req.Title, req.Artist, req.URL,
		req.RequestedBy, req.Platform, req.Status, req.RequestedAt)
	if err != nil {
		return fmt.Errorf("insert song request: %w", err)
	}
	return nil
}

// SongQueue returns pending requests in arrival order with 1-based queue
// positions.
func (db *DB) SongQueue(ctx context.Context) ([]*models.SongRequest, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, artist, url, requested_by, platform, status, requested_at, played_at
		FROM song_requests
		WHERE status = ?
		ORDER BY requested_at, id`, models.SongStatusPending)
	if err != nil {
		return nil, fmt.Errorf("query song queue: %w", err)
	}
	defer closeQuietly(rows)

	requests, err := scanSongRequests(rows)
	if err != nil {
		return nil, err
	}
	for i, req := range requests {
		req.Position = i + 1
	}
	return requests, nil
}

// CountPendingSongRequests returns the number of queued requests, and the
// number queued by the given user when user is non-empty.
func (db *DB) CountPendingSongRequests(ctx context.Context, user string) (total, byUser int, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE requested_by = ?)
		FROM song_requests
		WHERE status = ?`, user, models.SongStatusPending).Scan(&total, &byUser)
	if err != nil {
		return 0, 0, fmt.Errorf("count song requests: %w", err)
	}
	return total, byUser, nil
}

// NextSongRequest promotes the oldest pending request to playing, demoting
// any currently playing request to played. Returns ErrQueueEmpty when
// nothing is queued.
func (db *DB) NextSongRequest(ctx context.Context) (*models.SongRequest, error) {
	now := time.Now().UTC()
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE song_requests SET status = ?, played_at = COALESCE(played_at, ?)
		WHERE status = ?`, models.SongStatusPlayed, now, models.SongStatusPlaying); err != nil {
		return nil, fmt.Errorf("finish current song: %w", err)
	}

	req, err := db.oldestPending(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := db.conn.ExecContext(ctx, `
		UPDATE song_requests SET status = ?, played_at = ?
		WHERE id = ?`, models.SongStatusPlaying, now, req.ID); err != nil {
		return nil, fmt.Errorf("mark song playing: %w", err)
	}
	req.Status = models.SongStatusPlaying
	req.PlayedAt = &now
	return req, nil
}

// SkipSongRequest marks the oldest pending request (or the given ID) as
// skipped and returns it.
func (db *DB) SkipSongRequest(ctx context.Context, id string) (*models.SongRequest, error) {
	var req *models.SongRequest
	var err error
	if id == "" {
		req, err = db.oldestPending(ctx)
	} else {
		req, err = db.songRequestByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if req.Status != models.SongStatusPending && req.Status != models.SongStatusPlaying {
		return nil, fmt.Errorf("song request %s is already %s", req.ID, req.Status)
	}

	now := time.Now().UTC()
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE song_requests SET status = ?, played_at = ?
		WHERE id = ?`, models.SongStatusSkipped, now, req.ID); err != nil {
		return nil, fmt.Errorf("skip song request: %w", err)
	}
	req.Status = models.SongStatusSkipped
	req.PlayedAt = &now
	return req, nil
}

// ClearSongQueue marks all pending requests as skipped and returns how many
// were cleared.
func (db *DB) ClearSongQueue(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE song_requests SET status = ?, played_at = ?
		WHERE status = ?`, models.SongStatusSkipped, time.Now().UTC(), models.SongStatusPending)
	if err != nil {
		return 0, fmt.Errorf("clear song queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SongHistory returns played and skipped requests, most recent first.
func (db *DB) SongHistory(ctx context.Context, limit, offset int) ([]*models.SongRequest, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, artist, url, requested_by, platform, status, requested_at, played_at
		FROM song_requests
		WHERE status IN (?, ?)
		ORDER BY played_at DESC
		LIMIT ? OFFSET ?`,
		models.SongStatusPlayed, models.SongStatusSkipped, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query song history: %w", err)
	}
	defer closeQuietly(rows)
	return scanSongRequests(rows)
}

func (db *DB) oldestPending(ctx context.Context) (*models.SongRequest, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, artist, url, requested_by, platform, status, requested_at, played_at
		FROM song_requests
		WHERE status = ?
		ORDER BY requested_at, id
		LIMIT 1`, models.SongStatusPending)
	req, err := scanSongRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQueueEmpty
	}
	return req, err
}

func (db *DB) songRequestByID(ctx context.Context, id string) (*models.SongRequest, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, artist, url, requested_by, platform, status, requested_at, played_at
		FROM song_requests
		WHERE id = ?`, id)
	req, err := scanSongRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSongRequest(row rowScanner) (*models.SongRequest, error) {
	var req models.SongRequest
	var artist, url, platform sql.NullString
	var playedAt sql.NullTime
	err := row.Scan(&req.ID, &req.Title, &artist, &url, &req.RequestedBy,
		&platform, &req.Status, &req.RequestedAt, &playedAt)
	if err != nil {
		return nil, err
	}
	req.Artist = artist.String
	req.URL = url.String
	req.Platform = platform.String
	if playedAt.Valid {
		t := playedAt.Time
		req.PlayedAt = &t
	}
	return &req, nil
}

func scanSongRequests(rows *sql.Rows) ([]*models.SongRequest, error) {
	var requests []*models.SongRequest
	for rows.Next() {
		req, err := scanSongRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate song requests: %w", err)
	}
	return requests, nil
}
