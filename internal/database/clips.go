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

// InsertClip persists a saved highlight.
func (db *DB) InsertClip(ctx context.Context, c *models.Clip) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO clips (id, title, url, game, platform, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.URL, c.Game, c.Platform, c.CreatedBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

// GetClip returns a clip by ID.
func (db *DB) GetClip(ctx context.Context, id string) (*models.Clip, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, url, game, platform, created_by, created_at
		FROM clips WHERE id = ?`, id)
	c, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListClips returns clips newest first.
func (db *DB) ListClips(ctx context.Context, limit, offset int) ([]*models.Clip, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, url, game, platform, created_by, created_at
		FROM clips
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer closeQuietly(rows)

	var clips []*models.Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return clips, nil
}

// UpdateClip rewrites a clip's editable fields.
func (db *DB) UpdateClip(ctx context.Context, c *models.Clip) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE clips SET title = ?, url = ?, game = ?, platform = ?, created_by = ?
		WHERE id = ?`,
		c.Title, c.URL, c.Game, c.Platform, c.CreatedBy, c.ID)
	if err != nil {
		return fmt.Errorf("update clip: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteClip removes a clip.
func (db *DB) DeleteClip(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM clips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	return requireRowAffected(res)
}

func scanClip(row rowScanner) (*models.Clip, error) {
	var c models.Clip
	var game, platform, createdBy sql.NullString
	if err := row.Scan(&c.ID, &c.Title, &c.URL, &game, &platform, &createdBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Game = game.String
	c.Platform = platform.String
	c.CreatedBy = createdBy.String
	return &c, nil
}
