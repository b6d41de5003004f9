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

// InsertAnnouncement persists a new rotation announcement.
func (db *DB) InsertAnnouncement(ctx context.Context, a *models.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO announcements (id, text, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Text, a.Enabled, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

// UpdateAnnouncement updates text and enabled state.
func (db *DB) UpdateAnnouncement(ctx context.Context, a *models.Announcement) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE announcements SET text = ?, enabled = ?, updated_at = ?
		WHERE id = ?`, a.Text, a.Enabled, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteAnnouncement removes an announcement.
func (db *DB) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return requireRowAffected(res)
}

// GetAnnouncement returns one announcement by ID.
func (db *DB) GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, text, enabled, created_at, updated_at
		FROM announcements WHERE id = ?`, id)
	a, err := scanAnnouncement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAnnouncements returns all announcements, oldest first. When enabledOnly
// is set, disabled entries are filtered out; the announcer rotation uses this.
func (db *DB) ListAnnouncements(ctx context.Context, enabledOnly bool) ([]*models.Announcement, error) {
	query := `SELECT id, text, enabled, created_at, updated_at FROM announcements`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query announcements: %w", err)
	}
	defer closeQuietly(rows)

	var announcements []*models.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return announcements, nil
}

func scanAnnouncement(row rowScanner) (*models.Announcement, error) {
	var a models.Announcement
	if err := row.Scan(&a.ID, &a.Text, &a.Enabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
