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

// UpsertRestreamTarget inserts or updates the target for a platform. There is
// at most one target per platform. An empty StreamKey on update keeps the
// stored key, so clients can edit targets without re-entering secrets.
func (db *DB) UpsertRestreamTarget(ctx context.Context, t *models.RestreamTarget) error {
	t.UpdatedAt = time.Now().UTC()

	existing, err := db.GetRestreamTarget(ctx, t.Platform)
	switch {
	case errors.Is(err, ErrNotFound):
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		_, err = db.conn.ExecContext(ctx, `
			INSERT INTO restream_targets (id, platform, rtmp_url, stream_key, enabled, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Platform, t.RTMPURL, t.StreamKey, t.Enabled, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert restream target: %w", err)
		}
		return nil
	case err != nil:
		return err
	}

	t.ID = existing.ID
	if t.StreamKey == "" {
		t.StreamKey = existing.StreamKey
	}
	_, err = db.conn.ExecContext(ctx, `
		UPDATE restream_targets SET rtmp_url = ?, stream_key = ?, enabled = ?, updated_at = ?
		WHERE id = ?`, t.RTMPURL, t.StreamKey, t.Enabled, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update restream target: %w", err)
	}
	return nil
}

// GetRestreamTarget returns the target for a platform, stream key included.
// Callers that serialize targets must redact the key first.
func (db *DB) GetRestreamTarget(ctx context.Context, platform string) (*models.RestreamTarget, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, platform, rtmp_url, stream_key, enabled, updated_at
		FROM restream_targets WHERE platform = ?`, platform)
	t, err := scanRestreamTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// ListRestreamTargets returns all targets ordered by platform.
func (db *DB) ListRestreamTargets(ctx context.Context) ([]*models.RestreamTarget, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, platform, rtmp_url, stream_key, enabled, updated_at
		FROM restream_targets ORDER BY platform`)
	if err != nil {
		return nil, fmt.Errorf("query restream targets: %w", err)
	}
	defer closeQuietly(rows)

	var targets []*models.RestreamTarget
	for rows.Next() {
		t, err := scanRestreamTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restream target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restream targets: %w", err)
	}
	return targets, nil
}

// DeleteRestreamTarget removes the target for a platform.
func (db *DB) DeleteRestreamTarget(ctx context.Context, platform string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM restream_targets WHERE platform = ?`, platform)
	if err != nil {
		return fmt.Errorf("delete restream target: %w", err)
	}
	return requireRowAffected(res)
}

func scanRestreamTarget(row rowScanner) (*models.RestreamTarget, error) {
	var t models.RestreamTarget
	if err := row.Scan(&t.ID, &t.Platform, &t.RTMPURL, &t.StreamKey, &t.Enabled, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
