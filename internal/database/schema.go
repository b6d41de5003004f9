// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables and indexes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS song_requests (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT,
			url TEXT,
			requested_by TEXT NOT NULL,
			platform TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			requested_at TIMESTAMP NOT NULL,
			played_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_song_requests_status
			ON song_requests(status, requested_at)`,
		`CREATE INDEX IF NOT EXISTS idx_song_requests_user
			ON song_requests(requested_by, status)`,

		`CREATE TABLE IF NOT EXISTS announcements (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS clips (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			game TEXT,
			platform TEXT,
			created_by TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clips_created
			ON clips(created_at)`,

		`CREATE TABLE IF NOT EXISTS restream_targets (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			rtmp_url TEXT NOT NULL,
			stream_key TEXT NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS dns_records (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			ttl INTEGER NOT NULL DEFAULT 300,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_dns_records_name_type
			ON dns_records(name, type)`,

		`CREATE TABLE IF NOT EXISTS dyndns_checks (
			id TEXT PRIMARY KEY,
			checked_at TIMESTAMP NOT NULL,
			public_ip TEXT,
			changed BOOLEAN NOT NULL DEFAULT false,
			updated BOOLEAN NOT NULL DEFAULT false,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dyndns_checks_time
			ON dyndns_checks(checked_at)`,

		`CREATE TABLE IF NOT EXISTS deployments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			target TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			current_stage TEXT,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deployments_created
			ON deployments(created_at)`,

		`CREATE TABLE IF NOT EXISTS deployment_steps (
			id TEXT PRIMARY KEY,
			deployment_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deployment_steps_deployment
			ON deployment_steps(deployment_id, started_at)`,
	}
}
