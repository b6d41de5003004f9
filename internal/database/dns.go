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

// UpsertDNSRecord inserts or updates a record keyed by (name, type).
func (db *DB) UpsertDNSRecord(ctx context.Context, r *models.DNSRecord) error {
	now := time.Now().UTC()
	r.UpdatedAt = now

	existing, err := db.GetDNSRecord(ctx, r.Name, r.Type)
	switch {
	case errors.Is(err, ErrNotFound):
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.CreatedAt = now
		_, err = db.conn.ExecContext(ctx, `
			INSERT INTO dns_records (id, name, type, value, ttl, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Type, r.Value, r.TTL, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert dns record: %w", err)
		}
		return nil
	case err != nil:
		return err
	}

	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	_, err = db.conn.ExecContext(ctx, `
		UPDATE dns_records SET value = ?, ttl = ?, updated_at = ?
		WHERE id = ?`, r.Value, r.TTL, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("update dns record: %w", err)
	}
	return nil
}

// GetDNSRecord returns the record for (name, type).
func (db *DB) GetDNSRecord(ctx context.Context, name, recordType string) (*models.DNSRecord, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, type, value, ttl, created_at, updated_at
		FROM dns_records WHERE name = ? AND type = ?`, name, recordType)
	r, err := scanDNSRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListDNSRecords returns all managed records ordered by name then type.
func (db *DB) ListDNSRecords(ctx context.Context) ([]*models.DNSRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, type, value, ttl, created_at, updated_at
		FROM dns_records ORDER BY name, type`)
	if err != nil {
		return nil, fmt.Errorf("query dns records: %w", err)
	}
	defer closeQuietly(rows)

	var records []*models.DNSRecord
	for rows.Next() {
		r, err := scanDNSRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dns record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dns records: %w", err)
	}
	return records, nil
}

// DeleteDNSRecord removes a record by ID.
func (db *DB) DeleteDNSRecord(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM dns_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dns record: %w", err)
	}
	return requireRowAffected(res)
}

// InsertDynDNSCheck records a public-IP poll result.
func (db *DB) InsertDynDNSCheck(ctx context.Context, c *models.DynDNSCheck) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now().UTC()
	}

	stmt, err := db.prepareCached(ctx, `
		INSERT INTO dyndns_checks (id, checked_at, public_ip, changed, updated, error)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, c.ID, c.CheckedAt, c.PublicIP, c.Changed, c.Updated, c.Error)
	if err != nil {
		return fmt.Errorf("insert dyndns check: %w", err)
	}
	return nil
}

// RecentDynDNSChecks returns check history, newest first.
func (db *DB) RecentDynDNSChecks(ctx context.Context, limit int) ([]*models.DynDNSCheck, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, checked_at, public_ip, changed, updated, error
		FROM dyndns_checks
		ORDER BY checked_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dyndns checks: %w", err)
	}
	defer closeQuietly(rows)

	var checks []*models.DynDNSCheck
	for rows.Next() {
		var c models.DynDNSCheck
		var ip, errMsg sql.NullString
		if err := rows.Scan(&c.ID, &c.CheckedAt, &ip, &c.Changed, &c.Updated, &errMsg); err != nil {
			return nil, fmt.Errorf("scan dyndns check: %w", err)
		}
		c.PublicIP = ip.String
		c.Error = errMsg.String
		checks = append(checks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dyndns checks: %w", err)
	}
	return checks, nil
}

// PruneDynDNSChecks deletes checks older than the cutoff.
func (db *DB) PruneDynDNSChecks(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM dyndns_checks WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune dyndns checks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func scanDNSRecord(row rowScanner) (*models.DNSRecord, error) {
	var r models.DNSRecord
	if err := row.Scan(&r.ID, &r.Name, &r.Type, &r.Value, &r.TTL, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
