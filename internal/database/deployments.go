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

// InsertDeployment persists a new deployment in pending state.
func (db *DB) InsertDeployment(ctx context.Context, d *models.Deployment) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = models.DeployStatusPending
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO deployments (id, name, target, status, current_stage, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Target, d.Status, d.CurrentStage, d.Error, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// UpdateDeployment persists status, current stage, error, and finish time.
func (db *DB) UpdateDeployment(ctx context.Context, d *models.Deployment) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE deployments SET status = ?, current_stage = ?, error = ?, finished_at = ?
		WHERE id = ?`, d.Status, d.CurrentStage, d.Error, d.FinishedAt, d.ID)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	return requireRowAffected(res)
}

// GetDeployment returns a deployment by ID.
func (db *DB) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, target, status, current_stage, error, created_at, finished_at
		FROM deployments WHERE id = ?`, id)
	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListDeployments returns deployments newest first.
func (db *DB) ListDeployments(ctx context.Context, limit, offset int) ([]*models.Deployment, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, target, status, current_stage, error, created_at, finished_at
		FROM deployments
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer closeQuietly(rows)

	var deployments []*models.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}

// InsertDeploymentStep persists the start of a pipeline stage.
func (db *DB) InsertDeploymentStep(ctx context.Context, s *models.DeploymentStep) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO deployment_steps (id, deployment_id, stage, status, message, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.DeploymentID, s.Stage, s.Status, s.Message, s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert deployment step: %w", err)
	}
	return nil
}

// UpdateDeploymentStep persists the outcome of a pipeline stage.
func (db *DB) UpdateDeploymentStep(ctx context.Context, s *models.DeploymentStep) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE deployment_steps SET status = ?, message = ?, finished_at = ?
		WHERE id = ?`, s.Status, s.Message, s.FinishedAt, s.ID)
	if err != nil {
		return fmt.Errorf("update deployment step: %w", err)
	}
	return requireRowAffected(res)
}

// DeploymentSteps returns the steps of a deployment in execution order.
func (db *DB) DeploymentSteps(ctx context.Context, deploymentID string) ([]*models.DeploymentStep, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, deployment_id, stage, status, message, started_at, finished_at
		FROM deployment_steps
		WHERE deployment_id = ?
		ORDER BY started_at, id`, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("query deployment steps: %w", err)
	}
	defer closeQuietly(rows)

	var steps []*models.DeploymentStep
	for rows.Next() {
		var s models.DeploymentStep
		var message sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.DeploymentID, &s.Stage, &s.Status, &message, &s.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan deployment step: %w", err)
		}
		s.Message = message.String
		if finishedAt.Valid {
			t := finishedAt.Time
			s.FinishedAt = &t
		}
		steps = append(steps, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment steps: %w", err)
	}
	return steps, nil
}

func scanDeployment(row rowScanner) (*models.Deployment, error) {
	var d models.Deployment
	var target, stage, errMsg sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(&d.ID, &d.Name, &target, &d.Status, &stage, &errMsg, &d.CreatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	d.Target = target.String
	d.CurrentStage = stage.String
	d.Error = errMsg.String
	if finishedAt.Valid {
		t := finishedAt.Time
		d.FinishedAt = &t
	}
	return &d, nil
}
