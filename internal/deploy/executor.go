// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package deploy runs the staged deployment pipeline: validate, provision,
// configure, start, verify. Stages run strictly in order, every stage
// transition is persisted, and progress is pushed to dashboard clients over
// the websocket hub.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/websocket"
)

// ErrDeployBusy is returned when a deployment is submitted while the queue
// is full.
var ErrDeployBusy = errors.New("deployment queue is full")

// ErrNotCancelable is returned when canceling a finished deployment.
var ErrNotCancelable = errors.New("deployment is not running or pending")

// Store is the slice of the database the executor needs.
type Store interface {
	InsertDeployment(ctx context.Context, d *models.Deployment) error
	UpdateDeployment(ctx context.Context, d *models.Deployment) error
	GetDeployment(ctx context.Context, id string) (*models.Deployment, error)
	InsertDeploymentStep(ctx context.Context, s *models.DeploymentStep) error
	UpdateDeploymentStep(ctx context.Context, s *models.DeploymentStep) error
}

// StageFunc executes one pipeline stage for a deployment. The returned
// message is persisted on the step record.
type StageFunc func(ctx context.Context, d *models.Deployment) (string, error)

// Stages maps stage names to implementations. Missing stages are recorded
// as skipped.
type Stages map[string]StageFunc

// Executor runs deployments one at a time off an internal queue.
type Executor struct {
	cfg    *config.DeployConfig
	store  Store
	hub    *websocket.Hub
	stages Stages
	queue  chan *models.Deployment
	logger zerolog.Logger

	mu       sync.Mutex
	canceled map[string]bool
}

// NewExecutor creates a deployment executor. hub may be nil.
func NewExecutor(cfg *config.DeployConfig, store Store, hub *websocket.Hub, stages Stages) *Executor {
	return &Executor{
		cfg:      cfg,
		store:    store,
		hub:      hub,
		stages:   stages,
		queue:    make(chan *models.Deployment, 8),
		canceled: make(map[string]bool),
		logger:   logging.Logger().With().Str("component", "deploy").Logger(),
	}
}

// Submit persists a new deployment and queues it for execution.
func (e *Executor) Submit(ctx context.Context, name, target string) (*models.Deployment, error) {
	d := &models.Deployment{Name: name, Target: target}
	if err := e.store.InsertDeployment(ctx, d); err != nil {
		return nil, err
	}

	select {
	case e.queue <- d:
	default:
		d.Status = models.DeployStatusFailed
		d.Error = ErrDeployBusy.Error()
		now := time.Now().UTC()
		d.FinishedAt = &now
		if err := e.store.UpdateDeployment(ctx, d); err != nil {
			e.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("failed to mark deployment rejected")
		}
		return nil, ErrDeployBusy
	}

	e.logger.Info().Str("deployment_id", d.ID).Str("name", name).Msg("deployment queued")
	return d, nil
}

// Cancel marks a deployment for cancellation. A running deployment stops
// before its next stage; a queued one is skipped entirely.
func (e *Executor) Cancel(ctx context.Context, id string) error {
	d, err := e.store.GetDeployment(ctx, id)
	if err != nil {
		return err
	}
	if d.Status != models.DeployStatusPending && d.Status != models.DeployStatusRunning {
		return fmt.Errorf("%w: %s is %s", ErrNotCancelable, id, d.Status)
	}

	e.mu.Lock()
	e.canceled[id] = true
	e.mu.Unlock()
	e.logger.Info().Str("deployment_id", id).Msg("deployment cancellation requested")
	return nil
}

func (e *Executor) isCanceled(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canceled[id]
}

func (e *Executor) clearCanceled(id string) {
	e.mu.Lock()
	delete(e.canceled, id)
	e.mu.Unlock()
}

// RunWithContext drains the deployment queue until the context is canceled.
// Designed for suture supervision.
func (e *Executor) RunWithContext(ctx context.Context) error {
	e.logger.Info().Msg("deploy worker started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("deploy worker stopped")
			return ctx.Err()
		case d := <-e.queue:
			e.execute(ctx, d)
		}
	}
}

func (e *Executor) execute(ctx context.Context, d *models.Deployment) {
	defer e.clearCanceled(d.ID)

	if e.isCanceled(d.ID) {
		e.finish(ctx, d, models.DeployStatusCanceled, "")
		return
	}

	d.Status = models.DeployStatusRunning
	if err := e.store.UpdateDeployment(ctx, d); err != nil {
		e.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("failed to persist deployment start")
	}

	for _, stage := range models.DeployStages {
		// Cancellation takes effect on stage boundaries only; a stage
		// that started always runs to completion.
		if e.isCanceled(d.ID) {
			e.finish(ctx, d, models.DeployStatusCanceled, "")
			return
		}
		if ctx.Err() != nil {
			e.finish(context.WithoutCancel(ctx), d, models.DeployStatusCanceled, "server shutting down")
			return
		}

		d.CurrentStage = stage
		if err := e.store.UpdateDeployment(ctx, d); err != nil {
			e.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("failed to persist stage transition")
		}

		if err := e.runStage(ctx, d, stage); err != nil {
			e.finish(ctx, d, models.DeployStatusFailed, err.Error())
			return
		}
	}

	e.finish(ctx, d, models.DeployStatusSucceeded, "")
}

func (e *Executor) runStage(ctx context.Context, d *models.Deployment, stage string) error {
	step := &models.DeploymentStep{
		DeploymentID: d.ID,
		Stage:        stage,
		Status:       models.DeployStatusRunning,
	}
	if err := e.store.InsertDeploymentStep(ctx, step); err != nil {
		e.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("failed to persist step start")
	}
	e.progress(d, stage, models.DeployStatusRunning, "", "")

	fn, ok := e.stages[stage]
	var message string
	var err error
	if !ok {
		message = "no stage handler, skipped"
	} else {
		stageCtx := ctx
		if e.cfg.StageTimeout > 0 {
			var cancel context.CancelFunc
			stageCtx, cancel = context.WithTimeout(ctx, e.cfg.StageTimeout)
			defer cancel()
		}
		message, err = fn(stageCtx, d)
	}

	now := time.Now().UTC()
	step.FinishedAt = &now
	step.Message = message
	if err != nil {
		step.Status = models.DeployStatusFailed
		step.Message = err.Error()
	} else {
		step.Status = models.DeployStatusSucceeded
	}
	if uerr := e.store.UpdateDeploymentStep(ctx, step); uerr != nil {
		e.logger.Error().Err(uerr).Str("deployment_id", d.ID).Msg("failed to persist step outcome")
	}

	if err != nil {
		e.progress(d, stage, models.DeployStatusFailed, "", err.Error())
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	e.progress(d, stage, models.DeployStatusSucceeded, message, "")
	return nil
}

func (e *Executor) finish(ctx context.Context, d *models.Deployment, status, errMsg string) {
	d.Status = status
	d.Error = errMsg
	now := time.Now().UTC()
	d.FinishedAt = &now
	if err := e.store.UpdateDeployment(ctx, d); err != nil {
		e.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("failed to persist deployment outcome")
	}

	metrics.DeploymentsTotal.WithLabelValues(status).Inc()
	e.progress(d, d.CurrentStage, status, "", errMsg)
	e.logger.Info().
		Str("deployment_id", d.ID).
		Str("status", status).
		Str("stage", d.CurrentStage).
		Msg("deployment finished")
}

func (e *Executor) progress(d *models.Deployment, stage, status, message, errMsg string) {
	if e.hub == nil {
		return
	}
	e.hub.BroadcastDeployProgress(&websocket.DeployProgressData{
		DeploymentID: d.ID,
		Stage:        stage,
		Status:       status,
		Message:      message,
		Error:        errMsg,
	})
}
