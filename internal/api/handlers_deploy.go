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
	"github.com/homelab-ops/homestead/internal/deploy"
	"github.com/homelab-ops/homestead/internal/events"
	"github.com/homelab-ops/homestead/internal/logging"
)

// DeploymentsList returns recent deployments, newest first.
func (h *Handlers) DeploymentsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, offset := h.pagination(r)
	deployments, err := h.db.ListDeployments(r.Context(), limit+1, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	hasMore := len(deployments) > limit
	if hasMore {
		deployments = deployments[:limit]
	}
	rw.SuccessWithPagination(deployments, &PaginationMeta{
		Count:   len(deployments),
		Offset:  offset,
		Limit:   limit,
		HasMore: hasMore,
	})
}

// DeploymentSubmit queues a new deployment run.
func (h *Handlers) DeploymentSubmit(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.cfg.Deploy.Enabled {
		rw.ServiceUnavailable("deployments are disabled")
		return
	}

	var req deployRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.deploys.Submit(r.Context(), req.Name, req.Target)
	if err != nil {
		if errors.Is(err, deploy.ErrDeployBusy) {
			rw.Error(http.StatusConflict, ErrCodeConflict, "deployment queue is full")
			return
		}
		rw.InternalError(err.Error())
		return
	}

	h.publishEvent(r, events.TopicDeployments, "deployment_submitted", d)
	rw.Accepted(d)
}

// DeploymentGet returns one deployment with its per-stage steps.
func (h *Handlers) DeploymentGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	d, err := h.db.GetDeployment(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("deployment not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	steps, err := h.db.DeploymentSteps(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"deployment": d,
		"steps":      steps,
	})
}

// DeploymentCancel cancels a pending or running deployment. Cancellation is
// honored between stages; the in-flight stage finishes first.
func (h *Handlers) DeploymentCancel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	if err := h.deploys.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			rw.NotFound("deployment not found")
		case errors.Is(err, deploy.ErrNotCancelable):
			rw.Conflict(err.Error())
		default:
			rw.InternalError(err.Error())
		}
		return
	}
	rw.Accepted(map[string]string{"id": id})
}

// publishEvent puts a domain event on the bus; delivery failures are logged,
// never surfaced to the API caller.
func (h *Handlers) publishEvent(r *http.Request, topic, eventType string, payload interface{}) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(r.Context(), topic, events.NewEvent(eventType, payload)); err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}
