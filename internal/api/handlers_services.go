// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homelab-ops/homestead/internal/services"
)

const servicesCacheKey = "services:all"

// ServicesList returns the status of every allow-listed unit. Results are
// cached briefly so dashboard polling does not hammer systemctl.
func (h *Handlers) ServicesList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if cached, ok := h.statusCache.Get(servicesCacheKey); ok {
		rw.Success(cached)
		return
	}

	statuses, err := h.services.StatusAll(r.Context())
	if err != nil {
		rw.HostCommandError(err)
		return
	}
	h.statusCache.Set(servicesCacheKey, statuses)
	rw.Success(statuses)
}

// ServiceStatus returns the status of one unit.
func (h *Handlers) ServiceStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	unit := chi.URLParam(r, "unit")

	status, err := h.services.Status(r.Context(), unit)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.Success(status)
}

// ServiceStart starts a unit.
func (h *Handlers) ServiceStart(w http.ResponseWriter, r *http.Request) {
	h.serviceControl(w, r, h.services.Start)
}

// ServiceStop stops a unit.
func (h *Handlers) ServiceStop(w http.ResponseWriter, r *http.Request) {
	h.serviceControl(w, r, h.services.Stop)
}

// ServiceRestart restarts a unit.
func (h *Handlers) ServiceRestart(w http.ResponseWriter, r *http.Request) {
	h.serviceControl(w, r, h.services.Restart)
}

// ServiceWait blocks until the unit reports active or the configured wait
// deadline expires.
func (h *Handlers) ServiceWait(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	unit := chi.URLParam(r, "unit")

	if err := h.services.WaitForActive(r.Context(), unit); err != nil {
		var timeoutErr *services.WaitTimeoutError
		if errors.As(err, &timeoutErr) {
			rw.ErrorWithDetails(http.StatusGatewayTimeout, ErrCodeWaitTimeout,
				"unit "+unit+" did not become active in time",
				map[string]string{"unit": unit, "last_state": timeoutErr.LastState})
			return
		}
		if errors.Is(err, services.ErrWaitTimeout) {
			rw.WaitTimeout("unit " + unit + " did not become active in time")
			return
		}
		h.writeServiceError(rw, err)
		return
	}

	status, err := h.services.Status(r.Context(), unit)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.Success(status)
}

func (h *Handlers) serviceControl(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, unit string) error) {
	rw := NewResponseWriter(w, r)
	unit := chi.URLParam(r, "unit")

	if err := op(r.Context(), unit); err != nil {
		h.writeServiceError(rw, err)
		return
	}
	h.statusCache.Invalidate(servicesCacheKey)
	rw.Accepted(map[string]string{"unit": unit})
}

func (h *Handlers) writeServiceError(rw *ResponseWriter, err error) {
	if errors.Is(err, services.ErrUnitNotAllowed) {
		rw.Error(http.StatusForbidden, ErrCodeForbidden, err.Error())
		return
	}
	rw.HostCommandError(err)
}
