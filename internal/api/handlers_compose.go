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

	"github.com/homelab-ops/homestead/internal/compose"
)

const stacksCacheKey = "stacks:all"

// StacksList returns the status of every registered compose stack.
func (h *Handlers) StacksList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if cached, ok := h.statusCache.Get(stacksCacheKey); ok {
		rw.Success(cached)
		return
	}

	statuses, err := h.stacks.StatusAll(r.Context())
	if err != nil {
		rw.HostCommandError(err)
		return
	}
	h.statusCache.Set(stacksCacheKey, statuses)
	rw.Success(statuses)
}

// StackStatus returns one stack's container listing.
func (h *Handlers) StackStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	status, err := h.stacks.Status(r.Context(), name)
	if err != nil {
		h.writeStackError(rw, err)
		return
	}
	rw.Success(status)
}

// StackUp brings a stack up and waits for its declared endpoints.
func (h *Handlers) StackUp(w http.ResponseWriter, r *http.Request) {
	h.stackControl(w, r, h.stacks.Up)
}

// StackDown tears a stack down.
func (h *Handlers) StackDown(w http.ResponseWriter, r *http.Request) {
	h.stackControl(w, r, h.stacks.Down)
}

// StackRestart restarts a stack.
func (h *Handlers) StackRestart(w http.ResponseWriter, r *http.Request) {
	h.stackControl(w, r, h.stacks.Restart)
}

func (h *Handlers) stackControl(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, name string) error) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	if err := op(r.Context(), name); err != nil {
		if errors.Is(err, compose.ErrWaitTimeout) {
			rw.WaitTimeout(err.Error())
			return
		}
		h.writeStackError(rw, err)
		return
	}
	h.statusCache.Invalidate(stacksCacheKey)
	rw.Accepted(map[string]string{"stack": name})
}

func (h *Handlers) writeStackError(rw *ResponseWriter, err error) {
	if errors.Is(err, compose.ErrStackNotFound) {
		rw.NotFound(err.Error())
		return
	}
	rw.HostCommandError(err)
}
