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

	"github.com/homelab-ops/homestead/internal/vm"
)

const vmsCacheKey = "vms:all"

// VMList returns every libvirt domain with its state.
func (h *Handlers) VMList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if cached, ok := h.statusCache.Get(vmsCacheKey); ok {
		rw.Success(cached)
		return
	}

	vms, err := h.vms.List(r.Context())
	if err != nil {
		rw.HostCommandError(err)
		return
	}
	h.statusCache.Set(vmsCacheKey, vms)
	rw.Success(vms)
}

// VMStatus returns one domain's state.
func (h *Handlers) VMStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	status, err := h.vms.Status(r.Context(), name)
	if err != nil {
		h.writeVMError(rw, err)
		return
	}
	rw.Success(status)
}

// VMStart starts a domain.
func (h *Handlers) VMStart(w http.ResponseWriter, r *http.Request) {
	h.vmControl(w, r, h.vms.Start)
}

// VMShutdown requests a graceful ACPI shutdown.
func (h *Handlers) VMShutdown(w http.ResponseWriter, r *http.Request) {
	h.vmControl(w, r, h.vms.Shutdown)
}

// VMDestroy force-stops a domain.
func (h *Handlers) VMDestroy(w http.ResponseWriter, r *http.Request) {
	h.vmControl(w, r, h.vms.Destroy)
}

// VMWait blocks until the domain reaches the requested state or the wait
// deadline expires. Default target state is running.
func (h *Handlers) VMWait(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	// An empty body waits for the running state.
	var req waitRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	state := req.State
	if state == "" {
		state = vm.StateRunning
	}

	if err := h.vms.WaitForState(r.Context(), name, state); err != nil {
		var timeoutErr *vm.WaitTimeoutError
		if errors.As(err, &timeoutErr) {
			rw.ErrorWithDetails(http.StatusGatewayTimeout, ErrCodeWaitTimeout,
				"vm "+name+" did not reach state "+state+" in time",
				map[string]string{"name": name, "want": state, "last_state": timeoutErr.LastState})
			return
		}
		if errors.Is(err, vm.ErrWaitTimeout) {
			rw.WaitTimeout("vm " + name + " did not reach state " + state + " in time")
			return
		}
		h.writeVMError(rw, err)
		return
	}

	status, err := h.vms.Status(r.Context(), name)
	if err != nil {
		h.writeVMError(rw, err)
		return
	}
	rw.Success(status)
}

func (h *Handlers) vmControl(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, name string) error) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	if err := op(r.Context(), name); err != nil {
		h.writeVMError(rw, err)
		return
	}
	h.statusCache.Invalidate(vmsCacheKey)
	rw.Accepted(map[string]string{"name": name})
}

func (h *Handlers) writeVMError(rw *ResponseWriter, err error) {
	if errors.Is(err, vm.ErrVMNotFound) {
		rw.NotFound(err.Error())
		return
	}
	rw.HostCommandError(err)
}
