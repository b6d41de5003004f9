// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"net/http"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/events"
)

// AlertsRecent returns the persisted alert history, newest first.
func (h *Handlers) AlertsRecent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, _ := h.pagination(r)
	recent, err := h.alertStore.Recent(limit)
	if err != nil {
		rw.InternalError("could not read alert history")
		return
	}
	rw.Success(recent)
}

// AlertTest raises an alert through the full pipeline: bus, relay,
// dispatcher, overlay. Used to check overlay styling without waiting for a
// real follow.
func (h *Handlers) AlertTest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req testAlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	alert := alerts.New(req.Kind, req.Username, req.Platform, req.Message, req.Amount)
	if err := h.bus.Publish(r.Context(), events.TopicAlerts,
		events.NewEvent("alert", alert)); err != nil {
		rw.InternalError("could not publish alert")
		return
	}
	rw.Accepted(alert)
}
