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
	"github.com/homelab-ops/homestead/internal/models"
)

// DNSRecordsList returns every managed record in the zone.
func (h *Handlers) DNSRecordsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	records, err := h.db.ListDNSRecords(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(records)
}

// DNSRecordUpsert creates or updates a record keyed by (name, type).
func (h *Handlers) DNSRecordUpsert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req dnsRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = h.cfg.DynDNS.TTL
	}

	record := &models.DNSRecord{
		Name:  req.Name,
		Type:  req.Type,
		Value: req.Value,
		TTL:   ttl,
	}
	if err := h.db.UpsertDNSRecord(r.Context(), record); err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(record)
}

// DNSRecordDelete removes a record by ID.
func (h *Handlers) DNSRecordDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteDNSRecord(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("dns record not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

// DynDNSStatus returns the recent public-IP check history.
func (h *Handlers) DynDNSStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.cfg.DynDNS.Enabled {
		rw.ServiceUnavailable("dyndns is disabled")
		return
	}

	limit, _ := h.pagination(r)
	checks, err := h.db.RecentDynDNSChecks(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"record": h.cfg.DynDNS.Record,
		"zone":   h.cfg.DynDNS.Zone,
		"checks": checks,
	})
}

// DynDNSCheck triggers an immediate public-IP check outside the schedule.
func (h *Handlers) DynDNSCheck(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.cfg.DynDNS.Enabled {
		rw.ServiceUnavailable("dyndns is disabled")
		return
	}
	rw.Success(h.dyndns.CheckOnce(r.Context()))
}
