// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/homelab-ops/homestead/internal/validation"
)

// maxRequestBody caps request bodies; nothing this API accepts is large.
const maxRequestBody = 1 << 20

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type waitRequest struct {
	// State is the target VM state to wait for.
	State string `json:"state" validate:"omitempty,oneof=running 'shut off' paused"`
}

type songRequestBody struct {
	Title       string `json:"title" validate:"required,max=200"`
	Artist      string `json:"artist" validate:"max=200"`
	URL         string `json:"url" validate:"omitempty,url"`
	RequestedBy string `json:"requested_by" validate:"required,max=100"`
	Platform    string `json:"platform" validate:"omitempty,oneof=twitch youtube kick"`
}

type skipRequest struct {
	// ID selects the request to skip; empty skips the oldest pending one.
	ID string `json:"id" validate:"omitempty,uuid"`
}

type announcementRequest struct {
	Text    string `json:"text" validate:"required,max=500"`
	Enabled *bool  `json:"enabled"`
}

type clipRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	URL       string `json:"url" validate:"required,url"`
	Game      string `json:"game" validate:"max=200"`
	Platform  string `json:"platform" validate:"omitempty,oneof=twitch youtube kick"`
	CreatedBy string `json:"created_by" validate:"max=100"`
}

type restreamTargetRequest struct {
	Platform string `json:"platform" validate:"required,oneof=twitch youtube kick"`
	RTMPURL  string `json:"rtmp_url" validate:"required"`
	// StreamKey is optional on update; an empty key keeps the stored one.
	StreamKey string `json:"stream_key"`
	Enabled   *bool  `json:"enabled"`
}

type dnsRecordRequest struct {
	Name  string `json:"name" validate:"required,hostname_rfc1123"`
	Type  string `json:"type" validate:"required,oneof=A AAAA CNAME TXT"`
	Value string `json:"value" validate:"required,max=1000"`
	TTL   int    `json:"ttl" validate:"min=0,max=604800"`
}

type deployRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Target string `json:"target" validate:"max=200"`
}

type testAlertRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=follow subscription raid cheer song_request announcement"`
	Username string `json:"username" validate:"required,max=100"`
	Platform string `json:"platform" validate:"omitempty,oneof=twitch youtube kick"`
	Message  string `json:"message" validate:"max=500"`
	Amount   int    `json:"amount" validate:"min=0"`
}

// decodeJSON reads and validates a JSON request body. On failure it writes
// the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		details := make([]map[string]string, 0, len(verr.Errors()))
		for _, fe := range verr.Errors() {
			details = append(details, map[string]string{
				"field":   fe.Field(),
				"message": fe.Error(),
			})
		}
		rw.ValidationError("request validation failed", details)
		return false
	}
	return true
}

// pagination reads limit/offset query parameters, clamped to the configured
// page sizes.
func (h *Handlers) pagination(r *http.Request) (limit, offset int) {
	limit = h.cfg.API.DefaultPageSize
	if limit <= 0 {
		limit = 50
	}
	maxLimit := h.cfg.API.MaxPageSize
	if maxLimit <= 0 {
		maxLimit = 500
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
