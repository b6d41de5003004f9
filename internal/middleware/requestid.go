// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package middleware holds the HTTP middleware shared by all API routes.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/homelab-ops/homestead/internal/logging"
)

type contextKey string

// RequestIDKey carries the request ID in the request context.
const RequestIDKey contextKey = "request_id"

// RequestID tags each request with a unique ID, honoring one supplied by an
// upstream proxy, and exposes it on the response and in the log context.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)

		next(w, r.WithContext(ctx))
	}
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
