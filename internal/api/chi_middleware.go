// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/homelab-ops/homestead/internal/config"
)

// ChiMiddleware builds the CORS and rate-limit middleware from the security
// configuration.
type ChiMiddleware struct {
	cfg  *config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory. CORS origins default to
// none; the dashboard must be explicitly allowed.
func NewChiMiddleware(cfg *config.SecurityConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return &ChiMiddleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the CORS middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the standard per-IP rate limiter.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	requests := m.cfg.RateLimitReqs
	if requests <= 0 {
		requests = 100
	}
	window := m.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return m.limit(requests, window)
}

// RateLimitHealth returns a permissive limiter for health probes so external
// monitoring can poll frequently.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limit(1000, time.Minute)
}

// RateLimitLogin returns the strict limiter for the login endpoint.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit(5, 5*time.Minute)
}

func (m *ChiMiddleware) limit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests,
				ErrCodeTooManyRequests, "rate limit exceeded")
		}),
	)
}

// chiMiddleware adapts func(http.HandlerFunc) http.HandlerFunc middleware to
// Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
