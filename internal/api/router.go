// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homelab-ops/homestead/internal/middleware"
)

// Router assembles the HTTP handler tree.
type Router struct {
	handlers *Handlers
	mw       *ChiMiddleware
}

// NewRouter creates the router for the given handler set.
func NewRouter(handlers *Handlers) *Router {
	return &Router{
		handlers: handlers,
		mw:       NewChiMiddleware(&handlers.cfg.Security),
	}
}

// Setup builds the full route tree.
func (router *Router) Setup() http.Handler {
	h := router.handlers
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	// Health, permissively rate-limited for external monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Get("/", h.Health)
	})

	// Login gets the strictest limiter.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(router.mw.RateLimitLogin()).Post("/login", h.Login)
	})

	// Everything else requires auth.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(h.auth.Middleware)

		r.Get("/ws", h.WebSocket)

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.ServicesList)
			r.Get("/{unit}", h.ServiceStatus)
			r.Post("/{unit}/start", h.ServiceStart)
			r.Post("/{unit}/stop", h.ServiceStop)
			r.Post("/{unit}/restart", h.ServiceRestart)
			r.Post("/{unit}/wait", h.ServiceWait)
		})

		r.Route("/vms", func(r chi.Router) {
			r.Get("/", h.VMList)
			r.Get("/{name}", h.VMStatus)
			r.Post("/{name}/start", h.VMStart)
			r.Post("/{name}/shutdown", h.VMShutdown)
			r.Post("/{name}/destroy", h.VMDestroy)
			r.Post("/{name}/wait", h.VMWait)
		})

		r.Route("/stacks", func(r chi.Router) {
			r.Get("/", h.StacksList)
			r.Get("/{name}", h.StackStatus)
			r.Post("/{name}/up", h.StackUp)
			r.Post("/{name}/down", h.StackDown)
			r.Post("/{name}/restart", h.StackRestart)
		})

		r.Route("/dns", func(r chi.Router) {
			r.Get("/records", h.DNSRecordsList)
			r.Put("/records", h.DNSRecordUpsert)
			r.Delete("/records/{id}", h.DNSRecordDelete)
		})

		r.Route("/dyndns", func(r chi.Router) {
			r.Get("/status", h.DynDNSStatus)
			r.Post("/check", h.DynDNSCheck)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/", h.DeploymentsList)
			r.Post("/", h.DeploymentSubmit)
			r.Get("/{id}", h.DeploymentGet)
			r.Post("/{id}/cancel", h.DeploymentCancel)
		})

		r.Route("/songs", func(r chi.Router) {
			r.Get("/queue", h.SongQueue)
			r.Post("/requests", h.SongRequestCreate)
			r.Post("/play", h.SongPlay)
			r.Post("/skip", h.SongSkip)
			r.Post("/clear", h.SongClear)
			r.Get("/history", h.SongHistory)
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", h.AnnouncementsList)
			r.Post("/", h.AnnouncementCreate)
			r.Put("/{id}", h.AnnouncementUpdate)
			r.Delete("/{id}", h.AnnouncementDelete)
			r.Post("/trigger", h.AnnouncementTrigger)
		})

		r.Route("/clips", func(r chi.Router) {
			r.Get("/", h.ClipsList)
			r.Post("/", h.ClipCreate)
			r.Put("/{id}", h.ClipUpdate)
			r.Delete("/{id}", h.ClipDelete)
		})

		r.Route("/restream", func(r chi.Router) {
			r.Get("/targets", h.RestreamTargetsList)
			r.Put("/targets", h.RestreamTargetUpsert)
			r.Delete("/targets/{platform}", h.RestreamTargetDelete)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/recent", h.AlertsRecent)
			r.Post("/test", h.AlertTest)
		})
	})

	// Prometheus scrape endpoint, outside the versioned API.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
