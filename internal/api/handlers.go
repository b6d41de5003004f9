// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package api

import (
	"net/http"
	"time"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/auth"
	"github.com/homelab-ops/homestead/internal/cache"
	"github.com/homelab-ops/homestead/internal/compose"
	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/database"
	"github.com/homelab-ops/homestead/internal/deploy"
	"github.com/homelab-ops/homestead/internal/dns"
	"github.com/homelab-ops/homestead/internal/events"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/services"
	"github.com/homelab-ops/homestead/internal/streambot"
	"github.com/homelab-ops/homestead/internal/vm"
	"github.com/homelab-ops/homestead/internal/websocket"
)

// statusCacheTTL shields systemctl/virsh/docker from dashboard polling.
const statusCacheTTL = 5 * time.Second

// Deps bundles everything the handlers reach into.
type Deps struct {
	Config     *config.Config
	DB         *database.DB
	Hub        *websocket.Hub
	Auth       *auth.Authenticator
	Services   *services.Manager
	VMs        *vm.Manager
	Stacks     *compose.Manager
	Songs      *streambot.Songs
	Announcer  *streambot.Announcer
	Deploys    *deploy.Executor
	DynDNS     *dns.Updater
	Dispatcher *alerts.Dispatcher
	AlertStore *alerts.Store
	Bus        *events.Bus
}

// Handlers implements every API endpoint.
type Handlers struct {
	cfg        *config.Config
	db         *database.DB
	hub        *websocket.Hub
	auth       *auth.Authenticator
	services   *services.Manager
	vms        *vm.Manager
	stacks     *compose.Manager
	songs      *streambot.Songs
	announcer  *streambot.Announcer
	deploys    *deploy.Executor
	dyndns     *dns.Updater
	dispatcher *alerts.Dispatcher
	alertStore *alerts.Store
	bus        *events.Bus

	statusCache *cache.Cache
	startTime   time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		cfg:         deps.Config,
		db:          deps.DB,
		hub:         deps.Hub,
		auth:        deps.Auth,
		services:    deps.Services,
		vms:         deps.VMs,
		stacks:      deps.Stacks,
		songs:       deps.Songs,
		announcer:   deps.Announcer,
		deploys:     deps.Deploys,
		dyndns:      deps.DynDNS,
		dispatcher:  deps.Dispatcher,
		alertStore:  deps.AlertStore,
		bus:         deps.Bus,
		statusCache: cache.New(statusCacheTTL),
		startTime:   time.Now(),
	}
}

// Close releases handler-owned resources.
func (h *Handlers) Close() {
	h.statusCache.Close()
}

// Health reports liveness plus component state. The database check is the
// only dependency probed; host tools are reported by configuration.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbStatus := "ok"
	if err := h.db.Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
	}

	status := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"database":       dbStatus,
		"websocket_clients": h.hub.ClientCount(),
		"pending_alerts":    h.dispatcher.Pending(),
		"components": map[string]bool{
			"vm":      h.cfg.VM.Enabled,
			"compose": h.cfg.Compose.Enabled,
			"dyndns":  h.cfg.DynDNS.Enabled,
			"deploy":  h.cfg.Deploy.Enabled,
			"nats":    h.cfg.NATS.Enabled,
		},
	}

	if dbStatus != "ok" {
		status["status"] = "degraded"
	}
	rw.Success(status)
}

// Login exchanges admin credentials for a JWT. Only available in jwt mode.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.auth.Mode() != config.AuthModeJWT {
		rw.Error(http.StatusNotImplemented, ErrCodeBadRequest,
			"login requires jwt auth mode")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.auth.Login(req.Username, req.Password) {
		logging.Warn().Str("username", req.Username).Msg("failed login attempt")
		rw.Unauthorized("invalid credentials")
		return
	}

	token, err := h.auth.JWT().GenerateToken(req.Username, "admin")
	if err != nil {
		rw.InternalError("could not issue token")
		return
	}

	timeout := h.auth.JWT().SessionTimeout()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(timeout.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !h.cfg.IsDevelopment(),
	})

	rw.Success(map[string]interface{}{
		"token":      token,
		"expires_in": int64(timeout.Seconds()),
	})
}

// WebSocket upgrades the connection and hands it to the hub. Overlays
// authenticate with ?token= since OBS Browser Sources cannot set headers.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.hub, w, r)
}
