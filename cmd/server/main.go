// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package main is the entry point for the Homestead server.
//
// Homestead is a self-hosted control plane for a homelab that doubles as a
// streaming rig: it manages systemd units, libvirt VMs, and Docker Compose
// stacks; keeps a dynamic DNS record pointed home; runs a staged deployment
// pipeline; and backs the stream overlay (alerts, song requests,
// announcements, clips, restream targets) over WebSocket.
//
// # Startup order
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. DuckDB history store and Badger alert store
//  4. Event bus (in-process, or NATS JetStream when enabled)
//  5. WebSocket hub, alert dispatcher, managers
//  6. Supervisor tree (suture): data, messaging, and api layers
//
// # Signal handling
//
// SIGINT/SIGTERM cancel the root context; the supervisor tree drains its
// services, the HTTP server finishes in-flight requests, and the stores are
// checkpointed and closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/homelab-ops/homestead/internal/alerts"
	"github.com/homelab-ops/homestead/internal/api"
	"github.com/homelab-ops/homestead/internal/auth"
	"github.com/homelab-ops/homestead/internal/compose"
	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/database"
	"github.com/homelab-ops/homestead/internal/deploy"
	"github.com/homelab-ops/homestead/internal/dns"
	"github.com/homelab-ops/homestead/internal/events"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/services"
	"github.com/homelab-ops/homestead/internal/streambot"
	"github.com/homelab-ops/homestead/internal/supervisor"
	supservices "github.com/homelab-ops/homestead/internal/supervisor/services"
	"github.com/homelab-ops/homestead/internal/system"
	"github.com/homelab-ops/homestead/internal/vm"
	ws "github.com/homelab-ops/homestead/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Int("managed_units", len(cfg.Services.Units)).
		Int("compose_stacks", len(cfg.Compose.Stacks)).
		Msg("Starting Homestead")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	alertStore, err := alerts.OpenStore(cfg.Alerts.StorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open alert store")
	}
	defer func() {
		if err := alertStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert store")
		}
	}()

	bus, err := events.NewBus(&cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Hub and dispatcher form the overlay push path. A reconnecting overlay
	// client gets the recent alert history replayed.
	hub := ws.NewHub()
	dispatcher := alerts.NewDispatcher(hub, alertStore,
		cfg.Alerts.DisplayDuration, cfg.Alerts.QueueSize, cfg.Alerts.ReplayCount)
	hub.SetOnRegister(dispatcher.ReplayTo)

	runner := system.NewExecRunner()
	serviceMgr := services.NewManager(&cfg.Services, runner)
	vmMgr := vm.NewManager(&cfg.VM, runner)
	stackMgr := compose.NewManager(&cfg.Compose, runner)

	// Song request alerts ride the bus so JetStream durability applies to
	// bot-generated alerts the same as webhook ones.
	songs := streambot.NewSongs(&cfg.StreamBot, db, hub, events.NewAlertPublisher(bus))
	announcer := streambot.NewAnnouncer(&cfg.StreamBot, db, hub)
	executor := deploy.NewExecutor(&cfg.Deploy, db, hub, deploy.ScriptStages(&cfg.Deploy, runner))

	var updater *dns.Updater
	if cfg.DynDNS.Enabled {
		updater = dns.NewUpdater(&cfg.DynDNS, db, dns.NewIPLookup(cfg.DynDNS.LookupURLs), hub)
		updater.SetPublisher(bus)
	}

	authn, err := auth.NewAuthenticator(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	handlers := api.NewHandlers(api.Deps{
		Config:     cfg,
		DB:         db,
		Hub:        hub,
		Auth:       authn,
		Services:   serviceMgr,
		VMs:        vmMgr,
		Stacks:     stackMgr,
		Songs:      songs,
		Announcer:  announcer,
		Deploys:    executor,
		DynDNS:     updater,
		Dispatcher: dispatcher,
		AlertStore: alertStore,
		Bus:        bus,
	})
	defer handlers.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers).Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Messaging layer: hub first so everything downstream can broadcast.
	tree.AddMessagingService(supservices.NewRunnerService("websocket-hub", hub))
	tree.AddMessagingService(supservices.NewRunnerService("alert-dispatcher", dispatcher))
	tree.AddMessagingService(supservices.NewRunnerService("alert-relay", events.NewRelay(bus, dispatcher)))
	if cfg.StreamBot.AnnouncerEnabled {
		tree.AddMessagingService(supservices.NewRunnerService("announcer", announcer))
	}

	// Data layer: background workers that write history.
	if cfg.Deploy.Enabled {
		tree.AddDataService(supservices.NewRunnerService("deploy-executor", executor))
	}
	if updater != nil {
		tree.AddDataService(supservices.NewRunnerService("dyndns-updater", updater))
	}

	tree.AddAPIService(supservices.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Homestead stopped gracefully")
}
