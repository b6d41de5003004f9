// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package dns

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/database"
	"github.com/homelab-ops/homestead/internal/events"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/websocket"
)

// Store is the slice of the database the updater needs.
type Store interface {
	GetDNSRecord(ctx context.Context, name, recordType string) (*models.DNSRecord, error)
	UpsertDNSRecord(ctx context.Context, r *models.DNSRecord) error
	InsertDynDNSCheck(ctx context.Context, c *models.DynDNSCheck) error
	PruneDynDNSChecks(ctx context.Context, cutoff time.Time) (int64, error)
}

// IPSource resolves the current public IP.
type IPSource interface {
	PublicIP(ctx context.Context) (string, error)
}

// Publisher puts IP-change notifications on the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *events.Event) error
}

// checkRetention bounds the dyndns_checks history.
const checkRetention = 30 * 24 * time.Hour

// Updater keeps the configured A record pointed at the real WAN address.
// Consumer connections change IP without warning, so it polls a set of
// public IP lookup services and rewrites the record when the answer moves.
type Updater struct {
	cfg     *config.DynDNSConfig
	store   Store
	source  IPSource
	hub     *websocket.Hub
	bus     Publisher
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewUpdater creates a dynamic DNS updater. hub may be nil.
func NewUpdater(cfg *config.DynDNSConfig, store Store, source IPSource, hub *websocket.Hub) *Updater {
	minInterval := cfg.MinUpdateInterval
	if minInterval <= 0 {
		minInterval = time.Minute
	}
	return &Updater{
		cfg:    cfg,
		store:  store,
		source: source,
		hub:    hub,
		// Registrar APIs rate-limit aggressively; updates are paced even
		// if the detected IP flaps.
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:  logging.Logger().With().Str("component", "dyndns").Logger(),
	}
}

// SetPublisher attaches the event bus. Updates made before it is set are
// only broadcast to the hub.
func (u *Updater) SetPublisher(bus Publisher) {
	u.bus = bus
}

// RunWithContext polls until the context is canceled. The first check runs
// immediately so a restart repairs a stale record without waiting a full
// interval. Designed for suture supervision.
func (u *Updater) RunWithContext(ctx context.Context) error {
	interval := u.cfg.CheckInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	u.logger.Info().
		Str("record", u.cfg.Record).
		Dur("check_interval", interval).
		Msg("dyndns updater started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.CheckOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			u.logger.Info().Msg("dyndns updater stopped")
			return ctx.Err()
		case <-ticker.C:
			u.CheckOnce(ctx)
		}
	}
}

// CheckOnce performs a single lookup-compare-update cycle and records the
// outcome in the check history.
func (u *Updater) CheckOnce(ctx context.Context) *models.DynDNSCheck {
	check := &models.DynDNSCheck{CheckedAt: time.Now().UTC()}

	ip, err := u.source.PublicIP(ctx)
	if err != nil {
		check.Error = err.Error()
		metrics.DynDNSChecks.WithLabelValues("error").Inc()
		u.logger.Warn().Err(err).Msg("public IP lookup failed")
		u.record(ctx, check)
		return check
	}
	check.PublicIP = ip

	current, err := u.store.GetDNSRecord(ctx, u.cfg.Record, recordTypeFor(ip))
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		check.Error = err.Error()
		u.record(ctx, check)
		return check
	}

	if current != nil && current.Value == ip {
		metrics.DynDNSChecks.WithLabelValues("unchanged").Inc()
		u.record(ctx, check)
		return check
	}
	check.Changed = true

	if !u.limiter.Allow() {
		metrics.DynDNSChecks.WithLabelValues("deferred").Inc()
		u.logger.Info().Str("ip", ip).Msg("IP changed but update is rate-paced, deferring")
		u.record(ctx, check)
		return check
	}

	rec := &models.DNSRecord{
		Name:  u.cfg.Record,
		Type:  recordTypeFor(ip),
		Value: ip,
		TTL:   u.cfg.TTL,
	}
	if err := u.store.UpsertDNSRecord(ctx, rec); err != nil {
		check.Error = err.Error()
		u.logger.Error().Err(err).Str("ip", ip).Msg("failed to update DNS record")
		u.record(ctx, check)
		return check
	}
	check.Updated = true
	metrics.DynDNSChecks.WithLabelValues("updated").Inc()

	previous := ""
	if current != nil {
		previous = current.Value
	}
	u.logger.Info().
		Str("record", u.cfg.Record).
		Str("previous", previous).
		Str("current", ip).
		Msg("DNS record updated")

	change := map[string]string{
		"record":   u.cfg.Record,
		"previous": previous,
		"current":  ip,
	}
	if u.hub != nil {
		u.hub.Broadcast(websocket.MessageTypeDynDNSUpdate, change)
	}
	if u.bus != nil {
		if err := u.bus.Publish(ctx, events.TopicDynDNS, events.NewEvent("ip_changed", change)); err != nil {
			u.logger.Warn().Err(err).Msg("failed to publish IP change event")
		}
	}

	u.record(ctx, check)
	return check
}

func (u *Updater) record(ctx context.Context, check *models.DynDNSCheck) {
	if err := u.store.InsertDynDNSCheck(ctx, check); err != nil {
		u.logger.Error().Err(err).Msg("failed to record dyndns check")
	}
	if _, err := u.store.PruneDynDNSChecks(ctx, time.Now().UTC().Add(-checkRetention)); err != nil {
		u.logger.Debug().Err(err).Msg("failed to prune dyndns history")
	}
}

func recordTypeFor(ip string) string {
	for i := 0; i < len(ip); i++ {
		if ip[i] == ':' {
			return "AAAA"
		}
	}
	return "A"
}
