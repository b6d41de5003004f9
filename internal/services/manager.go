// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package services controls systemd units through systemctl. Only units on
// the configured allow-list can be touched; everything else is rejected
// before any command runs.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/system"
)

// ErrUnitNotAllowed is returned for units outside the allow-list.
var ErrUnitNotAllowed = errors.New("unit is not on the allow-list")

// ErrWaitTimeout is returned when a unit does not become active in time.
var ErrWaitTimeout = errors.New("timed out waiting for unit to become active")

// WaitTimeoutError wraps ErrWaitTimeout with the last state the unit
// reported before the deadline.
type WaitTimeoutError struct {
	Unit      string
	LastState string
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%v: %s (last state %s)", ErrWaitTimeout, e.Unit, e.LastState)
}

func (e *WaitTimeoutError) Unwrap() error { return ErrWaitTimeout }

// Manager wraps systemctl for the allow-listed units.
type Manager struct {
	cfg    *config.ServicesConfig
	runner system.Runner
	logger zerolog.Logger
}

// NewManager creates a systemd unit manager.
func NewManager(cfg *config.ServicesConfig, runner system.Runner) *Manager {
	return &Manager{
		cfg:    cfg,
		runner: runner,
		logger: logging.Logger().With().Str("component", "services").Logger(),
	}
}

// Units returns the allow-listed unit names.
func (m *Manager) Units() []string {
	return m.cfg.Units
}

// Status returns the state of one unit.
func (m *Manager) Status(ctx context.Context, unit string) (*models.ServiceStatus, error) {
	if !m.cfg.UnitAllowed(unit) {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotAllowed, unit)
	}

	out, err := m.runner.Run(ctx, "systemctl", "show", unit,
		"--property=ActiveState,SubState,Description", "--no-page")
	if err != nil {
		return nil, fmt.Errorf("query unit %s: %w", unit, err)
	}

	status := &models.ServiceStatus{Unit: unit}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "ActiveState":
			status.Active = value
		case "SubState":
			status.Sub = value
		case "Description":
			status.Description = value
		}
	}
	return status, nil
}

// StatusAll returns the state of every allow-listed unit. Units that fail to
// query are reported with Active set to "unknown" rather than failing the
// whole listing.
func (m *Manager) StatusAll(ctx context.Context) ([]*models.ServiceStatus, error) {
	statuses := make([]*models.ServiceStatus, 0, len(m.cfg.Units))
	for _, unit := range m.cfg.Units {
		status, err := m.Status(ctx, unit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn().Err(err).Str("unit", unit).Msg("failed to query unit")
			status = &models.ServiceStatus{Unit: unit, Active: "unknown"}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Start starts a unit.
func (m *Manager) Start(ctx context.Context, unit string) error {
	return m.control(ctx, "start", unit)
}

// Stop stops a unit.
func (m *Manager) Stop(ctx context.Context, unit string) error {
	return m.control(ctx, "stop", unit)
}

// Restart restarts a unit.
func (m *Manager) Restart(ctx context.Context, unit string) error {
	return m.control(ctx, "restart", unit)
}

func (m *Manager) control(ctx context.Context, verb, unit string) error {
	if !m.cfg.UnitAllowed(unit) {
		return fmt.Errorf("%w: %s", ErrUnitNotAllowed, unit)
	}

	if _, err := m.runner.Run(ctx, "systemctl", verb, unit); err != nil {
		return fmt.Errorf("%s unit %s: %w", verb, unit, err)
	}
	m.logger.Info().Str("unit", unit).Str("action", verb).Msg("unit state changed")
	return nil
}

// IsActive reports whether a unit is currently active.
func (m *Manager) IsActive(ctx context.Context, unit string) (bool, error) {
	if !m.cfg.UnitAllowed(unit) {
		return false, fmt.Errorf("%w: %s", ErrUnitNotAllowed, unit)
	}
	state, err := m.activeState(ctx, unit)
	return state == "active", err
}

// activeState returns the `systemctl is-active` answer for a unit.
func (m *Manager) activeState(ctx context.Context, unit string) (string, error) {
	out, err := m.runner.Run(ctx, "systemctl", "is-active", unit)
	state := strings.TrimSpace(string(out))
	// is-active exits non-zero for inactive units; that is a state, not a
	// failure, as long as we got output.
	if err != nil && state == "" && !strings.Contains(err.Error(), "inactive") &&
		!strings.Contains(err.Error(), "failed") && !strings.Contains(err.Error(), "activating") {
		return "", fmt.Errorf("check unit %s: %w", unit, err)
	}
	if state == "" {
		state = "unknown"
	}
	return state, nil
}

// WaitForActive polls a unit until it reports active or the configured wait
// timeout expires.
func (m *Manager) WaitForActive(ctx context.Context, unit string) error {
	if !m.cfg.UnitAllowed(unit) {
		return fmt.Errorf("%w: %s", ErrUnitNotAllowed, unit)
	}

	interval := m.cfg.WaitInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := m.cfg.WaitTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastState := "unknown"
	for {
		state, err := m.activeState(ctx, unit)
		if err == nil {
			lastState = state
			if state == "active" {
				m.logger.Info().Str("unit", unit).Msg("unit became active")
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &WaitTimeoutError{Unit: unit, LastState: lastState}
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
