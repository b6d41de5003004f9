// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package vm controls libvirt domains through virsh.
package vm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/system"
)

// Domain states reported by virsh.
const (
	StateRunning = "running"
	StateShutOff = "shut off"
	StatePaused  = "paused"
)

// ErrVMNotFound is returned when a domain name matches nothing.
var ErrVMNotFound = errors.New("vm not found")

// ErrWaitTimeout is returned when a domain does not reach the wanted state
// in time.
var ErrWaitTimeout = errors.New("timed out waiting for vm state")

// WaitTimeoutError wraps ErrWaitTimeout with the last state the domain
// reported before the deadline.
type WaitTimeoutError struct {
	Name      string
	Want      string
	LastState string
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%v: %s did not reach %q (last state %s)", ErrWaitTimeout, e.Name, e.Want, e.LastState)
}

func (e *WaitTimeoutError) Unwrap() error { return ErrWaitTimeout }

// Manager wraps virsh for a single libvirt connection.
type Manager struct {
	cfg    *config.VMConfig
	runner system.Runner
	logger zerolog.Logger
}

// NewManager creates a libvirt domain manager.
func NewManager(cfg *config.VMConfig, runner system.Runner) *Manager {
	return &Manager{
		cfg:    cfg,
		runner: runner,
		logger: logging.Logger().With().Str("component", "vm").Logger(),
	}
}

func (m *Manager) virsh(ctx context.Context, args ...string) ([]byte, error) {
	full := args
	if m.cfg.ConnectURI != "" {
		full = append([]string{"-c", m.cfg.ConnectURI}, args...)
	}
	return m.runner.Run(ctx, "virsh", full...)
}

// List returns all defined domains with their states.
func (m *Manager) List(ctx context.Context) ([]*models.VMStatus, error) {
	out, err := m.virsh(ctx, "list", "--all")
	if err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}
	return parseList(string(out)), nil
}

// Status returns one domain's state.
func (m *Manager) Status(ctx context.Context, name string) (*models.VMStatus, error) {
	vms, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, vm := range vms {
		if vm.Name == name {
			return vm, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVMNotFound, name)
}

// Start boots a domain.
func (m *Manager) Start(ctx context.Context, name string) error {
	if _, err := m.virsh(ctx, "start", name); err != nil {
		return fmt.Errorf("start vm %s: %w", name, err)
	}
	m.logger.Info().Str("vm", name).Msg("vm started")
	return nil
}

// Shutdown sends an ACPI shutdown request to a domain. The guest decides
// when (and whether) to comply.
func (m *Manager) Shutdown(ctx context.Context, name string) error {
	if _, err := m.virsh(ctx, "shutdown", name); err != nil {
		return fmt.Errorf("shutdown vm %s: %w", name, err)
	}
	m.logger.Info().Str("vm", name).Msg("vm shutdown requested")
	return nil
}

// Destroy hard-stops a domain. Equivalent to pulling the power cord.
func (m *Manager) Destroy(ctx context.Context, name string) error {
	if _, err := m.virsh(ctx, "destroy", name); err != nil {
		return fmt.Errorf("destroy vm %s: %w", name, err)
	}
	m.logger.Warn().Str("vm", name).Msg("vm destroyed")
	return nil
}

// WaitForState polls a domain until it reaches the wanted state or the
// configured timeout expires.
func (m *Manager) WaitForState(ctx context.Context, name, want string) error {
	interval := m.cfg.WaitInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := m.cfg.WaitTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastState := "unknown"
	for {
		status, err := m.Status(ctx, name)
		if err == nil {
			lastState = status.State
			if status.State == want {
				m.logger.Info().Str("vm", name).Str("state", want).Msg("vm reached state")
				return nil
			}
		} else if !errors.Is(err, ErrVMNotFound) && ctx.Err() == nil {
			m.logger.Debug().Err(err).Str("vm", name).Msg("vm state poll failed")
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &WaitTimeoutError{Name: name, Want: want, LastState: lastState}
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// parseList parses `virsh list --all` table output. The state column can
// contain spaces ("shut off"), so the line is split at most twice.
func parseList(out string) []*models.VMStatus {
	var vms []*models.VMStatus
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Id") || strings.HasPrefix(line, "---") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		vm := &models.VMStatus{
			Name:  fields[1],
			State: strings.Join(fields[2:], " "),
		}
		if id, err := strconv.Atoi(fields[0]); err == nil {
			vm.ID = id
		}
		vms = append(vms, vm)
	}
	return vms
}
