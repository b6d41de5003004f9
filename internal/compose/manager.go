// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package compose controls docker compose stacks registered in the config.
package compose

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/system"
)

// ErrStackNotFound is returned for stack names missing from the registry.
var ErrStackNotFound = errors.New("stack not found")

// ErrWaitTimeout is returned when a stack's wait_for endpoints do not come
// up in time.
var ErrWaitTimeout = errors.New("timed out waiting for stack endpoints")

// Dialer opens TCP connections for endpoint probes. Swapped in tests.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Manager runs docker compose for the registered stacks.
type Manager struct {
	cfg    *config.ComposeConfig
	runner system.Runner
	dial   Dialer
	logger zerolog.Logger
}

// NewManager creates a compose stack manager.
func NewManager(cfg *config.ComposeConfig, runner system.Runner) *Manager {
	var d net.Dialer
	return &Manager{
		cfg:    cfg,
		runner: runner,
		dial:   d.DialContext,
		logger: logging.Logger().With().Str("component", "compose").Logger(),
	}
}

// Stacks returns the registered stack names.
func (m *Manager) Stacks() []string {
	names := make([]string, 0, len(m.cfg.Stacks))
	for _, s := range m.cfg.Stacks {
		names = append(names, s.Name)
	}
	return names
}

func (m *Manager) stack(name string) (*config.StackConfig, error) {
	s, ok := m.cfg.Stack(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}
	return &s, nil
}

// Up starts a stack detached and then waits for its wait_for endpoints.
func (m *Manager) Up(ctx context.Context, name string) error {
	s, err := m.stack(name)
	if err != nil {
		return err
	}

	if _, err := m.compose(ctx, s, "up", "-d", "--remove-orphans"); err != nil {
		return fmt.Errorf("up stack %s: %w", name, err)
	}
	m.logger.Info().Str("stack", name).Msg("stack started")

	return m.waitForEndpoints(ctx, s)
}

// Down stops and removes a stack's containers.
func (m *Manager) Down(ctx context.Context, name string) error {
	s, err := m.stack(name)
	if err != nil {
		return err
	}

	if _, err := m.compose(ctx, s, "down"); err != nil {
		return fmt.Errorf("down stack %s: %w", name, err)
	}
	m.logger.Info().Str("stack", name).Msg("stack stopped")
	return nil
}

// Restart restarts a stack's containers and waits for its endpoints.
func (m *Manager) Restart(ctx context.Context, name string) error {
	s, err := m.stack(name)
	if err != nil {
		return err
	}

	if _, err := m.compose(ctx, s, "restart"); err != nil {
		return fmt.Errorf("restart stack %s: %w", name, err)
	}
	m.logger.Info().Str("stack", name).Msg("stack restarted")

	return m.waitForEndpoints(ctx, s)
}

// composePS matches the per-line JSON emitted by `docker compose ps
// --format json`.
type composePS struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Status  string `json:"Status"`
	Health  string `json:"Health"`
}

// Status returns the container listing of one stack.
func (m *Manager) Status(ctx context.Context, name string) (*models.StackStatus, error) {
	s, err := m.stack(name)
	if err != nil {
		return nil, err
	}

	out, err := m.compose(ctx, s, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("ps stack %s: %w", name, err)
	}

	status := &models.StackStatus{Name: name}
	// Output is newline-delimited JSON, one object per container.
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ps composePS
		if err := json.Unmarshal([]byte(line), &ps); err != nil {
			return nil, fmt.Errorf("parse compose ps output: %w", err)
		}
		status.Containers = append(status.Containers, models.ComposeContainer{
			Name:    ps.Name,
			Service: ps.Service,
			State:   ps.State,
			Status:  ps.Status,
			Health:  ps.Health,
		})
		status.Total++
		if ps.State == "running" {
			status.Running++
		}
	}
	return status, nil
}

// StatusAll returns the listing of every registered stack. Stacks that fail
// to query are returned with an empty container list.
func (m *Manager) StatusAll(ctx context.Context) ([]*models.StackStatus, error) {
	statuses := make([]*models.StackStatus, 0, len(m.cfg.Stacks))
	for _, s := range m.cfg.Stacks {
		status, err := m.Status(ctx, s.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn().Err(err).Str("stack", s.Name).Msg("failed to query stack")
			status = &models.StackStatus{Name: s.Name}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (m *Manager) compose(ctx context.Context, s *config.StackConfig, args ...string) ([]byte, error) {
	full := append([]string{"compose", "--project-directory", s.Dir}, args...)
	return m.runner.Run(ctx, "docker", full...)
}

// waitForEndpoints probes each wait_for host:port until it accepts a TCP
// connection or the configured timeout expires.
func (m *Manager) waitForEndpoints(ctx context.Context, s *config.StackConfig) error {
	if len(s.WaitFor) == 0 {
		return nil
	}

	interval := m.cfg.WaitInterval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := m.cfg.WaitTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pending := make(map[string]bool, len(s.WaitFor))
	for _, addr := range s.WaitFor {
		pending[addr] = true
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for addr := range pending {
			probeCtx, probeCancel := context.WithTimeout(ctx, interval)
			conn, err := m.dial(probeCtx, "tcp", addr)
			probeCancel()
			if err == nil {
				conn.Close()
				delete(pending, addr)
				m.logger.Debug().Str("stack", s.Name).Str("endpoint", addr).Msg("endpoint up")
			}
		}
		if len(pending) == 0 {
			m.logger.Info().Str("stack", s.Name).Msg("all stack endpoints up")
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				remaining := make([]string, 0, len(pending))
				for addr := range pending {
					remaining = append(remaining, addr)
				}
				return fmt.Errorf("%w: %s: %s", ErrWaitTimeout, s.Name, strings.Join(remaining, ", "))
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
