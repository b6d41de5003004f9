// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package services

import "context"

// ContextRunner matches components exposing a RunWithContext method: the
// WebSocket hub, the alert dispatcher, the DynDNS updater, the announcement
// rotator, and the deployment worker all implement it.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService wraps any ContextRunner as a named suture service.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService creates a supervised wrapper around a ContextRunner.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service by delegating to the runner. The runner
// returns ctx.Err() on normal shutdown.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *RunnerService) String() string {
	return s.name
}
