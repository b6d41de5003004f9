// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package system runs host commands (systemctl, virsh, docker) behind an
// interface so the service packages can be tested without a real host.
package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
)

// Runner executes a host command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. A zero value uses no default
// timeout; callers pass deadlines through ctx.
type ExecRunner struct {
	// Timeout caps each command when the caller's context has no deadline.
	Timeout time.Duration
}

// NewExecRunner returns a runner with a sane per-command timeout.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Timeout: 60 * time.Second}
}

// Run executes the command and returns stdout. On failure the error includes
// trimmed stderr, which is where systemctl and virsh put their diagnostics.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.RecordHostCommand(name, err == nil, time.Since(start))
	logging.Debug().
		Str("command", name).
		Strs("args", args).
		Dur("elapsed", time.Since(start)).
		Bool("success", err == nil).
		Msg("host command executed")

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}
