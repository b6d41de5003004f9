// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/models"
	"github.com/homelab-ops/homestead/internal/system"
)

// ScriptStages builds a stage set that runs `<workdir>/<stage>.sh <name>
// <target>` for each pipeline stage. Stages without a script are reported
// as skipped, so a deployment directory only defines the stages it needs.
func ScriptStages(cfg *config.DeployConfig, runner system.Runner) Stages {
	stages := make(Stages, len(models.DeployStages))
	for _, stage := range models.DeployStages {
		stage := stage
		stages[stage] = func(ctx context.Context, d *models.Deployment) (string, error) {
			script := filepath.Join(cfg.WorkDir, stage+".sh")
			if _, err := os.Stat(script); err != nil {
				if os.IsNotExist(err) {
					return fmt.Sprintf("no %s.sh in %s, skipped", stage, cfg.WorkDir), nil
				}
				return "", fmt.Errorf("stat %s: %w", script, err)
			}

			out, err := runner.Run(ctx, script, d.Name, d.Target)
			if err != nil {
				return "", err
			}
			return lastLine(out), nil
		}
	}
	return stages
}

// lastLine returns the final non-empty output line, which deploy scripts
// use for their human-readable result summary.
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
