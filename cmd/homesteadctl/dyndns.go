// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package main

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var dyndnsCmd = &cobra.Command{
	Use:   "dyndns",
	Short: "Inspect and trigger the dynamic DNS updater",
}

var dyndnsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current public IP and recent checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/dyndns/status")
		})
	},
}

var dyndnsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an immediate IP check and update",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.post(ctx, "/dyndns/check", nil)
		})
	},
}

func init() {
	rootCmd.AddCommand(dyndnsCmd)
	dyndnsCmd.AddCommand(dyndnsStatusCmd)
	dyndnsCmd.AddCommand(dyndnsCheckCmd)
}
