// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package main

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Manage allow-listed systemd units",
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show status of all managed units",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/services/")
		})
	},
}

var servicesStatusCmd = &cobra.Command{
	Use:   "status <unit>",
	Short: "Show status of one unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/services/"+url.PathEscape(args[0]))
		})
	},
}

func serviceVerbCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <unit>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
				return c.post(ctx, "/services/"+url.PathEscape(args[0])+"/"+verb, nil)
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(servicesCmd)
	servicesCmd.AddCommand(servicesListCmd)
	servicesCmd.AddCommand(servicesStatusCmd)
	servicesCmd.AddCommand(serviceVerbCmd("start", "Start a unit"))
	servicesCmd.AddCommand(serviceVerbCmd("stop", "Stop a unit"))
	servicesCmd.AddCommand(serviceVerbCmd("restart", "Restart a unit"))
	servicesCmd.AddCommand(serviceVerbCmd("wait", "Wait until a unit is active"))
}
