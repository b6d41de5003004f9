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

var stacksCmd = &cobra.Command{
	Use:   "stacks",
	Short: "Manage docker-compose stacks",
}

var stacksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured stacks with container state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/stacks/")
		})
	},
}

var stacksStatusCmd = &cobra.Command{
	Use:   "status <stack>",
	Short: "Show one stack's containers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/stacks/"+url.PathEscape(args[0]))
		})
	},
}

func stackVerbCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <stack>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
				return c.post(ctx, "/stacks/"+url.PathEscape(args[0])+"/"+verb, nil)
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(stacksCmd)
	stacksCmd.AddCommand(stacksListCmd)
	stacksCmd.AddCommand(stacksStatusCmd)
	stacksCmd.AddCommand(stackVerbCmd("up", "Bring a stack up"))
	stacksCmd.AddCommand(stackVerbCmd("down", "Take a stack down"))
	stacksCmd.AddCommand(stackVerbCmd("restart", "Restart a stack"))
}
