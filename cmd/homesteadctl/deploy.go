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

var deployTarget string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Submit and inspect deployments",
}

var deployListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent deployments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/deployments/")
		})
	},
}

var deploySubmitCmd = &cobra.Command{
	Use:   "submit <name>",
	Short: "Queue a new deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			body := map[string]string{"name": args[0]}
			if deployTarget != "" {
				body["target"] = deployTarget
			}
			return c.post(ctx, "/deployments/", body)
		})
	},
}

var deployStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show a deployment with its steps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/deployments/"+url.PathEscape(args[0]))
		})
	},
}

var deployCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending or running deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.post(ctx, "/deployments/"+url.PathEscape(args[0])+"/cancel", nil)
		})
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.AddCommand(deployListCmd)
	deploySubmitCmd.Flags().StringVar(&deployTarget, "target", "", "deploy target host or environment")
	deployCmd.AddCommand(deploySubmitCmd)
	deployCmd.AddCommand(deployStatusCmd)
	deployCmd.AddCommand(deployCancelCmd)
}
