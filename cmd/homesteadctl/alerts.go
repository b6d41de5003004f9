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

var (
	alertUsername string
	alertPlatform string
	alertMessage  string
	alertAmount   int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and fire overlay alerts",
}

var alertsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recently dispatched alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/alerts/recent")
		})
	},
}

var alertsTestCmd = &cobra.Command{
	Use:   "test <kind>",
	Short: "Publish a test alert through the full pipeline",
	Long:  "Kinds: follow, subscription, raid, cheer, song_request, announcement.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			body := map[string]any{
				"kind":     args[0],
				"username": alertUsername,
			}
			if alertPlatform != "" {
				body["platform"] = alertPlatform
			}
			if alertMessage != "" {
				body["message"] = alertMessage
			}
			if alertAmount > 0 {
				body["amount"] = alertAmount
			}
			return c.post(ctx, "/alerts/test", body)
		})
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsRecentCmd)
	alertsTestCmd.Flags().StringVar(&alertUsername, "username", "testuser", "alert username")
	alertsTestCmd.Flags().StringVar(&alertPlatform, "platform", "", "source platform (twitch, youtube, kick)")
	alertsTestCmd.Flags().StringVar(&alertMessage, "message", "", "alert message")
	alertsTestCmd.Flags().IntVar(&alertAmount, "amount", 0, "cheer or subscription amount")
	alertsCmd.AddCommand(alertsTestCmd)
}
