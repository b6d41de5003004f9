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
	songRequestedBy string
	songPlatform    string
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "Work the stream song request queue",
}

var songsQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show pending requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/songs/queue")
		})
	},
}

var songsRequestCmd = &cobra.Command{
	Use:   "request <title>",
	Short: "Queue a song request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			body := map[string]string{
				"title":        args[0],
				"requested_by": songRequestedBy,
			}
			if songPlatform != "" {
				body["platform"] = songPlatform
			}
			return c.post(ctx, "/songs/requests", body)
		})
	},
}

var songsPlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Mark the next request as playing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.post(ctx, "/songs/play", nil)
		})
	},
}

var songsSkipCmd = &cobra.Command{
	Use:   "skip [id]",
	Short: "Skip the oldest pending request, or one by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			var body any
			if len(args) == 1 {
				body = map[string]string{"id": args[0]}
			}
			return c.post(ctx, "/songs/skip", body)
		})
	},
}

var songsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every pending request",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.post(ctx, "/songs/clear", nil)
		})
	},
}

var songsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show played and skipped requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/songs/history")
		})
	},
}

func init() {
	rootCmd.AddCommand(songsCmd)
	songsCmd.AddCommand(songsQueueCmd)
	songsRequestCmd.Flags().StringVar(&songRequestedBy, "by", "console", "requesting user")
	songsRequestCmd.Flags().StringVar(&songPlatform, "platform", "", "source platform (twitch, youtube, kick)")
	songsCmd.AddCommand(songsRequestCmd)
	songsCmd.AddCommand(songsPlayCmd)
	songsCmd.AddCommand(songsSkipCmd)
	songsCmd.AddCommand(songsClearCmd)
	songsCmd.AddCommand(songsHistoryCmd)
}
