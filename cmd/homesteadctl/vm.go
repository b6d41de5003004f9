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

var vmWaitState string

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Manage libvirt virtual machines",
}

var vmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all domains with state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/vms/")
		})
	},
}

var vmStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show one domain's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			return c.get(ctx, "/vms/"+url.PathEscape(args[0]))
		})
	},
}

var vmWaitCmd = &cobra.Command{
	Use:   "wait <name>",
	Short: "Wait until a domain reaches a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
			body := map[string]string{}
			if vmWaitState != "" {
				body["state"] = vmWaitState
			}
			return c.post(ctx, "/vms/"+url.PathEscape(args[0])+"/wait", body)
		})
	},
}

func vmVerbCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAndPrint(func(ctx context.Context, c *apiClient) (json.RawMessage, error) {
				return c.post(ctx, "/vms/"+url.PathEscape(args[0])+"/"+verb, nil)
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(vmCmd)
	vmCmd.AddCommand(vmListCmd)
	vmCmd.AddCommand(vmStatusCmd)
	vmCmd.AddCommand(vmVerbCmd("start", "Start a domain"))
	vmCmd.AddCommand(vmVerbCmd("shutdown", "Gracefully shut a domain down"))
	vmCmd.AddCommand(vmVerbCmd("destroy", "Force-stop a domain"))
	vmWaitCmd.Flags().StringVar(&vmWaitState, "state", "running", "target state")
	vmCmd.AddCommand(vmWaitCmd)
}
