// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
	timeout   time.Duration
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "homesteadctl",
	Short: "Operator CLI for the Homestead server",
	Long: `homesteadctl drives the Homestead REST API: systemd units, libvirt
VMs, compose stacks, dynamic DNS, deployments, and the stream-bot.

The server address comes from --server or HOMESTEAD_SERVER; an API token
from --token or HOMESTEAD_TOKEN.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(logLevel)
	},
	Version:          "v1.0.0",
	SilenceUsage:     true,
	TraverseChildren: true,
}

// Execute runs the root command; the return value becomes the process exit
// code.
func Execute() int {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s",
		envOr("HOMESTEAD_SERVER", "http://127.0.0.1:8710"), "Homestead server URL")
	rootCmd.PersistentFlags().StringVar(&authToken,
		"token", os.Getenv("HOMESTEAD_TOKEN"), "API bearer token")
	rootCmd.PersistentFlags().DurationVar(&timeout,
		"timeout", 2*time.Minute, "request timeout (wait commands can run long)")
	rootCmd.PersistentFlags().StringVarP(&logLevel,
		"log-level", "l", "info", "log level")

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func initLogger(level string) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
