// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package main is the homesteadctl operator CLI. It replaces the pile of
// start/stop shell scripts with subcommands that call the Homestead server's
// REST API.
package main

import "os"

func main() {
	os.Exit(Execute())
}
