// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package api provides the HTTP surface of the Homestead server: the REST
// API under /api/v1, the WebSocket endpoint for overlays and dashboards, and
// the Prometheus metrics endpoint.
//
// All JSON responses use a single envelope (success/data/error/meta); see
// response.go. Routing is Chi with go-chi/cors and go-chi/httprate.
package api
