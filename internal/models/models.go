// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package models defines the data types shared between the database layer,
// the HTTP API, and the background services.
package models

import "time"

// Song request lifecycle states.
const (
	SongStatusPending = "pending"
	SongStatusPlaying = "playing"
	SongStatusPlayed  = "played"
	SongStatusSkipped = "skipped"
)

// SongRequest is a viewer song request in the stream-bot queue.
type SongRequest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist,omitempty"`
	URL         string     `json:"url,omitempty"`
	RequestedBy string     `json:"requested_by"`
	Platform    string     `json:"platform,omitempty"`
	Status      string     `json:"status"`
	Position    int        `json:"position,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	PlayedAt    *time.Time `json:"played_at,omitempty"`
}

// Announcement is a rotating chat message posted by the stream-bot.
type Announcement struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clip is a saved stream highlight.
type Clip struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Game      string    `json:"game,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Restream platforms.
const (
	PlatformTwitch  = "twitch"
	PlatformYouTube = "youtube"
	PlatformKick    = "kick"
)

// RestreamTarget is one RTMP output of the restream fan-out. StreamKey is
// write-only: API responses carry a redacted placeholder instead.
type RestreamTarget struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	RTMPURL   string    `json:"rtmp_url"`
	StreamKey string    `json:"stream_key,omitempty"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DNSRecord is a managed record in the homelab zone.
type DNSRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	TTL       int       `json:"ttl"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DynDNSCheck records one public-IP poll of the dynamic DNS updater.
type DynDNSCheck struct {
	ID        string    `json:"id"`
	CheckedAt time.Time `json:"checked_at"`
	PublicIP  string    `json:"public_ip,omitempty"`
	Changed   bool      `json:"changed"`
	Updated   bool      `json:"updated"`
	Error     string    `json:"error,omitempty"`
}

// Deployment lifecycle states.
const (
	DeployStatusPending   = "pending"
	DeployStatusRunning   = "running"
	DeployStatusSucceeded = "succeeded"
	DeployStatusFailed    = "failed"
	DeployStatusCanceled  = "canceled"
)

// Deployment pipeline stages, in execution order.
var DeployStages = []string{"validate", "provision", "configure", "start", "verify"}

// Deployment is one run of the deployment pipeline.
type Deployment struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Target       string     `json:"target,omitempty"`
	Status       string     `json:"status"`
	CurrentStage string     `json:"current_stage,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// DeploymentStep is the persisted record of one pipeline stage.
type DeploymentStep struct {
	ID           string     `json:"id"`
	DeploymentID string     `json:"deployment_id"`
	Stage        string     `json:"stage"`
	Status       string     `json:"status"`
	Message      string     `json:"message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// ServiceStatus is the dashboard view of a systemd unit.
type ServiceStatus struct {
	Unit        string `json:"unit"`
	Active      string `json:"active"`
	Sub         string `json:"sub,omitempty"`
	Description string `json:"description,omitempty"`
}

// VMStatus is the dashboard view of a libvirt domain.
type VMStatus struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// ComposeContainer is one container of a compose stack as reported by
// docker compose ps.
type ComposeContainer struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Health  string `json:"health,omitempty"`
}

// StackStatus is the aggregate view of a compose stack.
type StackStatus struct {
	Name       string             `json:"name"`
	Running    int                `json:"running"`
	Total      int                `json:"total"`
	Containers []ComposeContainer `json:"containers"`
}
