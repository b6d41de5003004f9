// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package alerts sequences stream alerts (follows, subscriptions, raids,
// cheers, song requests) onto the overlay one at a time and persists them
// for replay when an overlay reconnects.
package alerts

import (
	"time"

	"github.com/google/uuid"
)

// Alert kinds accepted by the dispatcher.
const (
	KindFollow       = "follow"
	KindSubscription = "subscription"
	KindRaid         = "raid"
	KindCheer        = "cheer"
	KindSongRequest  = "song_request"
	KindAnnouncement = "announcement"
)

// validKinds guards the dispatcher against arbitrary payloads from the
// test endpoint.
var validKinds = map[string]bool{
	KindFollow:       true,
	KindSubscription: true,
	KindRaid:         true,
	KindCheer:        true,
	KindSongRequest:  true,
	KindAnnouncement: true,
}

// KnownKind reports whether kind is a recognized alert kind.
func KnownKind(kind string) bool {
	return validKinds[kind]
}

// Alert is a single overlay alert event.
type Alert struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Username  string    `json:"username,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Message   string    `json:"message,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an alert with a fresh ID and the current timestamp.
func New(kind, username, platform, message string, amount int) *Alert {
	return &Alert{
		ID:        uuid.NewString(),
		Kind:      kind,
		Username:  username,
		Platform:  platform,
		Message:   message,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}
