// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package config loads and validates Homestead configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//   - Environment variables (see the env mapping table in koanf.go)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the Homestead server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Services  ServicesConfig  `koanf:"services"`
	VM        VMConfig        `koanf:"vm"`
	Compose   ComposeConfig   `koanf:"compose"`
	DynDNS    DynDNSConfig    `koanf:"dyndns"`
	Deploy    DeployConfig    `koanf:"deploy"`
	StreamBot StreamBotConfig `koanf:"streambot"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	NATS      NATSConfig      `koanf:"nats"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// Auth modes accepted by SecurityConfig.AuthMode.
const (
	AuthModeJWT   = "jwt"
	AuthModeBasic = "basic"
	AuthModeNone  = "none"
)

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is one of AuthModeJWT, AuthModeBasic, or AuthModeNone.
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs session tokens (HS256). Required for jwt mode,
	// minimum 32 characters.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	AdminUsername string `koanf:"admin_username"`
	// AdminPassword is either a bcrypt hash ($2a$/$2b$ prefix) or, for
	// development only, a plaintext password.
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// ServicesConfig holds the systemd unit control settings.
type ServicesConfig struct {
	// Units is the allow-list of systemd units the API may manage.
	// Requests for units outside this list are rejected.
	Units []string `koanf:"units"`

	// WaitInterval and WaitTimeout bound the wait-for-active polling loop.
	WaitInterval time.Duration `koanf:"wait_interval"`
	WaitTimeout  time.Duration `koanf:"wait_timeout"`
}

// VMConfig holds libvirt VM lifecycle settings.
type VMConfig struct {
	Enabled bool `koanf:"enabled"`

	// ConnectURI is passed to virsh -c. Default: qemu:///system
	ConnectURI string `koanf:"connect_uri"`

	WaitInterval time.Duration `koanf:"wait_interval"`
	WaitTimeout  time.Duration `koanf:"wait_timeout"`
}

// StackConfig describes one Docker Compose stack the server manages.
type StackConfig struct {
	// Name is the stack identifier used by the API.
	Name string `koanf:"name"`

	// Dir is the directory containing the compose file.
	Dir string `koanf:"dir"`

	// WaitFor lists host:port endpoints probed after `up` until reachable.
	WaitFor []string `koanf:"wait_for"`
}

// ComposeConfig holds Docker Compose stack settings.
type ComposeConfig struct {
	Enabled bool `koanf:"enabled"`

	// Stacks is the registry of managed compose stacks (YAML only).
	Stacks []StackConfig `koanf:"stacks"`

	WaitInterval time.Duration `koanf:"wait_interval"`
	WaitTimeout  time.Duration `koanf:"wait_timeout"`
}

// DynDNSConfig holds the dynamic DNS updater settings.
type DynDNSConfig struct {
	Enabled bool `koanf:"enabled"`

	// Zone and Record identify the A record to track (e.g. zone
	// "example.net", record "home.example.net").
	Zone   string `koanf:"zone"`
	Record string `koanf:"record"`
	TTL    int    `koanf:"ttl"`

	// CheckInterval is how often the public IP is re-resolved.
	CheckInterval time.Duration `koanf:"check_interval"`

	// LookupURLs are HTTP endpoints returning the caller's public IP as
	// plain text. Tried in order; first success wins.
	LookupURLs []string `koanf:"lookup_urls"`

	// MinUpdateInterval rate-limits record updates regardless of how often
	// the public IP check runs.
	MinUpdateInterval time.Duration `koanf:"min_update_interval"`
}

// DeployConfig holds deployment pipeline settings.
type DeployConfig struct {
	Enabled      bool          `koanf:"enabled"`
	StageTimeout time.Duration `koanf:"stage_timeout"`

	// WorkDir is where deployment templates render their artifacts.
	WorkDir string `koanf:"work_dir"`
}

// StreamBotConfig holds stream-bot settings.
type StreamBotConfig struct {
	// Song request queue limits.
	RequestsEnabled bool `koanf:"requests_enabled"`
	MaxQueue        int  `koanf:"max_queue"`
	PerUserLimit    int  `koanf:"per_user_limit"`

	// Announcement rotation.
	AnnouncerEnabled  bool          `koanf:"announcer_enabled"`
	AnnounceInterval  time.Duration `koanf:"announce_interval"`
	AnnounceOnStartup bool          `koanf:"announce_on_startup"`
}

// AlertsConfig holds overlay alert dispatcher settings.
type AlertsConfig struct {
	// DisplayDuration is how long each alert is shown before the next one
	// is dispatched.
	DisplayDuration time.Duration `koanf:"display_duration"`

	// QueueSize caps pending alerts; the oldest is dropped on overflow.
	QueueSize int `koanf:"queue_size"`

	// ReplayCount is how many recent alerts are replayed to a reconnecting
	// overlay client.
	ReplayCount int `koanf:"replay_count"`

	// StorePath is the Badger directory for the alert replay store.
	StorePath string `koanf:"store_path"`
}

// NATSConfig holds the optional event bus settings.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`

	// StreamRetentionDays bounds the JetStream event stream age.
	StreamRetentionDays int `koanf:"stream_retention_days"`
}

// APIConfig holds API pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// Load loads the configuration from defaults, config file, and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, "development")
}

// Stack returns the compose stack with the given name, or false.
func (c *ComposeConfig) Stack(name string) (StackConfig, bool) {
	for _, s := range c.Stacks {
		if s.Name == name {
			return s, true
		}
	}
	return StackConfig{}, false
}

// UnitAllowed reports whether a systemd unit is in the managed allow-list.
func (c *ServicesConfig) UnitAllowed(unit string) bool {
	for _, u := range c.Units {
		if u == unit {
			return true
		}
	}
	return false
}

// Validate checks the configuration for invalid combinations. It is called
// by Load; tests may call it directly on hand-built configs.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}

	switch c.Security.AuthMode {
	case AuthModeJWT:
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return fmt.Errorf("security.admin_username and security.admin_password are required in jwt mode")
		}
	case AuthModeBasic:
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return fmt.Errorf("security.admin_username and security.admin_password are required in basic mode")
		}
	case AuthModeNone:
		// Development only; warned about at startup.
	default:
		return fmt.Errorf("security.auth_mode must be jwt, basic, or none, got %q", c.Security.AuthMode)
	}

	if c.DynDNS.Enabled {
		if c.DynDNS.Record == "" {
			return fmt.Errorf("dyndns.record is required when dyndns is enabled")
		}
		if c.DynDNS.Zone == "" {
			return fmt.Errorf("dyndns.zone is required when dyndns is enabled")
		}
		if !strings.HasSuffix(c.DynDNS.Record, c.DynDNS.Zone) {
			return fmt.Errorf("dyndns.record %q is not in zone %q", c.DynDNS.Record, c.DynDNS.Zone)
		}
		if len(c.DynDNS.LookupURLs) == 0 {
			return fmt.Errorf("dyndns.lookup_urls must not be empty when dyndns is enabled")
		}
		for _, raw := range c.DynDNS.LookupURLs {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("dyndns.lookup_urls entry %q is not a valid http(s) URL", raw)
			}
		}
		if c.DynDNS.CheckInterval < 10*time.Second {
			return fmt.Errorf("dyndns.check_interval must be at least 10s, got %s", c.DynDNS.CheckInterval)
		}
	}

	seen := make(map[string]bool, len(c.Compose.Stacks))
	for _, s := range c.Compose.Stacks {
		if s.Name == "" || s.Dir == "" {
			return fmt.Errorf("compose.stacks entries require name and dir")
		}
		if seen[s.Name] {
			return fmt.Errorf("compose.stacks contains duplicate name %q", s.Name)
		}
		seen[s.Name] = true
		for _, w := range s.WaitFor {
			if !strings.Contains(w, ":") {
				return fmt.Errorf("compose stack %q wait_for entry %q must be host:port", s.Name, w)
			}
		}
	}

	if c.StreamBot.MaxQueue < 1 {
		return fmt.Errorf("streambot.max_queue must be at least 1")
	}
	if c.StreamBot.PerUserLimit < 1 {
		return fmt.Errorf("streambot.per_user_limit must be at least 1")
	}
	if c.StreamBot.PerUserLimit > c.StreamBot.MaxQueue {
		return fmt.Errorf("streambot.per_user_limit cannot exceed streambot.max_queue")
	}

	if c.Alerts.DisplayDuration <= 0 {
		return fmt.Errorf("alerts.display_duration must be positive")
	}
	if c.Alerts.QueueSize < 1 {
		return fmt.Errorf("alerts.queue_size must be at least 1")
	}

	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default=%d max=%d", c.API.DefaultPageSize, c.API.MaxPageSize)
	}

	return nil
}
