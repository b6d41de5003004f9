// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/homestead/config.yaml",
	"/etc/homestead/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. These are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8710,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/homestead.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			TrustedProxies:  []string{},
		},
		Services: ServicesConfig{
			Units:        []string{},
			WaitInterval: 2 * time.Second,
			WaitTimeout:  90 * time.Second,
		},
		VM: VMConfig{
			Enabled:      false,
			ConnectURI:   "qemu:///system",
			WaitInterval: 3 * time.Second,
			WaitTimeout:  2 * time.Minute,
		},
		Compose: ComposeConfig{
			Enabled:      false,
			Stacks:       nil,
			WaitInterval: 2 * time.Second,
			WaitTimeout:  2 * time.Minute,
		},
		DynDNS: DynDNSConfig{
			Enabled:       false,
			TTL:           300,
			CheckInterval: 5 * time.Minute,
			LookupURLs: []string{
				"https://api.ipify.org",
				"https://ifconfig.me/ip",
				"https://icanhazip.com",
			},
			MinUpdateInterval: time.Minute,
		},
		Deploy: DeployConfig{
			Enabled:      true,
			StageTimeout: 5 * time.Minute,
			WorkDir:      "/data/deployments",
		},
		StreamBot: StreamBotConfig{
			RequestsEnabled:   true,
			MaxQueue:          50,
			PerUserLimit:      3,
			AnnouncerEnabled:  false,
			AnnounceInterval:  15 * time.Minute,
			AnnounceOnStartup: false,
		},
		Alerts: AlertsConfig{
			DisplayDuration: 8 * time.Second,
			QueueSize:       64,
			ReplayCount:     10,
			StorePath:       "/data/alerts",
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			StreamRetentionDays: 7,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config File: optional YAML file (if found)
//  3. Environment Variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variables have the highest priority. HTTP_PORT becomes
	// server.port, DYNDNS_RECORD becomes dyndns.record, and so on.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"services.units",
	"dyndns.lookup_urls",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return empty string and are skipped, so random
// environment noise cannot pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Security
		"auth_mode":          "security.auth_mode",
		"jwt_secret":         "security.jwt_secret",
		"session_timeout":    "security.session_timeout",
		"admin_username":     "security.admin_username",
		"admin_password":     "security.admin_password",
		"rate_limit_reqs":    "security.rate_limit_reqs",
		"rate_limit_window":  "security.rate_limit_window",
		"disable_rate_limit": "security.rate_limit_disabled",
		"cors_origins":       "security.cors_origins",
		"trusted_proxies":    "security.trusted_proxies",

		// Systemd services
		"service_units":         "services.units",
		"service_wait_interval": "services.wait_interval",
		"service_wait_timeout":  "services.wait_timeout",

		// VMs
		"vm_enabled":       "vm.enabled",
		"vm_connect_uri":   "vm.connect_uri",
		"vm_wait_interval": "vm.wait_interval",
		"vm_wait_timeout":  "vm.wait_timeout",

		// Compose
		"compose_enabled":       "compose.enabled",
		"compose_wait_interval": "compose.wait_interval",
		"compose_wait_timeout":  "compose.wait_timeout",

		// DynDNS
		"dyndns_enabled":             "dyndns.enabled",
		"dyndns_zone":                "dyndns.zone",
		"dyndns_record":              "dyndns.record",
		"dyndns_ttl":                 "dyndns.ttl",
		"dyndns_check_interval":      "dyndns.check_interval",
		"dyndns_lookup_urls":         "dyndns.lookup_urls",
		"dyndns_min_update_interval": "dyndns.min_update_interval",

		// Deploy
		"deploy_enabled":       "deploy.enabled",
		"deploy_stage_timeout": "deploy.stage_timeout",
		"deploy_work_dir":      "deploy.work_dir",

		// Stream bot
		"streambot_requests_enabled":  "streambot.requests_enabled",
		"streambot_max_queue":         "streambot.max_queue",
		"streambot_per_user_limit":    "streambot.per_user_limit",
		"streambot_announcer_enabled": "streambot.announcer_enabled",
		"streambot_announce_interval": "streambot.announce_interval",
		"streambot_announce_startup":  "streambot.announce_on_startup",

		// Alerts
		"alerts_display_duration": "alerts.display_duration",
		"alerts_queue_size":       "alerts.queue_size",
		"alerts_replay_count":     "alerts.replay_count",
		"alerts_store_path":       "alerts.store_path",

		// NATS
		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_retention_days": "nats.stream_retention_days",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
