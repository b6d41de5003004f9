// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"INFO", zerolog.InfoLevel},
		{"garbage", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("unit", "plex.service").Msg("service started")

	out := buf.String()
	if !strings.Contains(out, `"unit":"plex.service"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"service started"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID for bare context, got %q", got)
	}

	ctx = ContextWithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	if a == b {
		t.Error("expected unique request IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected UUID-length request ID, got %d chars", len(a))
	}
}

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", slog.String("service", "dyndns"), slog.Int64("restarts", 2))

	out := buf.String()
	if !strings.Contains(out, `"service":"dyndns"`) {
		t.Errorf("expected slog attr in zerolog output, got %q", out)
	}
	if !strings.Contains(out, `"restarts":2`) {
		t.Errorf("expected int attr in zerolog output, got %q", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	slogger := NewSlogLogger().WithGroup("suture")
	slogger.Warn("service failed", slog.String("name", "announcer"))

	if !strings.Contains(buf.String(), `"suture.name":"announcer"`) {
		t.Errorf("expected grouped attr key, got %q", buf.String())
	}
}
