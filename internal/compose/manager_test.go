// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package compose

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/homelab-ops/homestead/internal/config"
)

type scriptedRunner struct {
	out   string
	err   error
	calls []string
}

func (s *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	return []byte(s.out), s.err
}

func testConfig(waitFor ...string) *config.ComposeConfig {
	return &config.ComposeConfig{
		Enabled: true,
		Stacks: []config.StackConfig{
			{Name: "media", Dir: "/srv/stacks/media", WaitFor: waitFor},
			{Name: "monitoring", Dir: "/srv/stacks/monitoring"},
		},
		WaitInterval: 10 * time.Millisecond,
		WaitTimeout:  150 * time.Millisecond,
	}
}

func TestUpUnknownStack(t *testing.T) {
	m := NewManager(testConfig(), &scriptedRunner{})
	if err := m.Up(context.Background(), "ghost"); !errors.Is(err, ErrStackNotFound) {
		t.Errorf("expected ErrStackNotFound, got %v", err)
	}
}

func TestUpRunsComposeInProjectDirectory(t *testing.T) {
	runner := &scriptedRunner{}
	m := NewManager(testConfig(), runner)

	if err := m.Up(context.Background(), "monitoring"); err != nil {
		t.Fatalf("Up: %v", err)
	}
	want := "docker compose --project-directory /srv/stacks/monitoring up -d --remove-orphans"
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("calls = %v, want [%q]", runner.calls, want)
	}
}

func TestStatusParsesNDJSON(t *testing.T) {
	runner := &scriptedRunner{out: `{"Name":"media-jellyfin-1","Service":"jellyfin","State":"running","Status":"Up 2 hours","Health":"healthy"}
{"Name":"media-radarr-1","Service":"radarr","State":"exited","Status":"Exited (0) 5 minutes ago"}
`}
	m := NewManager(testConfig(), runner)

	status, err := m.Status(context.Background(), "media")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Total != 2 || status.Running != 1 {
		t.Errorf("total/running = %d/%d, want 2/1", status.Total, status.Running)
	}
	if status.Containers[0].Health != "healthy" {
		t.Errorf("health = %q", status.Containers[0].Health)
	}
	if status.Containers[1].Service != "radarr" {
		t.Errorf("service = %q", status.Containers[1].Service)
	}
}

func TestStatusEmptyStack(t *testing.T) {
	m := NewManager(testConfig(), &scriptedRunner{out: "\n"})
	status, err := m.Status(context.Background(), "media")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Total != 0 {
		t.Errorf("total = %d, want 0", status.Total)
	}
}

func TestUpWaitsForEndpoints(t *testing.T) {
	m := NewManager(testConfig("127.0.0.1:8096"), &scriptedRunner{})

	attempts := 0
	m.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		server, client := net.Pipe()
		go server.Close()
		return client, nil
	}

	if err := m.Up(context.Background(), "media"); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if attempts < 3 {
		t.Errorf("attempts = %d, want at least 3", attempts)
	}
}

func TestUpEndpointTimeout(t *testing.T) {
	m := NewManager(testConfig("127.0.0.1:1"), &scriptedRunner{})
	m.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	err := m.Up(context.Background(), "media")
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("expected ErrWaitTimeout, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "127.0.0.1:1") {
		t.Errorf("error should name the endpoint: %v", err)
	}
}

func TestStatusAllToleratesFailures(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("docker daemon unreachable")}
	m := NewManager(testConfig(), runner)

	statuses, err := m.StatusAll(context.Background())
	if err != nil {
		t.Fatalf("StatusAll: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(statuses))
	}
	for _, s := range statuses {
		if s.Total != 0 {
			t.Errorf("stack %s should be empty on failure", s.Name)
		}
	}
}
