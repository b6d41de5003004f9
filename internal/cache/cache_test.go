// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package cache

import (
	"testing"
	"time"
)

func TestGetSetExpiry(t *testing.T) {
	c := New(30 * time.Millisecond)
	defer c.Close()

	c.Set("services", []string{"a", "b"})

	got, ok := c.Get("services")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got.([]string)) != 2 {
		t.Errorf("got %v", got)
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("services"); ok {
		t.Error("expected entry to expire")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("vm:nas", "running")
	c.Invalidate("vm:nas")
	if _, ok := c.Get("vm:nas"); ok {
		t.Error("expected invalidated entry to miss")
	}
}

func TestStats(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("k", 1)
	c.Get("k")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}
