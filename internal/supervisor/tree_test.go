// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingService runs until its context is canceled.
type blockingService struct {
	started atomic.Bool
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return "blocking" }

func TestNewTreeAppliesDefaults(t *testing.T) {
	tree, err := NewTree(discardLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("expected default failure threshold 5.0, got %f", tree.config.FailureThreshold)
	}
	if tree.config.FailureBackoff != 15*time.Second {
		t.Errorf("expected default backoff 15s, got %s", tree.config.FailureBackoff)
	}
	if tree.Root() == nil {
		t.Error("expected non-nil root supervisor")
	}
}

func TestTreeStartsAndStopsServices(t *testing.T) {
	tree, err := NewTree(discardLogger(), DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	svc := &blockingService{}
	tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for !svc.started.Load() {
		select {
		case <-deadline:
			t.Fatal("service did not start within 2s")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop within 5s")
	}

	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(unstopped) != 0 {
		t.Errorf("expected no unstopped services, got %d", len(unstopped))
	}
}

func TestTreeLayerAccessors(t *testing.T) {
	tree, err := NewTree(discardLogger(), DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	// Each layer accepts services without panicking and returns a removable token.
	token := tree.AddDataService(&blockingService{})
	if err := tree.Remove(token); err != nil {
		t.Errorf("Remove data service: %v", err)
	}
	token = tree.AddMessagingService(&blockingService{})
	if err := tree.Remove(token); err != nil {
		t.Errorf("Remove messaging service: %v", err)
	}
	token = tree.AddAPIService(&blockingService{})
	if err := tree.Remove(token); err != nil {
		t.Errorf("Remove api service: %v", err)
	}
}
