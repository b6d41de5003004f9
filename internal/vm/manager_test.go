// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package vm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/homelab-ops/homestead/internal/config"
)

const listOutput = ` Id   Name       State
------------------------------
 1    nas        running
 7    gameserver running
 -    win10      shut off
`

type scriptedRunner struct {
	out   string
	err   error
	calls []string
}

func (s *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	return []byte(s.out), s.err
}

func testManager(runner *scriptedRunner) *Manager {
	return NewManager(&config.VMConfig{
		Enabled:      true,
		ConnectURI:   "qemu:///system",
		WaitInterval: 10 * time.Millisecond,
		WaitTimeout:  150 * time.Millisecond,
	}, runner)
}

func TestParseList(t *testing.T) {
	vms := parseList(listOutput)
	if len(vms) != 3 {
		t.Fatalf("parsed %d vms, want 3", len(vms))
	}

	if vms[0].Name != "nas" || vms[0].ID != 1 || vms[0].State != StateRunning {
		t.Errorf("vms[0] = %+v", vms[0])
	}
	if vms[2].Name != "win10" || vms[2].ID != 0 || vms[2].State != StateShutOff {
		t.Errorf("vms[2] = %+v, want shut off with no id", vms[2])
	}
}

func TestParseListEmpty(t *testing.T) {
	out := ` Id   Name   State
--------------------
`
	if vms := parseList(out); len(vms) != 0 {
		t.Errorf("parsed %d vms from empty listing", len(vms))
	}
}

func TestStatusUsesConnectURI(t *testing.T) {
	runner := &scriptedRunner{out: listOutput}
	m := testManager(runner)

	status, err := m.Status(context.Background(), "gameserver")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != StateRunning || status.ID != 7 {
		t.Errorf("status = %+v", status)
	}
	if want := "virsh -c qemu:///system list --all"; runner.calls[0] != want {
		t.Errorf("command = %q, want %q", runner.calls[0], want)
	}
}

func TestStatusUnknownVM(t *testing.T) {
	m := testManager(&scriptedRunner{out: listOutput})
	if _, err := m.Status(context.Background(), "ghost"); !errors.Is(err, ErrVMNotFound) {
		t.Errorf("expected ErrVMNotFound, got %v", err)
	}
}

func TestStartPropagatesRunnerError(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("error: failed to get domain 'nas'")}
	m := testManager(runner)
	if err := m.Start(context.Background(), "nas"); err == nil {
		t.Error("expected error from runner")
	}
}

func TestWaitForStateTimesOut(t *testing.T) {
	m := testManager(&scriptedRunner{out: listOutput})
	err := m.WaitForState(context.Background(), "win10", StateRunning)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("expected ErrWaitTimeout, got %v", err)
	}

	// The timeout error carries the state the domain was stuck in.
	var timeoutErr *WaitTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *WaitTimeoutError, got %T", err)
	}
	if timeoutErr.LastState != StateShutOff {
		t.Errorf("last state = %q, want %q", timeoutErr.LastState, StateShutOff)
	}
}

func TestWaitForStateImmediate(t *testing.T) {
	m := testManager(&scriptedRunner{out: listOutput})
	if err := m.WaitForState(context.Background(), "nas", StateRunning); err != nil {
		t.Errorf("WaitForState: %v", err)
	}
}
