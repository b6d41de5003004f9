// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package deploy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/models"
)

type memStore struct {
	mu          sync.Mutex
	deployments map[string]*models.Deployment
	steps       []*models.DeploymentStep
}

func newMemStore() *memStore {
	return &memStore{deployments: make(map[string]*models.Deployment)}
}

func (m *memStore) InsertDeployment(ctx context.Context, d *models.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = models.DeployStatusPending
	}
	copied := *d
	m.deployments[d.ID] = &copied
	return nil
}

func (m *memStore) UpdateDeployment(ctx context.Context, d *models.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *d
	m.deployments[d.ID] = &copied
	return nil
}

func (m *memStore) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deployments[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *d
	return &copied, nil
}

func (m *memStore) InsertDeploymentStep(ctx context.Context, s *models.DeploymentStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	copied := *s
	m.steps = append(m.steps, &copied)
	return nil
}

func (m *memStore) UpdateDeploymentStep(ctx context.Context, s *models.DeploymentStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.steps {
		if existing.ID == s.ID {
			copied := *s
			m.steps[i] = &copied
			return nil
		}
	}
	return errors.New("step not found")
}

func (m *memStore) stepStages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	stages := make([]string, len(m.steps))
	for i, s := range m.steps {
		stages[i] = s.Stage
	}
	return stages
}

func testExecutor(store Store, stages Stages) *Executor {
	return NewExecutor(&config.DeployConfig{
		Enabled:      true,
		StageTimeout: time.Second,
	}, store, nil, stages)
}

func succeedAll() Stages {
	stages := make(Stages)
	for _, stage := range models.DeployStages {
		stages[stage] = func(ctx context.Context, d *models.Deployment) (string, error) {
			return "ok", nil
		}
	}
	return stages
}

func waitForStatus(t *testing.T, store *memStore, id string, want ...string) *models.Deployment {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d, err := store.GetDeployment(context.Background(), id)
		if err == nil {
			for _, w := range want {
				if d.Status == w {
					return d
				}
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	d, _ := store.GetDeployment(context.Background(), id)
	t.Fatalf("deployment %s status = %q, want one of %v", id, d.Status, want)
	return nil
}

func TestExecutorRunsAllStagesInOrder(t *testing.T) {
	store := newMemStore()
	e := testExecutor(store, succeedAll())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.RunWithContext(ctx) }()

	d, err := e.Submit(context.Background(), "media-stack", "media")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForStatus(t, store, d.ID, models.DeployStatusSucceeded)
	if final.Error != "" {
		t.Errorf("error = %q, want empty", final.Error)
	}

	stages := store.stepStages()
	if len(stages) != len(models.DeployStages) {
		t.Fatalf("steps = %v, want all stages", stages)
	}
	for i, want := range models.DeployStages {
		if stages[i] != want {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want)
		}
	}
}

func TestExecutorStopsOnStageFailure(t *testing.T) {
	store := newMemStore()
	stages := succeedAll()
	stages["provision"] = func(ctx context.Context, d *models.Deployment) (string, error) {
		return "", errors.New("disk full")
	}
	e := testExecutor(store, stages)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.RunWithContext(ctx) }()

	d, err := e.Submit(context.Background(), "media-stack", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForStatus(t, store, d.ID, models.DeployStatusFailed)
	if final.CurrentStage != "provision" {
		t.Errorf("current stage = %q, want provision", final.CurrentStage)
	}

	stages2 := store.stepStages()
	if len(stages2) != 2 {
		t.Errorf("steps = %v, want validate and provision only", stages2)
	}
}

func TestExecutorCancelBetweenStages(t *testing.T) {
	store := newMemStore()
	started := make(chan string, 1)
	release := make(chan struct{})

	stages := succeedAll()
	stages["validate"] = func(ctx context.Context, d *models.Deployment) (string, error) {
		started <- d.ID
		<-release
		return "ok", nil
	}
	e := testExecutor(store, stages)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.RunWithContext(ctx) }()

	d, err := e.Submit(context.Background(), "media-stack", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	id := <-started
	if err := e.Cancel(context.Background(), id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(release)

	waitForStatus(t, store, d.ID, models.DeployStatusCanceled)

	// validate ran, provision never started.
	stages2 := store.stepStages()
	if len(stages2) != 1 || stages2[0] != "validate" {
		t.Errorf("steps = %v, want [validate]", stages2)
	}
}

func TestCancelFinishedDeployment(t *testing.T) {
	store := newMemStore()
	e := testExecutor(store, succeedAll())

	d := &models.Deployment{Name: "old", Status: models.DeployStatusSucceeded}
	if err := store.InsertDeployment(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	if err := e.Cancel(context.Background(), d.ID); !errors.Is(err, ErrNotCancelable) {
		t.Errorf("expected ErrNotCancelable, got %v", err)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	store := newMemStore()
	e := testExecutor(store, succeedAll())
	// Worker not running: fill the queue.
	for i := 0; i < cap(e.queue); i++ {
		if _, err := e.Submit(context.Background(), "fill", ""); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	_, err := e.Submit(context.Background(), "overflow", "")
	if !errors.Is(err, ErrDeployBusy) {
		t.Errorf("expected ErrDeployBusy, got %v", err)
	}
}

func TestScriptStagesSkipMissingScripts(t *testing.T) {
	cfg := &config.DeployConfig{WorkDir: t.TempDir()}
	stages := ScriptStages(cfg, nil)

	msg, err := stages["validate"](context.Background(), &models.Deployment{Name: "x"})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if msg == "" {
		t.Error("expected skip message")
	}
}
