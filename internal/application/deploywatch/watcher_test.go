package deploywatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/infrastructure/deployment"
	"ai-sitegen-api/internal/infrastructure/messaging"
)

type fakeProjects struct {
	repository.ProjectRepository

	project *entity.Project

	updatedStatus entity.DeploymentStatus
	updatedURL    string
	updateCalls   int
}

func (f *fakeProjects) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, nil
	}
	cp := *f.project
	return &cp, nil
}

func (f *fakeProjects) UpdateDeployment(ctx context.Context, id string, status entity.DeploymentStatus, deploymentID, deploymentURL string) error {
	f.updateCalls++
	f.updatedStatus = status
	f.updatedURL = deploymentURL
	return nil
}

type fakeDeployer struct {
	info  *deployment.Info
	err   error
	calls int
}

func (f *fakeDeployer) GetStatus(ctx context.Context, deploymentID string) (*deployment.Info, error) {
	f.calls++
	return f.info, f.err
}

type fakeProducer struct {
	checks []*messaging.DeployCheckMessage
}

func (f *fakeProducer) PublishDeployCheck(ctx context.Context, check *messaging.DeployCheckMessage) (string, error) {
	f.checks = append(f.checks, check)
	return "stream-id", nil
}

type fakeCache struct {
	invalidations int
}

func (f *fakeCache) InvalidateProject(ctx context.Context, projectID string) error {
	f.invalidations++
	return nil
}

func checkMessage(t *testing.T, check *messaging.DeployCheckMessage) *messaging.Message {
	t.Helper()
	msg, err := messaging.NewMessage("check-1", "deploy_check", check.ProjectID, check)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func newTestWatcher(projects *fakeProjects, deployer *fakeDeployer, producer *fakeProducer, cache *fakeCache) *Watcher {
	cfg := &config.DeploymentConfig{PollInterval: 50 * time.Millisecond}
	return NewWatcher(cfg, projects, deployer, producer, cache)
}

func TestHandleDeployCheckReady(t *testing.T) {
	projects := &fakeProjects{project: &entity.Project{ID: "p1"}}
	deployer := &fakeDeployer{info: &deployment.Info{ID: "d1", Status: "ready", URL: "https://site.example.com"}}
	producer := &fakeProducer{}
	cache := &fakeCache{}
	watcher := newTestWatcher(projects, deployer, producer, cache)

	check := &messaging.DeployCheckMessage{
		ProjectID:    "p1",
		DeploymentID: "d1",
		Deadline:     time.Now().Add(time.Minute),
	}
	if err := watcher.HandleDeployCheck(context.Background(), checkMessage(t, check)); err != nil {
		t.Fatalf("HandleDeployCheck: %v", err)
	}

	if projects.updatedStatus != entity.DeploymentStatusReady {
		t.Errorf("status = %q, want ready", projects.updatedStatus)
	}
	if projects.updatedURL != "https://site.example.com" {
		t.Errorf("url = %q", projects.updatedURL)
	}
	if len(producer.checks) != 0 {
		t.Errorf("terminal status should not reschedule, got %d checks", len(producer.checks))
	}
	if cache.invalidations == 0 {
		t.Error("expected cache invalidation")
	}
}

func TestHandleDeployCheckBuildingReschedules(t *testing.T) {
	projects := &fakeProjects{project: &entity.Project{ID: "p1"}}
	deployer := &fakeDeployer{info: &deployment.Info{ID: "d1", Status: "building"}}
	producer := &fakeProducer{}
	watcher := newTestWatcher(projects, deployer, producer, &fakeCache{})

	check := &messaging.DeployCheckMessage{
		ProjectID:    "p1",
		DeploymentID: "d1",
		Attempt:      2,
		Deadline:     time.Now().Add(time.Minute),
	}
	if err := watcher.HandleDeployCheck(context.Background(), checkMessage(t, check)); err != nil {
		t.Fatalf("HandleDeployCheck: %v", err)
	}

	if projects.updatedStatus != entity.DeploymentStatusBuilding {
		t.Errorf("status = %q, want building", projects.updatedStatus)
	}
	if len(producer.checks) != 1 {
		t.Fatalf("expected 1 rescheduled check, got %d", len(producer.checks))
	}
	next := producer.checks[0]
	if next.Attempt != 3 {
		t.Errorf("attempt = %d, want 3", next.Attempt)
	}
	if !next.NotBefore.After(time.Now().Add(-time.Second)) {
		t.Error("NotBefore should be in the near future")
	}
}

func TestHandleDeployCheckDeadlineExceeded(t *testing.T) {
	projects := &fakeProjects{project: &entity.Project{ID: "p1"}}
	deployer := &fakeDeployer{info: &deployment.Info{Status: "building"}}
	producer := &fakeProducer{}
	watcher := newTestWatcher(projects, deployer, producer, &fakeCache{})

	check := &messaging.DeployCheckMessage{
		ProjectID:    "p1",
		DeploymentID: "d1",
		Attempt:      10,
		Deadline:     time.Now().Add(-time.Second),
	}
	if err := watcher.HandleDeployCheck(context.Background(), checkMessage(t, check)); err != nil {
		t.Fatalf("HandleDeployCheck: %v", err)
	}

	if deployer.calls != 0 {
		t.Errorf("deployer should not be queried past deadline, got %d calls", deployer.calls)
	}
	if projects.updatedStatus != entity.DeploymentStatusError {
		t.Errorf("status = %q, want error", projects.updatedStatus)
	}
	if len(producer.checks) != 0 {
		t.Error("deadline exceeded should not reschedule")
	}
}

func TestHandleDeployCheckStatusError(t *testing.T) {
	projects := &fakeProjects{project: &entity.Project{ID: "p1"}}
	deployer := &fakeDeployer{err: errors.New("upstream down")}
	watcher := newTestWatcher(projects, deployer, &fakeProducer{}, &fakeCache{})

	check := &messaging.DeployCheckMessage{
		ProjectID:    "p1",
		DeploymentID: "d1",
		Deadline:     time.Now().Add(time.Minute),
	}
	if err := watcher.HandleDeployCheck(context.Background(), checkMessage(t, check)); err == nil {
		t.Fatal("expected error when status query fails")
	}
	if projects.updateCalls != 0 {
		t.Error("failed query should not touch the project")
	}
}

func TestHandleDeployCheckProjectGone(t *testing.T) {
	projects := &fakeProjects{}
	deployer := &fakeDeployer{info: &deployment.Info{Status: "ready", URL: "https://x"}}
	watcher := newTestWatcher(projects, deployer, &fakeProducer{}, &fakeCache{})

	check := &messaging.DeployCheckMessage{
		ProjectID:    "missing",
		DeploymentID: "d1",
		Deadline:     time.Now().Add(time.Minute),
	}
	if err := watcher.HandleDeployCheck(context.Background(), checkMessage(t, check)); err != nil {
		t.Fatalf("HandleDeployCheck: %v", err)
	}
	if projects.updateCalls != 0 {
		t.Error("deleted project should not be updated")
	}
}

func TestHandlePreviewEvent(t *testing.T) {
	watcher := newTestWatcher(&fakeProjects{}, &fakeDeployer{}, &fakeProducer{}, &fakeCache{})

	event := &messaging.PreviewEventMessage{
		EventID:    "ev-1",
		ProjectID:  "p1",
		Kind:       "console-error",
		Message:    "ChunkLoadError: Loading chunk 42 failed",
		OccurredAt: time.Now(),
	}
	msg, err := messaging.NewMessage(event.EventID, "preview_event", event.ProjectID, event)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := watcher.HandlePreviewEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandlePreviewEvent: %v", err)
	}
}

func TestDeployCheckExpired(t *testing.T) {
	past := checkMessage(t, &messaging.DeployCheckMessage{
		ProjectID: "p1", DeploymentID: "d1", Deadline: time.Now().Add(-time.Minute),
	})
	if !DeployCheckExpired(past) {
		t.Error("check past its deadline should be expired")
	}

	future := checkMessage(t, &messaging.DeployCheckMessage{
		ProjectID: "p1", DeploymentID: "d1", Deadline: time.Now().Add(time.Minute),
	})
	if DeployCheckExpired(future) {
		t.Error("check before its deadline should not be expired")
	}

	open := checkMessage(t, &messaging.DeployCheckMessage{
		ProjectID: "p1", DeploymentID: "d1",
	})
	if DeployCheckExpired(open) {
		t.Error("check without a deadline should never expire")
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[string]entity.DeploymentStatus{
		"pending":     entity.DeploymentStatusPending,
		"queued":      entity.DeploymentStatusPending,
		"building":    entity.DeploymentStatusBuilding,
		"in_progress": entity.DeploymentStatusBuilding,
		"ready":       entity.DeploymentStatusReady,
		"succeeded":   entity.DeploymentStatusReady,
		"error":       entity.DeploymentStatusError,
		"failed":      entity.DeploymentStatusError,
		"canceled":    entity.DeploymentStatusError,
		"mystery":     entity.DeploymentStatusPending,
	}
	for apiStatus, want := range cases {
		if got := mapStatus(apiStatus); got != want {
			t.Errorf("mapStatus(%q) = %q, want %q", apiStatus, got, want)
		}
	}
}
