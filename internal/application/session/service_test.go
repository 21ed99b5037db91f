package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/infrastructure/deployment"
	"ai-sitegen-api/internal/infrastructure/generation"
)

// ---- 内存仓储替身 ----

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*entity.Project
	seq      int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*entity.Project)}
}

func (r *fakeProjectRepo) Create(ctx context.Context, p *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = fmt.Sprintf("project-%d", r.seq)
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjectRepo) List(ctx context.Context, filter *repository.ProjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*entity.Project
	for _, p := range r.projects {
		cp := *p
		items = append(items, &cp)
	}
	return repository.NewPagedResult(items, int64(len(items)), pagination), nil
}

func (r *fakeProjectRepo) Update(ctx context.Context, p *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *fakeProjectRepo) UpdatePreview(ctx context.Context, id, previewURL, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.PreviewURL = previewURL
		p.ConversationID = conversationID
	}
	return nil
}

func (r *fakeProjectRepo) UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.Status = status
	}
	return nil
}

func (r *fakeProjectRepo) UpdateDeployment(ctx context.Context, id string, status entity.DeploymentStatus, deploymentID, deploymentURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.DeploymentStatus = status
		p.DeploymentID = deploymentID
		p.DeploymentURL = deploymentURL
	}
	return nil
}

func (r *fakeProjectRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.ChatMessage
	seq      int
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeMessageRepo) CreateBatch(ctx context.Context, msgs []*entity.ChatMessage) error {
	for _, m := range msgs {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMessageRepo) ListByProject(ctx context.Context, projectID string) ([]*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ChatMessage
	for _, m := range r.messages {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountByProject(ctx context.Context, projectID string) (int64, error) {
	msgs, _ := r.ListByProject(ctx, projectID)
	return int64(len(msgs)), nil
}

type fakeFileRepo struct {
	mu      sync.Mutex
	batches map[string][][]*entity.SiteFile
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{batches: make(map[string][][]*entity.SiteFile)}
}

func (r *fakeFileRepo) ReplaceBatch(ctx context.Context, projectID string, files []*entity.SiteFile) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[projectID] = append(r.batches[projectID], files)
	return len(r.batches[projectID]), nil
}

func (r *fakeFileRepo) ListCurrent(ctx context.Context, projectID string) ([]*entity.SiteFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batches := r.batches[projectID]
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[len(batches)-1], nil
}

func (r *fakeFileRepo) ListByVersion(ctx context.Context, projectID string, versionNo int) ([]*entity.SiteFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batches := r.batches[projectID]
	if versionNo < 1 || versionNo > len(batches) {
		return nil, nil
	}
	return batches[versionNo-1], nil
}

func (r *fakeFileRepo) LatestVersionNo(ctx context.Context, projectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches[projectID]), nil
}

type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---- 外部服务替身 ----

type fakeGenerator struct {
	mu            sync.Mutex
	submitFn      func(prompt string) (*generation.Result, error)
	continueFn    func(conversationID, message string) (*generation.Result, error)
	continueCtxFn func(ctx context.Context, conversationID, message string) (*generation.Result, error)
	continueCalls int
}

func (g *fakeGenerator) Submit(ctx context.Context, prompt string) (*generation.Result, error) {
	return g.submitFn(prompt)
}

func (g *fakeGenerator) Continue(ctx context.Context, conversationID, message string) (*generation.Result, error) {
	g.mu.Lock()
	g.continueCalls++
	g.mu.Unlock()
	if g.continueCtxFn != nil {
		return g.continueCtxFn(ctx, conversationID, message)
	}
	return g.continueFn(conversationID, message)
}

func (g *fakeGenerator) continueCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.continueCalls
}

type fakeDeployer struct {
	info *deployment.Info
	err  error
}

func (d *fakeDeployer) CreateDeployment(ctx context.Context, projectID string, files []deployment.FilePayload) (*deployment.Info, error) {
	return d.info, d.err
}

func (d *fakeDeployer) GetStatus(ctx context.Context, deploymentID string) (*deployment.Info, error) {
	return d.info, d.err
}

func (d *fakeDeployer) GetLogs(ctx context.Context, deploymentID string) ([]deployment.LogEntry, error) {
	return []deployment.LogEntry{{Message: "build ok"}}, d.err
}

// ---- 组装 ----

func testConfig() *config.Config {
	return &config.Config{
		Preview: config.PreviewConfig{
			LoadTimeout:        200 * time.Millisecond,
			MaxRetryAttempts:   2,
			RetryBackoff:       5 * time.Millisecond,
			InterceptionWindow: time.Second,
			ErrorDebounce:      10 * time.Millisecond,
			InspectionDelay:    10 * time.Millisecond,
			InspectionTimeout:  100 * time.Millisecond,
		},
		Recovery: config.RecoveryConfig{
			Enabled:               true,
			IncludeOriginalPrompt: true,
		},
		Deployment: config.DeploymentConfig{
			PollInterval: time.Second,
			PollTimeout:  time.Minute,
		},
	}
}

type testEnv struct {
	svc      *Service
	projects *fakeProjectRepo
	messages *fakeMessageRepo
	files    *fakeFileRepo
	gen      *fakeGenerator
	deploy   *fakeDeployer
}

func newTestEnv(t *testing.T, gen *fakeGenerator) *testEnv {
	t.Helper()

	env := &testEnv{
		projects: newFakeProjectRepo(),
		messages: &fakeMessageRepo{},
		files:    newFakeFileRepo(),
		gen:      gen,
		deploy:   &fakeDeployer{info: &deployment.Info{ID: "deploy-1", Status: "pending"}},
	}
	env.svc = NewService(testConfig(), env.projects, env.messages, env.files, fakeTx{},
		env.gen, env.deploy, nil, nil, nil)
	return env
}

func simpleSubmitResult() *generation.Result {
	return &generation.Result{
		ConversationID: "c1",
		PreviewURL:     "https://preview/1",
		Messages:       []generation.TurnMessage{{Role: "assistant", Content: "here is your site"}},
		Files: []generation.GeneratedFile{
			{Filename: "page.tsx", Content: "export default function Page() {}", Language: "tsx"},
		},
	}
}

// ---- 场景测试 ----

func TestSubmitPromptScenario(t *testing.T) {
	gen := &fakeGenerator{submitFn: func(prompt string) (*generation.Result, error) {
		return simpleSubmitResult(), nil
	}}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "dark cyberpunk theme")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	if project.ConversationID != "c1" {
		t.Errorf("conversation id = %q, want c1", project.ConversationID)
	}

	sess, ok := env.svc.registry.Get(project.ID)
	if !ok {
		t.Fatal("session not created")
	}
	if got := sess.State.PreviewURL(); got != "https://preview/1" {
		t.Errorf("preview url = %q, want https://preview/1", got)
	}
	if got := sess.State.TranscriptLen(); got != 2 {
		t.Errorf("transcript length = %d, want 2 (user turn + assistant reply)", got)
	}
	if got := sess.Monitor.State(); got != "loading" {
		t.Errorf("monitor state = %s, want loading", got)
	}

	files, _ := env.files.ListCurrent(context.Background(), project.ID)
	if len(files) != 1 || files[0].Filename != "page.tsx" {
		t.Errorf("persisted files = %+v, want page.tsx batch", files)
	}
}

func TestSubmitPromptGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{submitFn: func(prompt string) (*generation.Result, error) {
		return nil, errors.New("model overloaded")
	}}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a blog")
	if err == nil {
		t.Fatal("SubmitPrompt error = nil, want generation failure")
	}

	stored, _ := env.projects.GetByID(context.Background(), project.ID)
	if stored.Status != entity.ProjectStatusError {
		t.Errorf("project status = %s, want error", stored.Status)
	}
}

func TestSubmitFollowUpOptimisticAppend(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{
		submitFn: func(prompt string) (*generation.Result, error) {
			return simpleSubmitResult(), nil
		},
		continueFn: func(conversationID, message string) (*generation.Result, error) {
			<-release
			return nil, errors.New("network down")
		},
	}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a portfolio")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	if _, err := env.svc.SubmitFollowUp(context.Background(), project.ID, "hello"); err != nil {
		t.Fatalf("SubmitFollowUp error: %v", err)
	}

	// 网络调用尚未完成，用户消息已在会话记录中
	sess, _ := env.svc.registry.Get(project.ID)
	found := false
	for _, m := range sess.State.Transcript() {
		if m.Role == entity.RoleUser && m.Content == "hello" {
			found = true
		}
	}
	if !found {
		t.Fatal("optimistic user message not appended before network resolution")
	}

	// 网络调用失败后消息依然保留
	close(release)
	time.Sleep(50 * time.Millisecond)

	found = false
	for _, m := range sess.State.Transcript() {
		if m.Role == entity.RoleUser && m.Content == "hello" {
			found = true
		}
	}
	if !found {
		t.Fatal("optimistic user message rolled back on failure, want preserved")
	}
}

func TestSubmitFollowUpSurvivesRequestCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{
		submitFn: func(prompt string) (*generation.Result, error) {
			return simpleSubmitResult(), nil
		},
		continueCtxFn: func(ctx context.Context, conversationID, message string) (*generation.Result, error) {
			close(started)
			<-release
			// 真实客户端经 http.NewRequestWithContext 绑定上下文，
			// 取消会在此处中断网络调用
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &generation.Result{
				Messages: []generation.TurnMessage{{Role: "assistant", Content: "made it blue"}},
			}, nil
		},
	}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a portfolio")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	if _, err := env.svc.SubmitFollowUp(reqCtx, project.ID, "make it blue"); err != nil {
		t.Fatalf("SubmitFollowUp error: %v", err)
	}

	// 处理器返回 202 后 net/http 随即取消请求上下文
	<-started
	cancel()
	close(release)

	deadline := time.Now().Add(time.Second)
	for {
		sess, _ := env.svc.registry.Get(project.ID)
		found := false
		for _, m := range sess.State.Transcript() {
			if m.Role == entity.RoleAssistant && m.Content == "made it blue" {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("assistant reply not merged, background turn aborted with request context")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// 合并持久化同样不受请求取消影响
	msgs, _ := env.messages.ListByProject(context.Background(), project.ID)
	persisted := false
	for _, m := range msgs {
		if m.Role == entity.RoleAssistant && m.Content == "made it blue" {
			persisted = true
		}
	}
	if !persisted {
		t.Error("assistant reply not persisted after request context cancellation")
	}
}

func TestConversationBindingPersistedWithoutPreviewChange(t *testing.T) {
	gen := &fakeGenerator{submitFn: func(prompt string) (*generation.Result, error) {
		return &generation.Result{
			ConversationID: "c9",
			Messages:       []generation.TurnMessage{{Role: "assistant", Content: "working on it"}},
		}, nil
	}}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a newsletter")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	// 预览 URL 未变化时会话绑定也必须落库，否则重启后无法继续对话
	stored, _ := env.projects.GetByID(context.Background(), project.ID)
	if stored.ConversationID != "c9" {
		t.Fatalf("persisted conversation id = %q, want c9", stored.ConversationID)
	}
}

func TestSubmitFollowUpWithoutConversation(t *testing.T) {
	gen := &fakeGenerator{}
	env := newTestEnv(t, gen)

	project := entity.NewProject("no conversation yet")
	env.projects.Create(context.Background(), project)

	if _, err := env.svc.SubmitFollowUp(context.Background(), project.ID, "hi"); err == nil {
		t.Fatal("SubmitFollowUp without conversation id should fail")
	}
}

func TestAutoRecoveryFlow(t *testing.T) {
	gen := &fakeGenerator{
		submitFn: func(prompt string) (*generation.Result, error) {
			return simpleSubmitResult(), nil
		},
		continueFn: func(conversationID, message string) (*generation.Result, error) {
			return &generation.Result{
				PreviewURL: "https://preview/2",
				Messages:   []generation.TurnMessage{{Role: "assistant", Content: "Fixed it"}},
			}, nil
		},
	}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "dark cyberpunk theme")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	// 级联故障：多条合格信号快速到达
	for i := 0; i < 3; i++ {
		err := env.svc.HandlePreviewEvent(context.Background(), project.ID, &PreviewEvent{
			Kind:    EventConsole,
			Message: "ChunkLoadError: Loading chunk 3 failed",
		})
		if err != nil {
			t.Fatalf("HandlePreviewEvent error: %v", err)
		}
	}

	time.Sleep(150 * time.Millisecond)

	if got := gen.continueCount(); got != 1 {
		t.Fatalf("recovery continue calls = %d, want exactly 1", got)
	}

	sess, _ := env.svc.registry.Get(project.ID)
	if got := sess.State.PreviewURL(); got != "https://preview/2" {
		t.Errorf("preview url = %q, want https://preview/2", got)
	}
	if sess.State.Error() != nil {
		t.Errorf("error = %+v, want cleared after recovery", sess.State.Error())
	}
	if got := sess.Monitor.State(); got != "loading" {
		t.Errorf("monitor state = %s, want loading for new URL", got)
	}

	found := false
	for _, m := range sess.State.Transcript() {
		if m.Role == entity.RoleAssistant && m.Content == "Fixed it" {
			found = true
		}
	}
	if !found {
		t.Error("assistant recovery reply not merged into transcript")
	}
}

func TestRecoveryFailureKeepsError(t *testing.T) {
	gen := &fakeGenerator{
		submitFn: func(prompt string) (*generation.Result, error) {
			return simpleSubmitResult(), nil
		},
		continueFn: func(conversationID, message string) (*generation.Result, error) {
			return nil, errors.New("generation api down")
		},
	}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a shop")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	env.svc.HandlePreviewEvent(context.Background(), project.ID, &PreviewEvent{
		Kind:    EventError,
		Message: "ChunkLoadError: Loading chunk 1 failed",
	})

	time.Sleep(100 * time.Millisecond)

	sess, _ := env.svc.registry.Get(project.ID)
	if sess.State.Error() == nil {
		t.Fatal("error cleared after failed recovery, want preserved for manual fallback")
	}
	if got := sess.State.PreviewURL(); got != "https://preview/1" {
		t.Errorf("preview url = %q, want unchanged https://preview/1", got)
	}
}

func TestRetryPreviewBudget(t *testing.T) {
	gen := &fakeGenerator{submitFn: func(prompt string) (*generation.Result, error) {
		return simpleSubmitResult(), nil
	}}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a landing page")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	for i := 1; i <= 2; i++ {
		outcome, err := env.svc.RetryPreview(context.Background(), project.ID)
		if err != nil {
			t.Fatalf("RetryPreview error: %v", err)
		}
		if !outcome.Allowed {
			t.Fatalf("retry %d not allowed, want allowed", i)
		}
		if outcome.RetryURL == "" {
			t.Errorf("retry %d has empty retry url", i)
		}
	}

	outcome, err := env.svc.RetryPreview(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("RetryPreview error: %v", err)
	}
	if outcome.Allowed {
		t.Fatal("third retry allowed, want refused (budget exhausted)")
	}
	if outcome.RetryCount != 2 || outcome.MaxRetries != 2 {
		t.Errorf("outcome = %+v, want count 2 of 2", outcome)
	}
}

func TestLoadedEventStopsTimeout(t *testing.T) {
	gen := &fakeGenerator{submitFn: func(prompt string) (*generation.Result, error) {
		return simpleSubmitResult(), nil
	}}
	env := newTestEnv(t, gen)

	project, _ := env.svc.SubmitPrompt(context.Background(), "a blog")
	env.svc.HandlePreviewEvent(context.Background(), project.ID, &PreviewEvent{Kind: EventLoaded})

	// 等待超过 LoadTimeout，确认不会迟到地进入 Errored
	time.Sleep(300 * time.Millisecond)

	sess, _ := env.svc.registry.Get(project.ID)
	if got := sess.Monitor.State(); got != "loaded" {
		t.Errorf("monitor state = %s, want loaded (timeout must not fire)", got)
	}
}

func TestPublishFlow(t *testing.T) {
	gen := &fakeGenerator{submitFn: func(prompt string) (*generation.Result, error) {
		return simpleSubmitResult(), nil
	}}
	env := newTestEnv(t, gen)

	project, err := env.svc.SubmitPrompt(context.Background(), "a docs site")
	if err != nil {
		t.Fatalf("SubmitPrompt error: %v", err)
	}

	published, err := env.svc.Publish(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if published.DeploymentID != "deploy-1" {
		t.Errorf("deployment id = %q, want deploy-1", published.DeploymentID)
	}
	if published.DeploymentStatus != entity.DeploymentStatusPending {
		t.Errorf("deployment status = %s, want pending", published.DeploymentStatus)
	}
}

func TestPublishWithoutFiles(t *testing.T) {
	gen := &fakeGenerator{}
	env := newTestEnv(t, gen)

	project := entity.NewProject("empty")
	env.projects.Create(context.Background(), project)

	if _, err := env.svc.Publish(context.Background(), project.ID); err == nil {
		t.Fatal("Publish without generated files should fail")
	}
}

func TestSessionViewProcessingFlags(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{
		submitFn: func(prompt string) (*generation.Result, error) {
			return simpleSubmitResult(), nil
		},
		continueFn: func(conversationID, message string) (*generation.Result, error) {
			<-release
			return &generation.Result{}, nil
		},
	}
	env := newTestEnv(t, gen)

	project, _ := env.svc.SubmitPrompt(context.Background(), "a wiki")
	env.svc.SubmitFollowUp(context.Background(), project.ID, "make it blue")

	time.Sleep(20 * time.Millisecond)

	view, err := env.svc.SessionView(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("SessionView error: %v", err)
	}
	if !view.Processing[ActionContinueChat] {
		t.Error("continue-chat should be reported as processing")
	}
	if view.Processing[ActionGenerate] {
		t.Error("generate should not be reported as processing")
	}

	close(release)
}

func TestGetProjectNotFound(t *testing.T) {
	gen := &fakeGenerator{}
	env := newTestEnv(t, gen)

	if _, err := env.svc.GetProject(context.Background(), "missing"); err == nil {
		t.Fatal("GetProject for unknown id should fail")
	}
}
