// Package session 实现生成会话编排：共享状态、动作串行化与对话式恢复协议
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ai-sitegen-api/internal/application/preview"
	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/infrastructure/deployment"
	"ai-sitegen-api/internal/infrastructure/generation"
	"ai-sitegen-api/internal/infrastructure/messaging"
	rediscache "ai-sitegen-api/internal/infrastructure/persistence/redis"
	apperrors "ai-sitegen-api/pkg/errors"
	"ai-sitegen-api/pkg/logger"
	"ai-sitegen-api/pkg/metrics"
)

// projectCacheTTL 项目读缓存有效期
const projectCacheTTL = 5 * time.Minute

// Generator 生成 API 抽象
type Generator interface {
	Submit(ctx context.Context, prompt string) (*generation.Result, error)
	Continue(ctx context.Context, conversationID, message string) (*generation.Result, error)
}

// Deployer 部署 API 抽象
type Deployer interface {
	CreateDeployment(ctx context.Context, projectID string, files []deployment.FilePayload) (*deployment.Info, error)
	GetStatus(ctx context.Context, deploymentID string) (*deployment.Info, error)
	GetLogs(ctx context.Context, deploymentID string) ([]deployment.LogEntry, error)
}

// EventProducer 预览事件/部署任务的流式投递抽象
type EventProducer interface {
	PublishDeployCheck(ctx context.Context, check *messaging.DeployCheckMessage) (string, error)
	PublishPreviewEvent(ctx context.Context, event *messaging.PreviewEventMessage) (string, error)
}

// ProjectCache 项目读缓存抽象
type ProjectCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
	InvalidateProject(ctx context.Context, projectID string) error
}

// ActionResult 一次串行化动作的最终结果
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PreviewEvent 浏览器上报的预览生命周期事件
type PreviewEvent struct {
	Kind      string `json:"kind"`
	Message   string `json:"message,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// 预览事件类型
const (
	EventLoaded    = "loaded"
	EventConsole   = "console"
	EventError     = "error"
	EventRejection = "rejection"
)

// RetryOutcome 手动重试的结果
type RetryOutcome struct {
	Allowed    bool   `json:"allowed"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	RetryURL   string `json:"retry_url,omitempty"`
}

// View 会话可观测状态快照
type View struct {
	ProjectID  string               `json:"project_id"`
	PreviewURL string               `json:"preview_url,omitempty"`
	ViewMode   ViewMode             `json:"view_mode"`
	Error      *entity.PreviewError `json:"error,omitempty"`
	Monitor    preview.Snapshot     `json:"monitor"`
	Transcript []*entity.ChatMessage `json:"transcript"`
	Processing map[string]bool      `json:"processing"`
	QueueDepth int                  `json:"queue_depth"`
}

// Service 会话编排服务，对外暴露核心操作面
type Service struct {
	cfg *config.Config

	projects repository.ProjectRepository
	messages repository.MessageRepository
	files    repository.FileRepository
	txMgr    repository.Transactor

	generator Generator
	deployer  Deployer
	producer  EventProducer
	cache     ProjectCache

	classifier *preview.Classifier
	recovery   *RecoveryController
	registry   *Registry
}

// NewService 创建会话编排服务
func NewService(
	cfg *config.Config,
	projects repository.ProjectRepository,
	messages repository.MessageRepository,
	files repository.FileRepository,
	txMgr repository.Transactor,
	generator Generator,
	deployer Deployer,
	producer EventProducer,
	cache ProjectCache,
	fetcher preview.DocumentFetcher,
) *Service {
	s := &Service{
		cfg:        cfg,
		projects:   projects,
		messages:   messages,
		files:      files,
		txMgr:      txMgr,
		generator:  generator,
		deployer:   deployer,
		producer:   producer,
		cache:      cache,
		classifier: preview.NewClassifier(),
	}

	s.recovery = NewRecoveryController(&cfg.Recovery, generator, messages, s.mergeGenerationTurn)

	s.registry = NewRegistry(func(projectID string) *Session {
		sess := &Session{
			ProjectID:  projectID,
			State:      NewState(),
			Serializer: NewSerializer(),
			CreatedAt:  time.Now(),
		}
		sess.Monitor = preview.NewMonitor(&cfg.Preview, func(url string, e *entity.PreviewError) {
			s.handleSignal(projectID, e, false)
		})
		sess.Watcher = preview.NewWatcher(&cfg.Preview, s.classifier, fetcher, func(pid string, e *entity.PreviewError, auto bool) {
			s.handleSignal(pid, e, auto)
		})
		return sess
	})

	return s
}

// SubmitPrompt 提交初始生成请求。
// 在 generate 槽位串行执行，阻塞等待本次动作完成后返回项目。
func (s *Service) SubmitPrompt(ctx context.Context, prompt string) (*entity.Project, error) {
	if prompt == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "prompt is required")
	}

	project := entity.NewProject(prompt)
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create project")
	}

	sess := s.registry.GetOrCreate(project.ID)
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, project.ID)

	// 用户的设计提示词作为首条消息进入会话记录
	userMsg := entity.NewChatMessage(project.ID, entity.RoleUser, prompt, nil)
	sess.State.AppendMessages(userMsg)
	if err := s.messages.Create(ctx, userMsg); err != nil {
		logger.FromContext(ctx).Error("failed to persist prompt message", "error", err)
	}

	// 调用方放弃等待后合并持久化仍须完成，回调走脱离取消链的上下文
	actionCtx := context.WithoutCancel(ctx)
	done := make(chan ActionResult, 1)
	sess.Serializer.Execute(actionCtx, &Action{
		ID: ActionGenerate,
		Run: func(ctx context.Context) (interface{}, error) {
			return s.generator.Submit(ctx, prompt)
		},
		OnSuccess: func(result interface{}) {
			res := result.(*generation.Result)
			if err := s.mergeGenerationTurn(actionCtx, sess, project, res); err != nil {
				done <- ActionResult{Error: err.Error()}
				return
			}
			done <- ActionResult{Success: true}
		},
		OnError: func(msg string) {
			if err := s.projects.UpdateStatus(actionCtx, project.ID, entity.ProjectStatusError); err != nil {
				logger.FromContext(actionCtx).Error("failed to mark project errored", "error", err)
			}
			done <- ActionResult{Error: msg}
		},
	})

	select {
	case result := <-done:
		if !result.Success {
			return project, apperrors.New(apperrors.CodeGenerationFailed, "site generation failed").WithDetail(result.Error)
		}
		return project, nil
	case <-ctx.Done():
		return project, apperrors.Wrap(ctx.Err(), apperrors.CodeGenerationFailed, "generation interrupted")
	}
}

// SubmitFollowUp 提交后续对话轮次。
// 用户消息被乐观追加（网络调用完成前即可见），失败也不回滚。
func (s *Service) SubmitFollowUp(ctx context.Context, projectID, text string) (*entity.ChatMessage, error) {
	if text == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "message is required")
	}

	sess, project, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ConversationID == "" {
		return nil, apperrors.ErrConversationMissing
	}

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)

	// 乐观追加：失败的后续请求不应隐藏用户问了什么
	userMsg := entity.NewChatMessage(projectID, entity.RoleUser, text, nil)
	sess.State.AppendMessages(userMsg)
	if err := s.messages.Create(ctx, userMsg); err != nil {
		logger.FromContext(ctx).Error("failed to persist follow-up message", "error", err)
	}

	// 处理器返回 202 后请求上下文随即被取消，后台轮次及其合并
	// 持久化必须脱离该取消链执行
	ctx = context.WithoutCancel(ctx)

	sess.Serializer.Execute(ctx, &Action{
		ID: ActionContinueChat,
		Run: func(ctx context.Context) (interface{}, error) {
			return s.generator.Continue(ctx, project.ConversationID, text)
		},
		OnSuccess: func(result interface{}) {
			res := result.(*generation.Result)
			if err := s.mergeGenerationTurn(ctx, sess, project, res); err != nil {
				logger.FromContext(ctx).Error("failed to merge follow-up result", "error", err)
			}
		},
		OnError: func(msg string) {
			logger.FromContext(ctx).Error("follow-up turn failed", "error", msg)
		},
	})

	return userMsg, nil
}

// RetryPreview 手动重试预览加载，受重试预算约束
func (s *Service) RetryPreview(ctx context.Context, projectID string) (*RetryOutcome, error) {
	sess, _, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return nil, err
	}

	allowed := sess.Monitor.Retry()
	snap := sess.Monitor.GetSnapshot()

	outcome := &RetryOutcome{
		Allowed:    allowed,
		RetryCount: snap.RetryCount,
		MaxRetries: snap.MaxRetries,
	}
	if allowed {
		outcome.RetryURL = cacheBustURL(snap.URL, snap.RetryCount)
	}
	return outcome, nil
}

// ForceShowPreview 无条件标记预览为已加载（保留底层故障记录）
func (s *Service) ForceShowPreview(ctx context.Context, projectID string) error {
	sess, _, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return err
	}
	sess.Monitor.ForceLoad()
	return nil
}

// HandlePreviewEvent 接收浏览器上报的预览生命周期事件
func (s *Service) HandlePreviewEvent(ctx context.Context, projectID string, event *PreviewEvent) error {
	sess, _, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return err
	}

	switch event.Kind {
	case EventLoaded:
		sess.Monitor.ReportLoaded()
		sess.Watcher.OnLoaded()
	case EventConsole:
		sess.Watcher.IngestConsole(event.Message)
	case EventError, EventRejection:
		sess.Watcher.IngestError(event.Message, event.SourceURL)
	default:
		return apperrors.New(apperrors.CodeInvalidParam, "unknown preview event kind").WithDetail(event.Kind)
	}

	// 事件归档尽力而为，失败不影响主流程
	if s.producer != nil {
		_, err := s.producer.PublishPreviewEvent(ctx, &messaging.PreviewEventMessage{
			EventID:    uuid.NewString(),
			ProjectID:  projectID,
			Kind:       event.Kind,
			Message:    event.Message,
			SourceURL:  event.SourceURL,
			OccurredAt: time.Now(),
		})
		if err != nil {
			logger.FromContext(ctx).Warn("failed to archive preview event", "error", err)
		}
	}

	return nil
}

// Publish 发布当前文件批次到部署服务
func (s *Service) Publish(ctx context.Context, projectID string) (*entity.Project, error) {
	sess, project, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return nil, err
	}

	current, err := s.files.ListCurrent(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load current files")
	}
	if len(current) == 0 {
		return nil, apperrors.New(apperrors.CodeFileNotFound, "no generated files to publish")
	}

	payloads := make([]deployment.FilePayload, 0, len(current))
	for _, f := range current {
		payloads = append(payloads, deployment.FilePayload{Filename: f.Filename, Content: f.Content})
	}

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	actionCtx := context.WithoutCancel(ctx)
	done := make(chan ActionResult, 1)

	sess.Serializer.Execute(actionCtx, &Action{
		ID: ActionPublish,
		Run: func(ctx context.Context) (interface{}, error) {
			return s.deployer.CreateDeployment(ctx, projectID, payloads)
		},
		OnSuccess: func(result interface{}) {
			info := result.(*deployment.Info)
			status := mapDeploymentStatus(info.Status)
			if status == entity.DeploymentStatusNone {
				status = entity.DeploymentStatusPending
			}
			project.DeploymentStatus = status
			project.DeploymentID = info.ID
			project.DeploymentURL = info.URL
			if err := s.projects.UpdateDeployment(actionCtx, projectID, status, info.ID, info.URL); err != nil {
				done <- ActionResult{Error: err.Error()}
				return
			}
			metrics.DeploymentTotal.WithLabelValues("created").Inc()
			s.invalidateCache(actionCtx, projectID)

			// 交给后台轮询器跟踪部署状态
			if s.producer != nil {
				_, err := s.producer.PublishDeployCheck(actionCtx, &messaging.DeployCheckMessage{
					ProjectID:    projectID,
					DeploymentID: info.ID,
					Attempt:      1,
					NotBefore:    time.Now().Add(s.cfg.Deployment.PollInterval),
					Deadline:     time.Now().Add(s.cfg.Deployment.PollTimeout),
				})
				if err != nil {
					logger.FromContext(actionCtx).Warn("failed to schedule deployment poll", "error", err)
				}
			}
			done <- ActionResult{Success: true}
		},
		OnError: func(msg string) {
			metrics.DeploymentTotal.WithLabelValues("error").Inc()
			if err := s.projects.UpdateDeployment(actionCtx, projectID, entity.DeploymentStatusError, project.DeploymentID, project.DeploymentURL); err != nil {
				logger.FromContext(actionCtx).Error("failed to mark deployment errored", "error", err)
			}
			done <- ActionResult{Error: msg}
		},
	})

	select {
	case result := <-done:
		if !result.Success {
			return project, apperrors.New(apperrors.CodeDeploymentFailed, "deployment failed").WithDetail(result.Error)
		}
		return project, nil
	case <-ctx.Done():
		return project, apperrors.Wrap(ctx.Err(), apperrors.CodeDeploymentFailed, "deployment interrupted")
	}
}

// RefreshDeploymentStatus 主动查询并回写部署状态
func (s *Service) RefreshDeploymentStatus(ctx context.Context, projectID string) (*entity.Project, error) {
	sess, project, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.DeploymentID == "" {
		return nil, apperrors.New(apperrors.CodeNotFound, "project has no deployment")
	}

	actionCtx := context.WithoutCancel(ctx)
	done := make(chan ActionResult, 1)
	sess.Serializer.Execute(actionCtx, &Action{
		ID: ActionDeployStatus,
		Run: func(ctx context.Context) (interface{}, error) {
			return s.deployer.GetStatus(ctx, project.DeploymentID)
		},
		OnSuccess: func(result interface{}) {
			info := result.(*deployment.Info)
			status := mapDeploymentStatus(info.Status)
			project.DeploymentStatus = status
			if info.URL != "" {
				project.DeploymentURL = info.URL
			}
			if err := s.projects.UpdateDeployment(actionCtx, projectID, status, project.DeploymentID, project.DeploymentURL); err != nil {
				done <- ActionResult{Error: err.Error()}
				return
			}
			s.invalidateCache(actionCtx, projectID)
			done <- ActionResult{Success: true}
		},
		OnError: func(msg string) {
			done <- ActionResult{Error: msg}
		},
	})

	select {
	case result := <-done:
		if !result.Success {
			return project, apperrors.New(apperrors.CodeDeploymentAPIError, "deployment status query failed").WithDetail(result.Error)
		}
		return project, nil
	case <-ctx.Done():
		return project, ctx.Err()
	}
}

// GetDeploymentLogs 获取部署日志
func (s *Service) GetDeploymentLogs(ctx context.Context, projectID string) ([]deployment.LogEntry, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.DeploymentID == "" {
		return nil, apperrors.New(apperrors.CodeNotFound, "project has no deployment")
	}
	return s.deployer.GetLogs(ctx, project.DeploymentID)
}

// SessionView 获取会话可观测状态
func (s *Service) SessionView(ctx context.Context, projectID string) (*View, error) {
	sess, _, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return nil, err
	}

	processing := make(map[string]bool, 5)
	for _, id := range []string{ActionGenerate, ActionContinueChat, ActionErrorRecovery, ActionPublish, ActionDeployStatus} {
		processing[id] = sess.Serializer.IsProcessing(id)
	}

	return &View{
		ProjectID:  projectID,
		PreviewURL: sess.State.PreviewURL(),
		ViewMode:   sess.State.ViewMode(),
		Error:      sess.State.Error(),
		Monitor:    sess.Monitor.GetSnapshot(),
		Transcript: sess.State.Transcript(),
		Processing: processing,
		QueueDepth: sess.Serializer.QueueDepth(),
	}, nil
}

// SetViewMode 切换会话视图模式（预览 / 生成文件兜底）
func (s *Service) SetViewMode(ctx context.Context, projectID string, mode ViewMode) error {
	sess, _, err := s.ensureSession(ctx, projectID)
	if err != nil {
		return err
	}
	if mode != ViewPreview && mode != ViewCode {
		return apperrors.New(apperrors.CodeInvalidParam, "unknown view mode").WithDetail(string(mode))
	}
	sess.State.SetViewMode(mode)
	return nil
}

// GetProject 获取项目详情
func (s *Service) GetProject(ctx context.Context, projectID string) (*entity.Project, error) {
	return s.getProject(ctx, projectID)
}

// ListProjects 获取项目列表
func (s *Service) ListProjects(ctx context.Context, filter *repository.ProjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	return s.projects.List(ctx, filter, pagination)
}

// ListMessages 获取项目会话消息
func (s *Service) ListMessages(ctx context.Context, projectID string) ([]*entity.ChatMessage, error) {
	if _, err := s.getProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.messages.ListByProject(ctx, projectID)
}

// ListFiles 获取项目文件批次，versionNo 为 0 时返回当前批次
func (s *Service) ListFiles(ctx context.Context, projectID string, versionNo int) ([]*entity.SiteFile, error) {
	if _, err := s.getProject(ctx, projectID); err != nil {
		return nil, err
	}
	if versionNo > 0 {
		return s.files.ListByVersion(ctx, projectID, versionNo)
	}
	return s.files.ListCurrent(ctx, projectID)
}

// handleSignal 统一处理监控器/观察器产生的预览错误信号。
// 来自计时器协程，使用独立上下文。
func (s *Service) handleSignal(projectID string, e *entity.PreviewError, auto bool) {
	ctx := logger.WithContext(context.Background(), logger.ProjectIDKey, projectID)
	log := logger.FromContext(ctx)

	sess, ok := s.registry.Get(projectID)
	if !ok {
		return
	}

	sess.Monitor.ReportError(e)
	sess.State.SetError(e)

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil || project == nil {
		log.Error("failed to load project for error signal", "error", err)
		return
	}

	project.RecordError(e)
	if err := s.projects.Update(ctx, project); err != nil {
		log.Error("failed to record error history", "error", err)
	}
	s.invalidateCache(ctx, projectID)

	log.Warn("preview error detected",
		"kind", e.Kind,
		"message", e.Message,
		"auto_recover", auto,
	)

	if auto {
		s.recovery.Recover(ctx, sess, project, e)
	}
}

// mergeGenerationTurn 将一次生成轮次的结果合并回会话状态与持久层
func (s *Service) mergeGenerationTurn(ctx context.Context, sess *Session, project *entity.Project, result *generation.Result) error {
	if result == nil {
		return fmt.Errorf("empty generation result")
	}

	conversationBound := false
	if result.ConversationID != "" && project.ConversationID == "" {
		project.ConversationID = result.ConversationID
		conversationBound = true
	}

	// 新预览 URL 使旧 URL 的健康状态失效并重新开始观察
	if result.PreviewURL != "" && result.PreviewURL != sess.State.PreviewURL() {
		sess.State.SetPreviewURL(result.PreviewURL)
		project.PreviewURL = result.PreviewURL
		if err := s.projects.UpdatePreview(ctx, project.ID, result.PreviewURL, project.ConversationID); err != nil {
			return fmt.Errorf("failed to persist preview url: %w", err)
		}
		conversationBound = false
		sess.Monitor.Observe(result.PreviewURL)
		sess.Watcher.Watch(project.ID, result.PreviewURL)
	}

	// 会话绑定即使没有新预览 URL 也要落库，否则重启后无法继续对话
	if conversationBound {
		if err := s.projects.UpdatePreview(ctx, project.ID, project.PreviewURL, project.ConversationID); err != nil {
			return fmt.Errorf("failed to persist conversation binding: %w", err)
		}
	}

	// 用户轮次已乐观追加过，只合并助手消息，避免 API 回显造成重复
	for _, m := range result.Messages {
		if m.Role == string(entity.RoleUser) {
			continue
		}
		msg := entity.NewChatMessage(project.ID, entity.RoleAssistant, m.Content, nil)
		sess.State.AppendMessages(msg)
		if err := s.messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to persist assistant message: %w", err)
		}
	}

	if len(result.Files) > 0 {
		batch := make([]*entity.SiteFile, 0, len(result.Files))
		for _, f := range result.Files {
			batch = append(batch, entity.NewSiteFile(project.ID, 0, f.Filename, f.Content, f.Language))
		}
		if _, err := s.files.ReplaceBatch(ctx, project.ID, batch); err != nil {
			return fmt.Errorf("failed to persist file batch: %w", err)
		}
	}

	if project.Status == entity.ProjectStatusError {
		project.ResolveErrors()
		if err := s.projects.Update(ctx, project); err != nil {
			logger.FromContext(ctx).Error("failed to resolve error history", "error", err)
		}
	}

	s.invalidateCache(ctx, project.ID)
	return nil
}

// ensureSession 加载项目并取得（必要时水合）其会话
func (s *Service) ensureSession(ctx context.Context, projectID string) (*Session, *entity.Project, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	sess := s.registry.GetOrCreate(projectID)

	// 进程重启后从持久层水合会话状态
	if sess.State.PreviewURL() == "" && project.PreviewURL != "" {
		sess.State.SetPreviewURL(project.PreviewURL)
		sess.Monitor.Observe(project.PreviewURL)
		sess.Watcher.Watch(projectID, project.PreviewURL)
	}
	if sess.State.TranscriptLen() == 0 {
		if msgs, err := s.messages.ListByProject(ctx, projectID); err == nil && len(msgs) > 0 {
			sess.State.ReplaceTranscript(msgs)
		}
	}

	return sess, project, nil
}

// getProject 经读缓存获取项目
func (s *Service) getProject(ctx context.Context, projectID string) (*entity.Project, error) {
	if projectID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "project id is required")
	}

	loader := func() (interface{}, error) {
		p, err := s.projects.GetByID(ctx, projectID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
		}
		if p == nil {
			return nil, apperrors.ErrProjectNotFound
		}
		return p, nil
	}

	if s.cache == nil {
		p, err := loader()
		if err != nil {
			return nil, err
		}
		return p.(*entity.Project), nil
	}

	data, err := s.cache.GetOrLoadSafe(ctx, rediscache.BuildProjectKey(projectID), projectCacheTTL, loader)
	if err != nil {
		return nil, err
	}

	var project entity.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to decode cached project")
	}
	return &project, nil
}

// invalidateCache 尽力而为地失效项目相关缓存
func (s *Service) invalidateCache(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProject(ctx, projectID); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate project cache", "error", err)
	}
}

// cacheBustURL 为重试拼接防缓存参数
func cacheBustURL(rawURL string, attempt int) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("retry", strconv.Itoa(attempt))
	u.RawQuery = q.Encode()
	return u.String()
}

// mapDeploymentStatus 部署 API 状态到领域状态的映射
func mapDeploymentStatus(status string) entity.DeploymentStatus {
	switch status {
	case "pending", "queued":
		return entity.DeploymentStatusPending
	case "building", "in_progress":
		return entity.DeploymentStatusBuilding
	case "ready", "succeeded":
		return entity.DeploymentStatusReady
	case "error", "failed", "canceled":
		return entity.DeploymentStatusError
	default:
		return entity.DeploymentStatusNone
	}
}
