// Package deploywatch 实现部署状态的后台轮询
package deploywatch

import (
	"context"
	"fmt"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/infrastructure/deployment"
	"ai-sitegen-api/internal/infrastructure/messaging"
	"ai-sitegen-api/pkg/logger"
	"ai-sitegen-api/pkg/metrics"
)

// Deployer 部署状态查询抽象
type Deployer interface {
	GetStatus(ctx context.Context, deploymentID string) (*deployment.Info, error)
}

// Rescheduler 轮询任务再投递抽象
type Rescheduler interface {
	PublishDeployCheck(ctx context.Context, check *messaging.DeployCheckMessage) (string, error)
}

// ProjectCache 项目缓存失效抽象
type ProjectCache interface {
	InvalidateProject(ctx context.Context, projectID string) error
}

// Watcher 部署状态轮询器。
// 消费 deploy_check 任务：查询部署服务，终态回写项目，非终态按轮询间隔再投递。
type Watcher struct {
	pollInterval time.Duration
	projects     repository.ProjectRepository
	deployer     Deployer
	producer     Rescheduler
	cache        ProjectCache
}

// NewWatcher 创建部署状态轮询器
func NewWatcher(cfg *config.DeploymentConfig, projects repository.ProjectRepository, deployer Deployer, producer Rescheduler, cache ProjectCache) *Watcher {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Watcher{
		pollInterval: pollInterval,
		projects:     projects,
		deployer:     deployer,
		producer:     producer,
		cache:        cache,
	}
}

// HandleDeployCheck 处理一次部署状态检查任务
func (w *Watcher) HandleDeployCheck(ctx context.Context, msg *messaging.Message) error {
	var check messaging.DeployCheckMessage
	if err := msg.UnmarshalPayload(&check); err != nil {
		return fmt.Errorf("failed to unmarshal deploy check: %w", err)
	}

	log := logger.FromContext(ctx)

	// 投递早于轮询间隔时等到点再查，避免打爆部署服务
	if wait := time.Until(check.NotBefore); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !check.Deadline.IsZero() && time.Now().After(check.Deadline) {
		log.Warn("deployment polling deadline exceeded",
			"deployment_id", check.DeploymentID,
			"attempt", check.Attempt,
		)
		metrics.DeploymentTotal.WithLabelValues("timeout").Inc()
		return w.markTerminal(ctx, &check, entity.DeploymentStatusError, "")
	}

	info, err := w.deployer.GetStatus(ctx, check.DeploymentID)
	if err != nil {
		return fmt.Errorf("failed to query deployment status: %w", err)
	}

	switch mapStatus(info.Status) {
	case entity.DeploymentStatusReady:
		log.Info("deployment ready",
			"deployment_id", check.DeploymentID,
			"url", info.URL,
			"attempt", check.Attempt,
		)
		metrics.DeploymentTotal.WithLabelValues("ready").Inc()
		return w.markTerminal(ctx, &check, entity.DeploymentStatusReady, info.URL)

	case entity.DeploymentStatusError:
		log.Warn("deployment failed",
			"deployment_id", check.DeploymentID,
			"attempt", check.Attempt,
		)
		metrics.DeploymentTotal.WithLabelValues("failed").Inc()
		return w.markTerminal(ctx, &check, entity.DeploymentStatusError, info.URL)
	}

	// 构建中，回写中间状态并再投递
	if err := w.projects.UpdateDeployment(ctx, check.ProjectID, mapStatus(info.Status), check.DeploymentID, info.URL); err != nil {
		return fmt.Errorf("failed to update deployment status: %w", err)
	}
	w.invalidate(ctx, check.ProjectID)

	next := &messaging.DeployCheckMessage{
		ProjectID:    check.ProjectID,
		DeploymentID: check.DeploymentID,
		Attempt:      check.Attempt + 1,
		NotBefore:    time.Now().Add(w.pollInterval),
		Deadline:     check.Deadline,
	}
	if _, err := w.producer.PublishDeployCheck(ctx, next); err != nil {
		return fmt.Errorf("failed to reschedule deploy check: %w", err)
	}
	return nil
}

// HandlePreviewEvent 归档预览事件，作为排障审计日志落盘
func (w *Watcher) HandlePreviewEvent(ctx context.Context, msg *messaging.Message) error {
	var event messaging.PreviewEventMessage
	if err := msg.UnmarshalPayload(&event); err != nil {
		return fmt.Errorf("failed to unmarshal preview event: %w", err)
	}

	logger.FromContext(ctx).Info("preview event archived",
		"event_id", event.EventID,
		"project_id", event.ProjectID,
		"kind", event.Kind,
		"message", event.Message,
		"source_url", event.SourceURL,
		"occurred_at", event.OccurredAt,
	)
	return nil
}

// markTerminal 回写终态并失效缓存
func (w *Watcher) markTerminal(ctx context.Context, check *messaging.DeployCheckMessage, status entity.DeploymentStatus, url string) error {
	project, err := w.projects.GetByID(ctx, check.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		// 项目已删除，任务作废
		return nil
	}

	if url == "" {
		url = project.DeploymentURL
	}
	if err := w.projects.UpdateDeployment(ctx, check.ProjectID, status, check.DeploymentID, url); err != nil {
		return fmt.Errorf("failed to update deployment status: %w", err)
	}
	w.invalidate(ctx, check.ProjectID)
	return nil
}

func (w *Watcher) invalidate(ctx context.Context, projectID string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.InvalidateProject(ctx, projectID); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate project cache", "error", err)
	}
}

// DeployCheckExpired 判定一条轮询任务是否已越过截止时间。
// 作为消费者的过期钩子使用：反复失败的过期任务直接进死信队列，不再重试。
func DeployCheckExpired(msg *messaging.Message) bool {
	var check messaging.DeployCheckMessage
	if err := msg.UnmarshalPayload(&check); err != nil {
		return false
	}
	return !check.Deadline.IsZero() && time.Now().After(check.Deadline)
}

// mapStatus 部署 API 状态到领域状态的映射
func mapStatus(status string) entity.DeploymentStatus {
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
		return entity.DeploymentStatusPending
	}
}
