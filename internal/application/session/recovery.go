// Package session 实现生成会话编排：共享状态、动作串行化与对话式恢复协议
package session

import (
	"context"
	"fmt"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/infrastructure/generation"
	"ai-sitegen-api/pkg/logger"
	"ai-sitegen-api/pkg/metrics"
)

// MergeFunc 将一次生成轮次的结果合并回会话状态与持久层
type MergeFunc func(ctx context.Context, sess *Session, project *entity.Project, result *generation.Result) error

// RecoveryController 对话式恢复控制器。
// 把分类后的预览错误翻译为生成会话的下一轮修复请求，并将响应合并回状态。
type RecoveryController struct {
	enabled       bool
	includePrompt bool
	generator     Generator
	messages      repository.MessageRepository
	merge         MergeFunc
}

// NewRecoveryController 创建恢复控制器
func NewRecoveryController(cfg *config.RecoveryConfig, generator Generator, messages repository.MessageRepository, merge MergeFunc) *RecoveryController {
	return &RecoveryController{
		enabled:       cfg.Enabled,
		includePrompt: cfg.IncludeOriginalPrompt,
		generator:     generator,
		messages:      messages,
		merge:         merge,
	}
}

// Recover 发起一次自动恢复。
// 前置条件：存在待处理错误、项目已绑定会话 ID、error-recovery 槽位空闲。
// 返回是否实际派发了恢复动作。
func (c *RecoveryController) Recover(ctx context.Context, sess *Session, project *entity.Project, e *entity.PreviewError) bool {
	log := logger.FromContext(ctx)

	if !c.enabled || e == nil {
		return false
	}
	if project == nil || project.ConversationID == "" {
		log.Warn("recovery skipped: no conversation bound", "project_id", sess.ProjectID)
		return false
	}
	if sess.Serializer.IsPending(ActionErrorRecovery) {
		log.Info("recovery skipped: already in flight", "project_id", sess.ProjectID)
		return false
	}

	// 派发前清除待处理错误，防止同一错误重复触发
	sess.State.ClearError()

	prompt := c.buildRecoveryMessage(project, e)

	// 合成的恢复轮次作为用户消息进入会话记录，核心从不删除消息
	meta := &entity.MessageMetadata{
		IsError:      true,
		ErrorDetails: e.Message,
	}
	if c.includePrompt {
		meta.OriginalPrompt = project.Prompt
	}
	userMsg := entity.NewChatMessage(project.ID, entity.RoleUser, prompt, meta)
	sess.State.AppendMessages(userMsg)
	if err := c.messages.Create(ctx, userMsg); err != nil {
		log.Error("failed to persist recovery message", "error", err, "project_id", project.ID)
	}

	log.Info("dispatching auto recovery",
		"project_id", project.ID,
		"error_kind", e.Kind,
		"conversation_id", project.ConversationID,
	)

	sess.Serializer.Execute(ctx, &Action{
		ID: ActionErrorRecovery,
		Run: func(ctx context.Context) (interface{}, error) {
			return c.generator.Continue(ctx, project.ConversationID, prompt)
		},
		OnSuccess: func(result interface{}) {
			res := result.(*generation.Result)
			if err := c.merge(ctx, sess, project, res); err != nil {
				log.Error("failed to merge recovery result", "error", err, "project_id", project.ID)
				sess.State.SetError(e)
				metrics.RecoveryTotal.WithLabelValues("error").Inc()
				return
			}
			sess.State.ClearError()
			metrics.RecoveryTotal.WithLabelValues("success").Inc()
			log.Info("auto recovery succeeded", "project_id", project.ID)
		},
		OnError: func(msg string) {
			// 恢复失败不致命：保留原错误，用户仍可手动重试或改看生成文件
			sess.State.SetError(e)
			metrics.RecoveryTotal.WithLabelValues("error").Inc()
			log.Error("auto recovery failed", "error", msg, "project_id", project.ID)
		},
	})

	return true
}

// buildRecoveryMessage 构造固定模板的修复请求消息
func (c *RecoveryController) buildRecoveryMessage(project *entity.Project, e *entity.PreviewError) string {
	msg := fmt.Sprintf(
		"The generated site preview is failing with the following error:\n\n%s\n\nPlease fix the issue and return an updated version.",
		e.Message,
	)
	if c.includePrompt && project.Prompt != "" {
		msg += fmt.Sprintf("\n\nOriginal request: %s", project.Prompt)
	}
	return msg
}
