package repository

import (
	"context"

	"ai-sitegen-api/internal/domain/entity"
)

// MessageRepository 会话消息仓储接口（仅追加）
type MessageRepository interface {
	// Create 追加一条消息
	Create(ctx context.Context, msg *entity.ChatMessage) error

	// CreateBatch 按序追加多条消息
	CreateBatch(ctx context.Context, msgs []*entity.ChatMessage) error

	// ListByProject 按时间顺序获取项目全部消息
	ListByProject(ctx context.Context, projectID string) ([]*entity.ChatMessage, error)

	// CountByProject 统计项目消息数
	CountByProject(ctx context.Context, projectID string) (int64, error)
}
