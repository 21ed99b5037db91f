// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ai-sitegen-api/internal/domain/entity"
)

// MessageRepository 会话消息仓储实现
type MessageRepository struct {
	client *Client
}

// NewMessageRepository 创建会话消息仓储
func NewMessageRepository(client *Client) *MessageRepository {
	return &MessageRepository{client: client}
}

// Create 追加一条消息
func (r *MessageRepository) Create(ctx context.Context, msg *entity.ChatMessage) error {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.Create")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	metadataJSON, _ := json.Marshal(msg.Metadata)

	query := `
		INSERT INTO chat_messages (id, project_id, role, content, metadata, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		msg.ProjectID, msg.Role, msg.Content, metadataJSON,
	).Scan(&msg.ID, &msg.CreatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// CreateBatch 按序追加多条消息
func (r *MessageRepository) CreateBatch(ctx context.Context, msgs []*entity.ChatMessage) error {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.CreateBatch")
	defer span.End()

	for _, msg := range msgs {
		if err := r.Create(ctx, msg); err != nil {
			span.RecordError(err)
			return err
		}
	}

	return nil
}

// ListByProject 按时间顺序获取项目全部消息
func (r *MessageRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.ListByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		SELECT id, project_id, role, content, metadata, created_at
		FROM chat_messages
		WHERE project_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*entity.ChatMessage
	for rows.Next() {
		var msg entity.ChatMessage
		var metadataJSON []byte

		if err := rows.Scan(&msg.ID, &msg.ProjectID, &msg.Role, &msg.Content, &metadataJSON, &msg.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(metadataJSON) > 0 {
			json.Unmarshal(metadataJSON, &msg.Metadata)
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

// CountByProject 统计项目消息数
func (r *MessageRepository) CountByProject(ctx context.Context, projectID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.CountByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	var count int64
	query := `SELECT COUNT(*) FROM chat_messages WHERE project_id = $1`
	if err := q.QueryRowContext(ctx, query, projectID).Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}
