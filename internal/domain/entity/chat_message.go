package entity

import (
	"time"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageMetadata 消息附加元数据
type MessageMetadata struct {
	IsError          bool   `json:"is_error,omitempty"`
	ErrorDetails     string `json:"error_details,omitempty"`
	OriginalPrompt   string `json:"original_prompt,omitempty"`
	ProcessingTimeMs int    `json:"processing_time_ms,omitempty"`
}

// ChatMessage 会话消息实体（仅追加，核心从不删除消息）
type ChatMessage struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"project_id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewChatMessage 创建会话消息
func NewChatMessage(projectID string, role Role, content string, metadata *MessageMetadata) *ChatMessage {
	return &ChatMessage{
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
