package dto

import (
	"time"

	"ai-sitegen-api/internal/application/session"
	"ai-sitegen-api/internal/domain/entity"
)

// FollowUpRequest 后续对话请求
type FollowUpRequest struct {
	Message string `json:"message" binding:"required"`
}

// ViewModeRequest 视图模式切换请求
type ViewModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// MessageResponse 会话消息响应
type MessageResponse struct {
	ID        string                   `json:"id"`
	Role      string                   `json:"role"`
	Content   string                   `json:"content"`
	Metadata  *entity.MessageMetadata  `json:"metadata,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

// SessionViewResponse 会话可观测状态响应
type SessionViewResponse struct {
	ProjectID  string               `json:"project_id"`
	PreviewURL string               `json:"preview_url,omitempty"`
	ViewMode   string               `json:"view_mode"`
	Error      *PreviewErrorResponse `json:"error,omitempty"`
	Monitor    MonitorResponse      `json:"monitor"`
	Transcript []*MessageResponse   `json:"transcript"`
	Processing map[string]bool      `json:"processing"`
	QueueDepth int                  `json:"queue_depth"`
}

// MonitorResponse 预览健康监控快照响应
type MonitorResponse struct {
	State      string                `json:"state"`
	URL        string                `json:"url,omitempty"`
	RetryCount int                   `json:"retry_count"`
	MaxRetries int                   `json:"max_retries"`
	LastError  *PreviewErrorResponse `json:"last_error,omitempty"`
}

// PreviewErrorResponse 规范化预览错误响应
type PreviewErrorResponse struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	SourceURL  string    `json:"source_url,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// ToMessageResponse 转换会话消息为响应
func ToMessageResponse(m *entity.ChatMessage) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
	}
}

// ToMessageListResponse 转换会话消息列表为响应
func ToMessageListResponse(msgs []*entity.ChatMessage) []*MessageResponse {
	out := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ToMessageResponse(m))
	}
	return out
}

// ToPreviewErrorResponse 转换预览错误为响应
func ToPreviewErrorResponse(e *entity.PreviewError) *PreviewErrorResponse {
	if e == nil {
		return nil
	}
	return &PreviewErrorResponse{
		Kind:       string(e.Kind),
		Message:    e.Message,
		SourceURL:  e.SourceURL,
		DetectedAt: e.DetectedAt,
	}
}

// ToSessionViewResponse 转换会话状态快照为响应
func ToSessionViewResponse(v *session.View) *SessionViewResponse {
	return &SessionViewResponse{
		ProjectID:  v.ProjectID,
		PreviewURL: v.PreviewURL,
		ViewMode:   string(v.ViewMode),
		Error:      ToPreviewErrorResponse(v.Error),
		Monitor: MonitorResponse{
			State:      string(v.Monitor.State),
			URL:        v.Monitor.URL,
			RetryCount: v.Monitor.RetryCount,
			MaxRetries: v.Monitor.MaxRetries,
			LastError:  ToPreviewErrorResponse(v.Monitor.LastError),
		},
		Transcript: ToMessageListResponse(v.Transcript),
		Processing: v.Processing,
		QueueDepth: v.QueueDepth,
	}
}
