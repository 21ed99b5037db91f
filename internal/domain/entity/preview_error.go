package entity

import (
	"time"
)

// PreviewErrorKind 预览错误分类
type PreviewErrorKind string

const (
	// PreviewErrorLoad 预览在传输/嵌入层面加载失败
	PreviewErrorLoad PreviewErrorKind = "load_error"
	// PreviewErrorRuntime 预览已加载但生成代码抛错或渲染了错误页
	PreviewErrorRuntime PreviewErrorKind = "runtime_error"
	// PreviewErrorNetwork 超时或到达预览的连接失败
	PreviewErrorNetwork PreviewErrorKind = "network_error"
)

// PreviewError 规范化的预览错误（仅存于会话内存，按需投影到消息元数据或项目错误历史）
type PreviewError struct {
	Kind       PreviewErrorKind `json:"kind"`
	Message    string           `json:"message"`
	SourceURL  string           `json:"source_url,omitempty"`
	DetectedAt time.Time        `json:"detected_at"`
}

// NewPreviewError 创建预览错误
func NewPreviewError(kind PreviewErrorKind, message, sourceURL string) *PreviewError {
	return &PreviewError{
		Kind:       kind,
		Message:    message,
		SourceURL:  sourceURL,
		DetectedAt: time.Now(),
	}
}
