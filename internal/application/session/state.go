// Package session 实现生成会话编排：共享状态、动作串行化与对话式恢复协议
package session

import (
	"sync"

	"ai-sitegen-api/internal/domain/entity"
)

// ViewMode 会话视图模式
type ViewMode string

const (
	// ViewPreview 展示渲染后的预览
	ViewPreview ViewMode = "preview"
	// ViewCode 展示生成的源文件（预览损坏时的兜底路径）
	ViewCode ViewMode = "code"
)

// State 会话共享状态。
// 所有变更均为整字段替换（切片替换为新切片，不做原地修改），
// 读取方拿到的快照不会被后续写入改变。
type State struct {
	mu sync.RWMutex

	transcript []*entity.ChatMessage
	previewURL string
	viewMode   ViewMode
	currentErr *entity.PreviewError
}

// NewState 创建会话状态
func NewState() *State {
	return &State{
		viewMode: ViewPreview,
	}
}

// PreviewURL 当前预览 URL
func (s *State) PreviewURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previewURL
}

// SetPreviewURL 替换当前预览 URL
func (s *State) SetPreviewURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewURL = url
}

// Transcript 获取会话记录副本
func (s *State) Transcript() []*entity.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// TranscriptLen 会话记录长度
func (s *State) TranscriptLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcript)
}

// AppendMessages 追加消息：以新切片整体替换，不修改旧切片
func (s *State) AppendMessages(msgs ...*entity.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*entity.ChatMessage, 0, len(s.transcript)+len(msgs))
	next = append(next, s.transcript...)
	next = append(next, msgs...)
	s.transcript = next
}

// ReplaceTranscript 整体替换会话记录（从持久层加载时使用）
func (s *State) ReplaceTranscript(msgs []*entity.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*entity.ChatMessage, len(msgs))
	copy(next, msgs)
	s.transcript = next
}

// Error 当前待处理的预览错误
func (s *State) Error() *entity.PreviewError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentErr
}

// SetError 记录预览错误
func (s *State) SetError(e *entity.PreviewError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentErr = e
}

// ClearError 清除预览错误
func (s *State) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentErr = nil
}

// ViewMode 当前视图模式
func (s *State) ViewMode() ViewMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewMode
}

// SetViewMode 切换视图模式
func (s *State) SetViewMode(mode ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewMode = mode
}
