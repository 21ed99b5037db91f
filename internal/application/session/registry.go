// Package session 实现生成会话编排：共享状态、动作串行化与对话式恢复协议
package session

import (
	"sync"
	"time"

	"ai-sitegen-api/internal/application/preview"
	"ai-sitegen-api/pkg/metrics"
)

// Session 单个项目的交互会话。
// 状态、监控器、观察器与执行器都归会话所有，不同项目的会话互不干扰。
type Session struct {
	ProjectID  string
	State      *State
	Monitor    *preview.Monitor
	Watcher    *preview.Watcher
	Serializer *Serializer
	CreatedAt  time.Time
}

// Factory 会话构造函数，由服务层注入（负责接好监控/观察回调）
type Factory func(projectID string) *Session

// Registry 会话注册表
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
}

// NewRegistry 创建会话注册表
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// GetOrCreate 获取项目会话，不存在时创建
func (r *Registry) GetOrCreate(projectID string) *Session {
	r.mu.RLock()
	if sess, ok := r.sessions[projectID]; ok {
		r.mu.RUnlock()
		return sess
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[projectID]; ok {
		return sess
	}

	sess := r.factory(projectID)
	r.sessions[projectID] = sess
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return sess
}

// Get 获取已存在的项目会话
func (r *Registry) Get(projectID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[projectID]
	return sess, ok
}

// Remove 移除项目会话
func (r *Registry) Remove(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, projectID)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
