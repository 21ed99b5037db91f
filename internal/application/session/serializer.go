// Package session 实现生成会话编排：共享状态、动作串行化与对话式恢复协议
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-sitegen-api/pkg/logger"
	"ai-sitegen-api/pkg/metrics"
)

// 动作槽位标识
const (
	ActionGenerate      = "generate"
	ActionContinueChat  = "continue-chat"
	ActionErrorRecovery = "error-recovery"
	ActionPublish       = "publish"
	ActionDeployStatus  = "deployment-status"
)

// Action 一次有副作用的异步操作。
// OnSuccess 与 OnError 恰好有一个被调用一次。
type Action struct {
	ID        string
	Run       func(ctx context.Context) (interface{}, error)
	OnSuccess func(result interface{})
	OnError   func(msg string)
}

type queuedAction struct {
	ctx    context.Context
	action *Action
}

// Serializer 单并发槽 + FIFO 队列的动作执行器。
// 任意时刻至多一个动作在执行；执行中提交的动作按提交顺序排队，
// 前序动作（含其回调）完成后自动启动。异常被捕获并归一化为字符串
// 经 OnError 投递，不会向外传播。
type Serializer struct {
	mu        sync.Mutex
	running   bool
	currentID string
	queue     []queuedAction
}

// NewSerializer 创建动作执行器
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Execute 提交动作。空闲时立即执行，否则入队等待。
// 动作与调用方上下文的取消链解耦：提交方（如已返回 202 的 HTTP 处理器）
// 的请求上下文被取消不会中断动作本体，日志/追踪值仍随上下文传递。
func (s *Serializer) Execute(ctx context.Context, a *Action) {
	if a == nil || a.Run == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	if s.running {
		s.queue = append(s.queue, queuedAction{ctx: ctx, action: a})
		metrics.ActionQueueDepth.Set(float64(len(s.queue)))
		s.mu.Unlock()
		return
	}
	s.running = true
	s.currentID = a.ID
	s.mu.Unlock()

	go s.runLoop(ctx, a)
}

// IsProcessing 指定动作是否正在执行（排队中不算）
func (s *Serializer) IsProcessing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.currentID == id
}

// IsPending 指定动作是否在执行或排队中
func (s *Serializer) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running && s.currentID == id {
		return true
	}
	for _, q := range s.queue {
		if q.action.ID == id {
			return true
		}
	}
	return false
}

// QueueDepth 当前排队动作数
func (s *Serializer) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// runLoop 依次执行当前动作与所有排队后继
func (s *Serializer) runLoop(ctx context.Context, a *Action) {
	for a != nil {
		s.dispatch(ctx, a)

		s.mu.Lock()
		if len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			metrics.ActionQueueDepth.Set(float64(len(s.queue)))
			s.currentID = next.action.ID
			ctx, a = next.ctx, next.action
		} else {
			s.running = false
			s.currentID = ""
			a = nil
		}
		s.mu.Unlock()
	}
}

// dispatch 执行单个动作并投递恰好一次回调
func (s *Serializer) dispatch(ctx context.Context, a *Action) {
	start := time.Now()
	status := "success"
	delivered := false

	defer func() {
		if r := recover(); r != nil {
			status = "error"
			logger.FromContext(ctx).Error("action panicked", "action_id", a.ID, "panic", r)
			if !delivered && a.OnError != nil {
				a.OnError(fmt.Sprintf("internal error: %v", r))
			}
		}
		metrics.ActionDuration.WithLabelValues(a.ID, status).Observe(time.Since(start).Seconds())
	}()

	result, err := a.Run(ctx)
	if err != nil {
		status = "error"
		delivered = true
		if a.OnError != nil {
			a.OnError(err.Error())
		}
		return
	}

	delivered = true
	if a.OnSuccess != nil {
		a.OnSuccess(result)
	}
}
