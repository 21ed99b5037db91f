// Package preview 实现预览健康监控、错误分类与自动恢复决策
package preview

import (
	"sync"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/pkg/metrics"
)

// MonitorState 预览健康状态
type MonitorState string

const (
	// StateIdle 尚未观察任何预览
	StateIdle MonitorState = "idle"
	// StateLoading 预览加载中，超时计时器已启动
	StateLoading MonitorState = "loading"
	// StateLoaded 预览已成功渲染
	StateLoaded MonitorState = "loaded"
	// StateErrored 预览加载失败或运行异常
	StateErrored MonitorState = "errored"
)

// TimeoutFunc 加载超时回调
type TimeoutFunc func(url string, err *entity.PreviewError)

// Monitor 单个预览的健康监控状态机。
// 状态迁移：Idle → Loading → {Loaded | Errored}；Errored 可经 Retry 回到 Loading。
// 每次进入 Loading 递增世代令牌，过期计时器回调持有旧令牌时直接丢弃，
// 避免迟到的超时污染更新后的状态。
type Monitor struct {
	mu sync.Mutex

	loadTimeout time.Duration
	maxRetries  int
	backoff     time.Duration

	state      MonitorState
	url        string
	retryCount int
	lastErr    *entity.PreviewError
	gen        uint64
	timer      *time.Timer

	onTimeout TimeoutFunc
}

// Snapshot 监控状态快照
type Snapshot struct {
	State      MonitorState         `json:"state"`
	URL        string               `json:"url"`
	RetryCount int                  `json:"retry_count"`
	MaxRetries int                  `json:"max_retries"`
	LastError  *entity.PreviewError `json:"last_error,omitempty"`
}

// NewMonitor 创建预览健康监控器。
// onTimeout 在加载超时触发时回调（已持有归一化的 network_error），可为 nil。
func NewMonitor(cfg *config.PreviewConfig, onTimeout TimeoutFunc) *Monitor {
	loadTimeout := cfg.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetryAttempts
	if maxRetries <= 0 {
		maxRetries = 2
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Monitor{
		loadTimeout: loadTimeout,
		maxRetries:  maxRetries,
		backoff:     backoff,
		state:       StateIdle,
		onTimeout:   onTimeout,
	}
}

// Observe 开始观察新的预览 URL。
// 同一 URL 处于 Loading 时重复调用为幂等空操作；URL 变化时重置重试计数与错误，
// 旧 URL 的健康状态随之失效。
func (m *Monitor) Observe(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if url == "" {
		return
	}
	if m.url == url && m.state == StateLoading {
		return
	}

	if m.url != url {
		m.retryCount = 0
	}
	m.url = url
	m.lastErr = nil
	m.enterLoadingLocked()
}

// ReportLoaded 预览加载成功：进入 Loaded，清除超时计时器并重置重试计数
func (m *Monitor) ReportLoaded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.cancelTimerLocked()
	m.state = StateLoaded
	m.retryCount = 0
}

// ReportError 记录外部错误信号：进入 Errored，清除超时计时器。
// 本方法不触发恢复，恢复决策由调用方负责。
func (m *Monitor) ReportError(e *entity.PreviewError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.cancelTimerLocked()
	m.state = StateErrored
	m.lastErr = e
}

// Retry 请求手动重试。
// 允许时递增重试计数，经退避延迟后重新进入 Loading 并返回 true；
// 超出预算返回 false 且不改变当前状态。
func (m *Monitor) Retry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retryCount >= m.maxRetries {
		metrics.PreviewRetriesTotal.WithLabelValues("false").Inc()
		return false
	}

	m.retryCount++
	metrics.PreviewRetriesTotal.WithLabelValues("true").Inc()

	gen := m.gen
	time.AfterFunc(m.backoff, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen != gen {
			return
		}
		m.lastErr = nil
		m.enterLoadingLocked()
	})

	return true
}

// ForceLoad 无条件标记为 Loaded，不清除底层故障记录。
// 用于用户在加载缓慢/状态不明时选择继续查看。
func (m *Monitor) ForceLoad() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.cancelTimerLocked()
	m.state = StateLoaded
}

// State 获取当前状态
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetSnapshot 获取状态快照
func (m *Monitor) GetSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:      m.state,
		URL:        m.url,
		RetryCount: m.retryCount,
		MaxRetries: m.maxRetries,
		LastError:  m.lastErr,
	}
}

// enterLoadingLocked 进入 Loading 并启动超时计时器（调用方持锁）
func (m *Monitor) enterLoadingLocked() {
	m.gen++
	m.cancelTimerLocked()
	m.state = StateLoading

	gen := m.gen
	url := m.url
	m.timer = time.AfterFunc(m.loadTimeout, func() {
		m.timeoutFired(gen, url)
	})
}

// cancelTimerLocked 取消超时计时器（调用方持锁）
func (m *Monitor) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// timeoutFired 超时计时器回调，世代不匹配时丢弃
func (m *Monitor) timeoutFired(gen uint64, url string) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateLoading {
		m.mu.Unlock()
		return
	}

	err := entity.NewPreviewError(entity.PreviewErrorNetwork, "took too long to load", url)
	m.gen++
	m.timer = nil
	m.state = StateErrored
	m.lastErr = err
	onTimeout := m.onTimeout
	m.mu.Unlock()

	metrics.PreviewLoadTimeouts.Inc()

	if onTimeout != nil {
		onTimeout(url, err)
	}
}
