// Package preview 实现预览健康监控、错误分类与自动恢复决策
package preview

import (
	"context"
	"sync"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/pkg/metrics"
)

// HandlerFunc 错误处理回调。
// autoRecover 为 true 表示本次信号被授权自动触发恢复（每个 URL 至多一次）。
type HandlerFunc func(projectID string, e *entity.PreviewError, autoRecover bool)

// DocumentFetcher 预览文档抓取接口，用于加载完成后的错误标记巡检
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Watcher 预览错误信号观察器。
// 在拦截窗口内缓冲控制台信号并去抖合并，避免级联故障逐行触发恢复；
// 一次性守卫保证每个 URL 至多自动触发一次恢复，URL 更换即重置守卫。
type Watcher struct {
	mu sync.Mutex

	window         time.Duration
	debounce       time.Duration
	inspectDelay   time.Duration
	inspectTimeout time.Duration

	classifier *Classifier
	fetcher    DocumentFetcher
	handler    HandlerFunc

	projectID      string
	url            string
	gen            uint64
	windowDeadline time.Time
	buffer         []string
	debounceTimer  *time.Timer
	recoveryFired  bool
}

// NewWatcher 创建错误信号观察器
func NewWatcher(cfg *config.PreviewConfig, classifier *Classifier, fetcher DocumentFetcher, handler HandlerFunc) *Watcher {
	window := cfg.InterceptionWindow
	if window <= 0 {
		window = 20 * time.Second
	}
	debounce := cfg.ErrorDebounce
	if debounce <= 0 {
		debounce = time.Second
	}
	inspectDelay := cfg.InspectionDelay
	if inspectDelay <= 0 {
		inspectDelay = 3 * time.Second
	}
	inspectTimeout := cfg.InspectionTimeout
	if inspectTimeout <= 0 {
		inspectTimeout = 10 * time.Second
	}

	return &Watcher{
		window:         window,
		debounce:       debounce,
		inspectDelay:   inspectDelay,
		inspectTimeout: inspectTimeout,
		classifier:     classifier,
		fetcher:        fetcher,
		handler:        handler,
	}
}

// Watch 开始观察新的预览 URL：打开拦截窗口并重置一次性恢复守卫
func (w *Watcher) Watch(projectID, url string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	w.projectID = projectID
	w.url = url
	w.windowDeadline = time.Now().Add(w.window)
	w.buffer = nil
	w.recoveryFired = false
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
}

// IngestConsole 接收一行控制台输出。
// 窗口外或无匹配的行直接丢弃；匹配行先缓冲，经去抖合并后统一分类上报。
func (w *Watcher) IngestConsole(line string) {
	w.mu.Lock()

	if time.Now().After(w.windowDeadline) {
		w.mu.Unlock()
		return
	}
	if w.classifier.Classify(line) == nil {
		w.mu.Unlock()
		return
	}

	w.buffer = append(w.buffer, line)

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	gen := w.gen
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		w.flushBuffer(gen)
	})
	w.mu.Unlock()
}

// IngestError 接收已成形的错误/拒绝事件，立即分类上报
func (w *Watcher) IngestError(raw, sourceURL string) {
	w.mu.Lock()
	e := w.classifier.Classify(raw)
	if e == nil {
		w.mu.Unlock()
		return
	}
	if e.SourceURL == "" {
		e.SourceURL = sourceURL
	}
	w.emitLocked(e)
}

// OnLoaded 预览加载完成：拦截窗口自实际加载时刻重新起算（浏览器打开
// 预览往往晚于生成完成），随后延迟巡检文档内容，发现错误标记时按
// runtime_error 上报。文档抓取失败视为不可访问，静默跳过本检测路径。
func (w *Watcher) OnLoaded() {
	w.mu.Lock()
	gen := w.gen
	url := w.url
	w.windowDeadline = time.Now().Add(w.window)
	w.mu.Unlock()

	if w.fetcher == nil || url == "" {
		return
	}

	time.AfterFunc(w.inspectDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.inspectTimeout)
		defer cancel()

		doc, err := w.fetcher.Fetch(ctx, url)
		if err != nil {
			return
		}

		e := w.classifier.InspectDocument(doc)
		if e == nil {
			return
		}

		w.mu.Lock()
		if w.gen != gen {
			w.mu.Unlock()
			return
		}
		if e.SourceURL == "" {
			e.SourceURL = url
		}
		w.emitLocked(e)
	})
}

// flushBuffer 去抖计时器回调：合并缓冲行并上报单个归一化错误
func (w *Watcher) flushBuffer(gen uint64) {
	w.mu.Lock()

	if w.gen != gen || len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}

	lines := w.buffer
	w.buffer = nil
	w.debounceTimer = nil

	// 级联故障优先取可自动恢复的信号行
	var chosen *entity.PreviewError
	for _, line := range lines {
		e := w.classifier.Classify(line)
		if e == nil {
			continue
		}
		if chosen == nil {
			chosen = e
		}
		if w.classifier.IsAutoRecoverable(e) {
			chosen = e
			break
		}
	}

	if chosen == nil {
		w.mu.Unlock()
		return
	}
	if chosen.SourceURL == "" {
		chosen.SourceURL = w.url
	}
	w.emitLocked(chosen)
}

// emitLocked 上报归一化错误并执行一次性恢复决策。
// 进入时持锁，返回前释放锁（回调在锁外执行）。
func (w *Watcher) emitLocked(e *entity.PreviewError) {
	auto := w.classifier.IsAutoRecoverable(e)
	fireAuto := auto && !w.recoveryFired
	if fireAuto {
		w.recoveryFired = true
	}
	projectID := w.projectID
	handler := w.handler
	w.mu.Unlock()

	metrics.PreviewErrorsTotal.WithLabelValues(string(e.Kind), boolLabel(auto)).Inc()

	if handler != nil {
		handler(projectID, e, fireAuto)
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
