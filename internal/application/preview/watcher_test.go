package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
)

func testWatcherConfig() *config.PreviewConfig {
	return &config.PreviewConfig{
		InterceptionWindow: 500 * time.Millisecond,
		ErrorDebounce:      10 * time.Millisecond,
		InspectionDelay:    10 * time.Millisecond,
		InspectionTimeout:  100 * time.Millisecond,
	}
}

// handlerRecorder 记录观察器上报的错误
type handlerRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

type recordedCall struct {
	projectID string
	err       *entity.PreviewError
	auto      bool
}

func (r *handlerRecorder) handle(projectID string, e *entity.PreviewError, auto bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{projectID: projectID, err: e, auto: auto})
}

func (r *handlerRecorder) snapshot() []recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *handlerRecorder) autoCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.auto {
			n++
		}
	}
	return n
}

// fakeFetcher 固定返回文档内容的抓取器
type fakeFetcher struct {
	doc string
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.doc, f.err
}

func TestWatcherSingleAutoRecoveryPerURL(t *testing.T) {
	rec := &handlerRecorder{}
	w := NewWatcher(testWatcherConfig(), NewClassifier(), nil, rec.handle)

	w.Watch("p1", "https://preview/1")

	// 级联故障：同一故障的多条日志行在去抖窗口内到达
	w.IngestConsole("ChunkLoadError: Loading chunk 3 failed")
	w.IngestConsole("ChunkLoadError: Loading chunk 5 failed")
	w.IngestConsole("ChunkLoadError: Loading chunk 7 failed")

	time.Sleep(50 * time.Millisecond)

	if got := rec.autoCount(); got != 1 {
		t.Fatalf("auto recovery fired %d times, want exactly 1", got)
	}

	// 同一 URL 的后续合格信号不再自动触发
	w.IngestError("Error: Minified React error #310", "")
	time.Sleep(20 * time.Millisecond)

	if got := rec.autoCount(); got != 1 {
		t.Fatalf("auto recovery fired %d times after extra signal, want still 1", got)
	}

	// URL 更换后守卫重置，恰好再触发一次
	w.Watch("p1", "https://preview/2")
	w.IngestError("ChunkLoadError: Loading chunk 1 failed", "")
	time.Sleep(20 * time.Millisecond)

	if got := rec.autoCount(); got != 2 {
		t.Fatalf("auto recovery fired %d times after URL change, want 2", got)
	}
}

func TestWatcherDebouncePrefersAutoRecoverableSignal(t *testing.T) {
	rec := &handlerRecorder{}
	w := NewWatcher(testWatcherConfig(), NewClassifier(), nil, rec.handle)

	w.Watch("p1", "https://preview/1")
	w.IngestConsole("TypeError: Cannot read properties of undefined")
	w.IngestConsole("ChunkLoadError: Loading chunk 3 failed")

	time.Sleep(50 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("handler called %d times, want 1 (coalesced)", len(calls))
	}
	if !calls[0].auto {
		t.Error("coalesced signal should prefer the auto-recoverable line")
	}
	if calls[0].err.Kind != entity.PreviewErrorRuntime {
		t.Errorf("kind = %s, want runtime_error", calls[0].err.Kind)
	}
	if calls[0].projectID != "p1" {
		t.Errorf("projectID = %q, want p1", calls[0].projectID)
	}
}

func TestWatcherIgnoresSignalsOutsideWindow(t *testing.T) {
	cfg := testWatcherConfig()
	cfg.InterceptionWindow = 20 * time.Millisecond
	rec := &handlerRecorder{}
	w := NewWatcher(cfg, NewClassifier(), nil, rec.handle)

	w.Watch("p1", "https://preview/1")
	time.Sleep(50 * time.Millisecond)

	w.IngestConsole("ChunkLoadError: Loading chunk 3 failed")
	time.Sleep(30 * time.Millisecond)

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("handler called %d times for signal outside window, want 0", got)
	}
}

func TestWatcherOnLoadedReopensWindow(t *testing.T) {
	cfg := testWatcherConfig()
	cfg.InterceptionWindow = 20 * time.Millisecond
	rec := &handlerRecorder{}
	w := NewWatcher(cfg, NewClassifier(), nil, rec.handle)

	w.Watch("p1", "https://preview/1")
	time.Sleep(50 * time.Millisecond)

	// 生成完成后的窗口已过期
	w.IngestConsole("ChunkLoadError: Loading chunk 3 failed")
	time.Sleep(30 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Fatalf("handler called %d times before load, want 0", got)
	}

	// 浏览器此刻才真正打开预览，窗口自加载时刻重新起算
	w.OnLoaded()
	w.IngestConsole("ChunkLoadError: Loading chunk 3 failed")
	time.Sleep(30 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("handler called %d times after load, want 1", len(calls))
	}
	if !calls[0].auto {
		t.Error("late console signal should still qualify for auto recovery")
	}
}

func TestWatcherIgnoresUnmatchedConsoleLines(t *testing.T) {
	rec := &handlerRecorder{}
	w := NewWatcher(testWatcherConfig(), NewClassifier(), nil, rec.handle)

	w.Watch("p1", "https://preview/1")
	w.IngestConsole("rendered 12 components")
	w.IngestConsole("navigation to /about")

	time.Sleep(30 * time.Millisecond)

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("handler called %d times for benign lines, want 0", got)
	}
}

func TestWatcherDocumentInspection(t *testing.T) {
	rec := &handlerRecorder{}
	fetcher := &fakeFetcher{doc: `<html><body>Application error: a client-side exception has occurred</body></html>`}
	w := NewWatcher(testWatcherConfig(), NewClassifier(), fetcher, rec.handle)

	w.Watch("p1", "https://preview/1")
	w.OnLoaded()

	time.Sleep(60 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("handler called %d times after inspection, want 1", len(calls))
	}
	if calls[0].err.Kind != entity.PreviewErrorRuntime {
		t.Errorf("kind = %s, want runtime_error", calls[0].err.Kind)
	}
}

func TestWatcherInspectionSkipsUnreachableDocument(t *testing.T) {
	rec := &handlerRecorder{}
	fetcher := &fakeFetcher{err: errors.New("cross-origin access denied")}
	w := NewWatcher(testWatcherConfig(), NewClassifier(), fetcher, rec.handle)

	w.Watch("p1", "https://preview/1")
	w.OnLoaded()

	time.Sleep(60 * time.Millisecond)

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("handler called %d times when document unreachable, want 0", got)
	}
}

func TestWatcherInspectionDroppedAfterURLChange(t *testing.T) {
	rec := &handlerRecorder{}
	fetcher := &fakeFetcher{doc: "500 Internal Server Error"}
	w := NewWatcher(testWatcherConfig(), NewClassifier(), fetcher, rec.handle)

	w.Watch("p1", "https://preview/1")
	w.OnLoaded()
	// 巡检触发前切换 URL，旧巡检结果应被世代令牌丢弃
	w.Watch("p1", "https://preview/2")

	time.Sleep(60 * time.Millisecond)

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("handler called %d times from stale inspection, want 0", got)
	}
}
