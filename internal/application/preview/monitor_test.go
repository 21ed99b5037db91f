package preview

import (
	"sync"
	"testing"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
)

func testPreviewConfig() *config.PreviewConfig {
	return &config.PreviewConfig{
		LoadTimeout:      40 * time.Millisecond,
		MaxRetryAttempts: 2,
		RetryBackoff:     10 * time.Millisecond,
	}
}

// timeoutRecorder 记录超时回调，t.Helper 风格的测试替身
type timeoutRecorder struct {
	mu    sync.Mutex
	calls []*entity.PreviewError
}

func (r *timeoutRecorder) record(url string, e *entity.PreviewError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, e)
}

func (r *timeoutRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestMonitorLoadTimeout(t *testing.T) {
	rec := &timeoutRecorder{}
	m := NewMonitor(testPreviewConfig(), rec.record)

	m.Observe("https://preview/1")
	if got := m.State(); got != StateLoading {
		t.Fatalf("state after Observe = %s, want %s", got, StateLoading)
	}

	time.Sleep(100 * time.Millisecond)

	snap := m.GetSnapshot()
	if snap.State != StateErrored {
		t.Fatalf("state after timeout = %s, want %s", snap.State, StateErrored)
	}
	if snap.LastError == nil || snap.LastError.Kind != entity.PreviewErrorNetwork {
		t.Fatalf("last error = %+v, want network_error", snap.LastError)
	}
	if snap.LastError.Message != "took too long to load" {
		t.Errorf("message = %q", snap.LastError.Message)
	}
	if rec.count() != 1 {
		t.Errorf("timeout callback fired %d times, want 1", rec.count())
	}
}

func TestMonitorLoadedClearsTimeout(t *testing.T) {
	rec := &timeoutRecorder{}
	m := NewMonitor(testPreviewConfig(), rec.record)

	m.Observe("https://preview/1")
	m.ReportLoaded()

	time.Sleep(100 * time.Millisecond)

	if got := m.State(); got != StateLoaded {
		t.Fatalf("state = %s, want %s (no late timeout transition)", got, StateLoaded)
	}
	if rec.count() != 0 {
		t.Errorf("timeout callback fired %d times after ReportLoaded, want 0", rec.count())
	}
}

func TestMonitorRetryBudget(t *testing.T) {
	m := NewMonitor(testPreviewConfig(), nil)

	m.Observe("https://preview/1")
	m.ReportError(entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", ""))

	if !m.Retry() {
		t.Fatal("first Retry() = false, want true")
	}
	if !m.Retry() {
		t.Fatal("second Retry() = false, want true")
	}
	if m.Retry() {
		t.Fatal("third Retry() = true, want false (budget exhausted)")
	}

	snap := m.GetSnapshot()
	if snap.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", snap.RetryCount)
	}

	// 退避之后应回到 Loading
	time.Sleep(30 * time.Millisecond)
	if got := m.State(); got != StateLoading {
		t.Errorf("state after backoff = %s, want %s", got, StateLoading)
	}
}

func TestMonitorNewURLResetsRetryBudget(t *testing.T) {
	m := NewMonitor(testPreviewConfig(), nil)

	m.Observe("https://preview/1")
	m.ReportError(entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", ""))
	m.Retry()
	m.Retry()
	if m.Retry() {
		t.Fatal("retry budget should be exhausted for first URL")
	}

	m.Observe("https://preview/2")
	m.ReportError(entity.NewPreviewError(entity.PreviewErrorRuntime, "boom again", ""))
	if !m.Retry() {
		t.Error("Retry() after URL change = false, want true (budget reset)")
	}
}

func TestMonitorForceLoadKeepsFault(t *testing.T) {
	m := NewMonitor(testPreviewConfig(), nil)

	m.Observe("https://preview/1")
	m.ReportError(entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", ""))
	m.ForceLoad()

	snap := m.GetSnapshot()
	if snap.State != StateLoaded {
		t.Fatalf("state = %s, want %s", snap.State, StateLoaded)
	}
	if snap.LastError == nil {
		t.Error("ForceLoad cleared the underlying fault, want it preserved")
	}
}

func TestMonitorObserveIdempotentWhileLoading(t *testing.T) {
	m := NewMonitor(testPreviewConfig(), nil)

	m.Observe("https://preview/1")
	m.ReportError(entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", ""))
	m.Retry()

	// 同一 URL 重新 Observe 不应清零重试计数
	time.Sleep(30 * time.Millisecond)
	m.Observe("https://preview/1")

	snap := m.GetSnapshot()
	if snap.State != StateLoading {
		t.Fatalf("state = %s, want %s", snap.State, StateLoading)
	}
	if snap.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1 (same URL keeps budget)", snap.RetryCount)
	}
}

func TestMonitorErrorAfterNewURLIgnoresStaleTimer(t *testing.T) {
	rec := &timeoutRecorder{}
	m := NewMonitor(testPreviewConfig(), rec.record)

	m.Observe("https://preview/1")
	// 在旧计时器到期前切换 URL 并立即加载成功
	m.Observe("https://preview/2")
	m.ReportLoaded()

	time.Sleep(100 * time.Millisecond)

	if got := m.State(); got != StateLoaded {
		t.Fatalf("state = %s, want %s (stale timer must not fire)", got, StateLoaded)
	}
	if rec.count() != 0 {
		t.Errorf("timeout callback fired %d times, want 0", rec.count())
	}
}
