package session

import (
	"testing"

	"ai-sitegen-api/internal/domain/entity"
)

func TestStateAppendReplacesSlice(t *testing.T) {
	s := NewState()

	s.AppendMessages(entity.NewChatMessage("p1", entity.RoleUser, "first", nil))
	before := s.Transcript()

	s.AppendMessages(entity.NewChatMessage("p1", entity.RoleAssistant, "second", nil))

	// 先前取得的快照不受后续追加影响
	if len(before) != 1 {
		t.Fatalf("earlier snapshot length = %d, want 1", len(before))
	}
	if got := s.TranscriptLen(); got != 2 {
		t.Fatalf("transcript length = %d, want 2", got)
	}
}

func TestStateErrorLifecycle(t *testing.T) {
	s := NewState()

	if s.Error() != nil {
		t.Fatal("new state should have no error")
	}

	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", "")
	s.SetError(e)
	if s.Error() != e {
		t.Fatal("SetError not visible")
	}

	s.ClearError()
	if s.Error() != nil {
		t.Fatal("ClearError left error in place")
	}
}

func TestStateDefaults(t *testing.T) {
	s := NewState()

	if got := s.ViewMode(); got != ViewPreview {
		t.Errorf("default view mode = %s, want %s", got, ViewPreview)
	}
	if got := s.PreviewURL(); got != "" {
		t.Errorf("default preview url = %q, want empty", got)
	}

	s.SetViewMode(ViewCode)
	if got := s.ViewMode(); got != ViewCode {
		t.Errorf("view mode = %s, want %s", got, ViewCode)
	}
}
