package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/infrastructure/generation"
)

func newRecoverySession() *Session {
	return &Session{
		ProjectID:  "p1",
		State:      NewState(),
		Serializer: NewSerializer(),
		CreatedAt:  time.Now(),
	}
}

func recoveryProject() *entity.Project {
	p := entity.NewProject("a dark portfolio")
	p.ID = "p1"
	p.ConversationID = "c1"
	return p
}

func noopMerge(ctx context.Context, sess *Session, project *entity.Project, result *generation.Result) error {
	return nil
}

func TestRecoverPreconditions(t *testing.T) {
	gen := &fakeGenerator{continueFn: func(conversationID, message string) (*generation.Result, error) {
		return &generation.Result{}, nil
	}}
	msgs := &fakeMessageRepo{}
	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "ChunkLoadError", "")

	t.Run("disabled", func(t *testing.T) {
		c := NewRecoveryController(&config.RecoveryConfig{Enabled: false}, gen, msgs, noopMerge)
		if c.Recover(context.Background(), newRecoverySession(), recoveryProject(), e) {
			t.Error("Recover dispatched with recovery disabled")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		c := NewRecoveryController(&config.RecoveryConfig{Enabled: true}, gen, msgs, noopMerge)
		if c.Recover(context.Background(), newRecoverySession(), recoveryProject(), nil) {
			t.Error("Recover dispatched without an error")
		}
	})

	t.Run("no conversation", func(t *testing.T) {
		c := NewRecoveryController(&config.RecoveryConfig{Enabled: true}, gen, msgs, noopMerge)
		p := recoveryProject()
		p.ConversationID = ""
		if c.Recover(context.Background(), newRecoverySession(), p, e) {
			t.Error("Recover dispatched without a bound conversation")
		}
	})

	t.Run("slot busy", func(t *testing.T) {
		c := NewRecoveryController(&config.RecoveryConfig{Enabled: true}, gen, msgs, noopMerge)
		sess := newRecoverySession()

		release := make(chan struct{})
		sess.Serializer.Execute(context.Background(), &Action{
			ID: ActionErrorRecovery,
			Run: func(ctx context.Context) (interface{}, error) {
				<-release
				return nil, nil
			},
		})
		defer close(release)

		if c.Recover(context.Background(), sess, recoveryProject(), e) {
			t.Error("Recover dispatched while recovery slot occupied")
		}
	})
}

func TestRecoverMessageTemplate(t *testing.T) {
	var captured string
	gen := &fakeGenerator{continueFn: func(conversationID, message string) (*generation.Result, error) {
		captured = message
		return &generation.Result{}, nil
	}}
	msgs := &fakeMessageRepo{}
	c := NewRecoveryController(&config.RecoveryConfig{Enabled: true, IncludeOriginalPrompt: true}, gen, msgs, noopMerge)

	sess := newRecoverySession()
	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "ChunkLoadError: Loading chunk 3 failed", "")

	if !c.Recover(context.Background(), sess, recoveryProject(), e) {
		t.Fatal("Recover not dispatched")
	}
	time.Sleep(50 * time.Millisecond)

	if !strings.Contains(captured, "ChunkLoadError: Loading chunk 3 failed") {
		t.Errorf("recovery message missing error text: %q", captured)
	}
	if !strings.Contains(captured, "Please fix the issue and return an updated version.") {
		t.Errorf("recovery message missing fix instruction: %q", captured)
	}
	if !strings.Contains(captured, "Original request: a dark portfolio") {
		t.Errorf("recovery message missing original prompt: %q", captured)
	}

	// 合成的恢复轮次以用户消息身份记录，带错误元数据
	if len(msgs.messages) != 1 {
		t.Fatalf("persisted messages = %d, want 1", len(msgs.messages))
	}
	m := msgs.messages[0]
	if m.Role != entity.RoleUser {
		t.Errorf("recovery message role = %s, want user", m.Role)
	}
	if m.Metadata == nil || !m.Metadata.IsError {
		t.Error("recovery message metadata should flag is_error")
	}
	if m.Metadata.OriginalPrompt != "a dark portfolio" {
		t.Errorf("metadata original prompt = %q", m.Metadata.OriginalPrompt)
	}
}

func TestRecoverWithoutOriginalPrompt(t *testing.T) {
	var captured string
	gen := &fakeGenerator{continueFn: func(conversationID, message string) (*generation.Result, error) {
		captured = message
		return &generation.Result{}, nil
	}}
	c := NewRecoveryController(&config.RecoveryConfig{Enabled: true, IncludeOriginalPrompt: false}, gen, &fakeMessageRepo{}, noopMerge)

	sess := newRecoverySession()
	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", "")

	if !c.Recover(context.Background(), sess, recoveryProject(), e) {
		t.Fatal("Recover not dispatched")
	}
	time.Sleep(50 * time.Millisecond)

	if strings.Contains(captured, "Original request:") {
		t.Errorf("recovery message should omit original prompt: %q", captured)
	}
}

func TestRecoverClearsErrorBeforeDispatch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{continueFn: func(conversationID, message string) (*generation.Result, error) {
		close(started)
		<-release
		return &generation.Result{}, nil
	}}
	c := NewRecoveryController(&config.RecoveryConfig{Enabled: true}, gen, &fakeMessageRepo{}, noopMerge)

	sess := newRecoverySession()
	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "boom", "")
	sess.State.SetError(e)

	if !c.Recover(context.Background(), sess, recoveryProject(), e) {
		t.Fatal("Recover not dispatched")
	}

	<-started
	if sess.State.Error() != nil {
		t.Error("pending error not cleared before recovery dispatch")
	}
	close(release)
}

func TestRecoverFailureRestoresOriginalError(t *testing.T) {
	gen := &fakeGenerator{continueFn: func(conversationID, message string) (*generation.Result, error) {
		return nil, errors.New("api unavailable")
	}}
	c := NewRecoveryController(&config.RecoveryConfig{Enabled: true}, gen, &fakeMessageRepo{}, noopMerge)

	sess := newRecoverySession()
	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "original failure", "")
	sess.State.SetError(e)

	if !c.Recover(context.Background(), sess, recoveryProject(), e) {
		t.Fatal("Recover not dispatched")
	}
	time.Sleep(50 * time.Millisecond)

	got := sess.State.Error()
	if got == nil {
		t.Fatal("error not restored after failed recovery")
	}
	if got.Message != "original failure" {
		t.Errorf("restored error = %q, want original failure", got.Message)
	}
}

func TestRecoverMergeFailureRestoresError(t *testing.T) {
	gen := &fakeGenerator{continueFn: func(conversationID, message string) (*generation.Result, error) {
		return &generation.Result{}, nil
	}}
	failMerge := func(ctx context.Context, sess *Session, project *entity.Project, result *generation.Result) error {
		return errors.New("persistence down")
	}
	c := NewRecoveryController(&config.RecoveryConfig{Enabled: true}, gen, &fakeMessageRepo{}, failMerge)

	sess := newRecoverySession()
	e := entity.NewPreviewError(entity.PreviewErrorRuntime, "original failure", "")
	sess.State.SetError(e)

	if !c.Recover(context.Background(), sess, recoveryProject(), e) {
		t.Fatal("Recover not dispatched")
	}
	time.Sleep(50 * time.Millisecond)

	if got := sess.State.Error(); got == nil || got.Message != "original failure" {
		t.Errorf("error after merge failure = %+v, want original restored", got)
	}
}
