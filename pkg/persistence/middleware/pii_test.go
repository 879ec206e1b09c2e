package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/treelang/treelang/pkg/adapters/memory"
	"github.com/treelang/treelang/pkg/persistence/middleware"
	"github.com/treelang/treelang/pkg/ports"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.New()
	// Mask API keys and anything shaped like an SSN.
	mw := middleware.NewPIIMiddleware([]string{`sk-[A-Za-z0-9]+`, `\d{3}-\d{2}-\d{4}`})
	secure := mw(underlying)

	ctx := context.Background()
	session := "pii-session"
	msg := ports.Message{
		Role:      ports.RoleUser,
		Content:   "my key is sk-abc123 and my ssn is 999-99-9999, ok?",
		CreatedAt: time.Now(),
	}

	if err := secure.Append(ctx, session, msg); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Caller's message must not be modified.
	if msg.Content != "my key is sk-abc123 and my ssn is 999-99-9999, ok?" {
		t.Error("middleware modified the caller's message")
	}

	// The backend must only ever see masked content.
	stored, err := underlying.History(ctx, session, 0)
	if err != nil {
		t.Fatalf("underlying History failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1", len(stored))
	}
	want := "my key is *** and my ssn is ***, ok?"
	if stored[0].Content != want {
		t.Errorf("stored content = %q, want %q", stored[0].Content, want)
	}
}

func TestPIIMiddleware_ReadsPassThrough(t *testing.T) {
	underlying := memory.New()
	secure := middleware.NewPIIMiddleware([]string{"secret"})(underlying)
	ctx := context.Background()

	if err := secure.Append(ctx, "s", ports.Message{Role: ports.RoleAssistant, Content: "all public"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	history, err := secure.History(ctx, "s", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Content != "all public" {
		t.Errorf("history = %+v, want the appended message", history)
	}

	if err := secure.Clear(ctx, "s"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	history, err = secure.History(ctx, "s", 0)
	if err != nil {
		t.Fatalf("History after Clear failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history after Clear = %+v, want empty", history)
	}
}

func TestPIIMiddleware_BadPatternPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid pattern")
		}
	}()
	middleware.NewPIIMiddleware([]string{"("})
}
