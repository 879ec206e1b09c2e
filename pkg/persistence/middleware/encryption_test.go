package middleware_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/treelang/treelang/pkg/adapters/memory"
	"github.com/treelang/treelang/pkg/persistence/middleware"
	"github.com/treelang/treelang/pkg/ports"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryptionMiddleware_RoundTrip(t *testing.T) {
	underlying := memory.New()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: testKey(1),
	})(underlying)

	ctx := context.Background()
	session := "enc-session"

	if err := secure.Append(ctx, session, ports.Message{
		Role:      ports.RoleUser,
		Content:   "the launch code is 0000",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Backend sees only the envelope, never the plaintext.
	stored, err := underlying.History(ctx, session, 0)
	if err != nil {
		t.Fatalf("underlying History failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1", len(stored))
	}
	if !strings.HasPrefix(stored[0].Content, "enc.v1:") {
		t.Errorf("stored content = %q, want envelope prefix", stored[0].Content)
	}
	if strings.Contains(stored[0].Content, "launch code") {
		t.Error("plaintext leaked into the backend")
	}
	if stored[0].Role != ports.RoleUser {
		t.Errorf("stored role = %q, want role left readable", stored[0].Role)
	}

	// Reading through the middleware decrypts.
	history, err := secure.History(ctx, session, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Content != "the launch code is 0000" {
		t.Errorf("history = %+v, want the decrypted message", history)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.New()
	ctx := context.Background()
	session := "rotate"

	oldKey, newKey := testKey(2), testKey(3)

	// Write with the old key.
	old := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	if err := old.Append(ctx, session, ports.Message{Role: ports.RoleUser, Content: "written before rotation"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Rotated config decrypts old data through the fallback.
	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)
	history, err := rotated.History(ctx, session, 0)
	if err != nil {
		t.Fatalf("History after rotation failed: %v", err)
	}
	if len(history) != 1 || history[0].Content != "written before rotation" {
		t.Errorf("history = %+v, want the old message", history)
	}

	// Without the fallback, the old ciphertext is unreadable.
	strict := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	if _, err := strict.History(ctx, session, 0); err == nil {
		t.Error("expected decryption failure without the fallback key")
	}
}

func TestEncryptionMiddleware_RejectsPlaintextHistory(t *testing.T) {
	underlying := memory.New()
	ctx := context.Background()

	if err := underlying.Append(ctx, "mixed", ports.Message{Role: ports.RoleUser, Content: "never encrypted"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(4)})(underlying)
	if _, err := secure.History(ctx, "mixed", 0); err == nil {
		t.Error("expected error for history without an envelope")
	}
}

func TestEncryptionMiddleware_ShortKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for short key")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
}
