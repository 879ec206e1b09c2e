package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMemoryContract verifies that a Memory implementation adheres to
// the interface contract. Adapter test suites call it against their
// own backend.
func RunMemoryContract(t *testing.T, mem Memory) {
	ctx := context.Background()
	session := "contract-" + NewSessionID()

	t.Run("Append and History order", func(t *testing.T) {
		base := time.Now().Add(-time.Minute)
		for i, content := range []string{"first", "second", "third"} {
			err := mem.Append(ctx, session, Message{
				Role:      RoleUser,
				Content:   content,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		history, err := mem.History(ctx, session, 0)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "first", history[0].Content)
		assert.Equal(t, "third", history[2].Content)
	})

	t.Run("History limit keeps newest", func(t *testing.T) {
		history, err := mem.History(ctx, session, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "second", history[0].Content)
		assert.Equal(t, "third", history[1].Content)
	})

	t.Run("Unknown session is empty", func(t *testing.T) {
		history, err := mem.History(ctx, "missing-"+NewSessionID(), 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, mem.Clear(ctx, session))
		history, err := mem.History(ctx, session, 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("Sessions are isolated", func(t *testing.T) {
		a, b := "a-"+NewSessionID(), "b-"+NewSessionID()
		require.NoError(t, mem.Append(ctx, a, Message{Role: RoleUser, Content: "only a", CreatedAt: time.Now()}))

		history, err := mem.History(ctx, b, 0)
		require.NoError(t, err)
		assert.Empty(t, history)

		history, err = mem.History(ctx, a, 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
	})
}
