package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treelang/treelang"
	"github.com/treelang/treelang/internal/config"
)

// writeWire drops a wire document into a temp dir and returns its path.
func writeWire(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.json")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestEval(t *testing.T) {
	cfg := config.Default()

	t.Run("Evaluates a program file", func(t *testing.T) {
		path := writeWire(t, `{"add_1": {"a": [4], "b": [7]}}`)
		var out bytes.Buffer

		err := Eval(context.Background(), cfg, EvalOptions{Path: path, Out: &out})
		require.NoError(t, err)
		assert.Equal(t, "11\n", out.String())
	})

	t.Run("Repr prints without evaluating", func(t *testing.T) {
		path := writeWire(t, `{"add_1": {"a": [4], "b": [7]}}`)
		var out bytes.Buffer

		err := Eval(context.Background(), cfg, EvalOptions{Path: path, Repr: true, Out: &out})
		require.NoError(t, err)
		assert.Contains(t, out.String(), `"add_1"`)
		assert.Contains(t, out.String(), `"a": [4]`)
	})

	t.Run("Invalid tree", func(t *testing.T) {
		path := writeWire(t, `[1, 2, 3]`)
		var out bytes.Buffer

		err := Eval(context.Background(), cfg, EvalOptions{Path: path, Out: &out})
		require.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		var out bytes.Buffer

		err := Eval(context.Background(), cfg, EvalOptions{Path: "does-not-exist.json", Out: &out})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does-not-exist.json")
	})
}

func TestValidateCommand(t *testing.T) {
	cfg := config.Default()

	t.Run("Clean program", func(t *testing.T) {
		path := writeWire(t, `{"add_1": {"a": [4], "b": [7]}}`)
		var out bytes.Buffer

		err := Validate(context.Background(), cfg, ValidateOptions{Path: path, Out: &out})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Tree is valid (4 nodes)")
	})

	t.Run("Unbound parameter fails", func(t *testing.T) {
		src := `{"type": "function", "id": "add_1", "name": "add", "params": [
			{"type": "value", "id": "a", "name": "a", "value": 4},
			{"type": "value", "id": "x", "name": "x"}
		]}`
		path := writeWire(t, src)
		var out bytes.Buffer

		err := Validate(context.Background(), cfg, ValidateOptions{Path: path, Out: &out})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unbound parameter")
	})

	t.Run("Tool check catches unknown tools", func(t *testing.T) {
		path := writeWire(t, `{"frobnicate_1": {"a": [4]}}`)
		var out bytes.Buffer

		err := Validate(context.Background(), cfg, ValidateOptions{Path: path, CheckTools: true, Out: &out})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "frobnicate")
	})

	t.Run("Tool check passes a clean program", func(t *testing.T) {
		path := writeWire(t, `{"add_1": {"a": [4], "b": [7]}}`)
		var out bytes.Buffer

		err := Validate(context.Background(), cfg, ValidateOptions{Path: path, CheckTools: true, Out: &out})
		require.NoError(t, err)
	})
}

func TestGraphCommand(t *testing.T) {
	t.Run("Renders Mermaid", func(t *testing.T) {
		path := writeWire(t, `{"add_1": {"a": [4], "b": [7]}}`)
		var out bytes.Buffer

		err := Graph(GraphOptions{Path: path, Out: &out})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "graph TD")
		assert.Contains(t, out.String(), `add_1[["add"]]`)
	})

	t.Run("Invalid tree", func(t *testing.T) {
		path := writeWire(t, `[1, 2, 3]`)
		var out bytes.Buffer

		err := Graph(GraphOptions{Path: path, Out: &out})
		require.Error(t, err)
	})
}

func TestAskWithoutPlanner(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.Default()
	var out bytes.Buffer

	err := Ask(context.Background(), cfg, AskOptions{Question: "double 21", In: bytes.NewReader(nil), Out: &out})
	require.ErrorIs(t, err, treelang.ErrNoPlanner)
}

func TestWatchRejectsStdin(t *testing.T) {
	sig := NewSignalContext(context.Background())
	defer sig.Cancel()
	var out bytes.Buffer

	err := Watch(sig, config.Default(), EvalOptions{Path: "-", Out: &out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdin")
}
