package mcp

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/treelang/treelang/pkg/eval"
	"github.com/treelang/treelang/pkg/registry"
	"github.com/treelang/treelang/pkg/tree"
)

func TestPositionalArgs(t *testing.T) {
	params := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		named   map[string]any
		want    []any
		wantErr string
	}{
		{"all arguments", map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}, []any{1.0, 2.0, 3.0}, ""},
		{"trailing omitted", map[string]any{"a": 1.0}, []any{1.0}, ""},
		{"none", map[string]any{}, []any{}, ""},
		{"gap in the middle", map[string]any{"a": 1.0, "c": 3.0}, nil, `missing argument "b"`},
		{"undeclared argument", map[string]any{"a": 1.0, "z": 9.0}, nil, `unexpected argument "z"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := positionalArgs(params, tt.named)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("positionalArgs() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("positionalArgs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("positionalArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddInvokerPublishesCatalog(t *testing.T) {
	s := NewServer("catalog-test", "0.0.1")
	if err := s.AddInvoker(context.Background(), registry.Calculator()); err != nil {
		t.Fatalf("AddInvoker() error = %v", err)
	}

	text := catalogText(t, s)
	if !strings.Contains(text, `"name":"add"`) {
		t.Errorf("catalog missing add: %s", text)
	}
	if !strings.Contains(text, `"params":["a","b"]`) {
		t.Errorf("catalog missing parameter order: %s", text)
	}
}

func TestAddCompiledPublishesTool(t *testing.T) {
	b := tree.NewBuilder()
	root := b.Function("multiply", b.Param("x"), b.Value("n", 2.0))
	tr, err := b.Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ev := eval.New(registry.Calculator())
	ct, err := ev.Compile(tr, []string{"x"},
		eval.WithName("double"),
		eval.WithDescription("Doubles a number."),
	)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	s := NewServer("compiled-test", "0.0.1")
	s.AddCompiled(ct)

	text := catalogText(t, s)
	if !strings.Contains(text, `"name":"double"`) {
		t.Errorf("catalog missing compiled tool: %s", text)
	}
	if !strings.Contains(text, `"params":["x"]`) {
		t.Errorf("catalog missing compiled params: %s", text)
	}
}

func catalogText(t *testing.T, s *Server) string {
	t.Helper()
	contents, err := s.readCatalog(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("readCatalog() error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("readCatalog() returned %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("readCatalog() content type = %T", contents[0])
	}
	return text.Text
}
