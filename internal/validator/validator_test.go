package validator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/treelang/treelang/internal/validator"
	"github.com/treelang/treelang/pkg/registry"
	"github.com/treelang/treelang/pkg/tree"
)

func parse(t *testing.T, wire string) *tree.Tree {
	t.Helper()
	tr, err := tree.ParseAny([]byte(wire))
	if err != nil {
		t.Fatalf("ParseAny() error = %v", err)
	}
	return tr
}

func TestLintCleanTree(t *testing.T) {
	tr := parse(t, `{"add_1": {"a": [1], "b": [2]}}`)
	if problems := validator.Lint(tr); len(problems) != 0 {
		t.Errorf("Lint() = %v, want none", problems)
	}
}

func TestLintUnboundParameter(t *testing.T) {
	b := tree.NewBuilder()
	root := b.Program(b.Function("double", b.Param("x")))
	tr, err := b.Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	problems := validator.Lint(tr)
	if len(problems) != 1 {
		t.Fatalf("Lint() = %v, want exactly one finding", problems)
	}
	if problems[0].Key != "x" || !strings.Contains(problems[0].Msg, "unbound parameter") {
		t.Errorf("unexpected finding: %v", problems[0])
	}
}

func TestLintUnreachableNode(t *testing.T) {
	b := tree.NewBuilder()
	b.Value("orphan", 1)
	root := b.Program(b.Function("add", b.Value("a", 1), b.Value("b", 2)))
	tr, err := b.Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	problems := validator.Lint(tr)
	if len(problems) != 1 || problems[0].Key != "orphan" {
		t.Errorf("Lint() = %v, want one unreachable finding for orphan", problems)
	}
}

func TestCheckToolsUnknown(t *testing.T) {
	tr := parse(t, `{"frobnicate_1": {"a": [1]}}`)

	problems, err := validator.CheckTools(context.Background(), tr, registry.Calculator())
	if err != nil {
		t.Fatalf("CheckTools() error = %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("CheckTools() = %v, want exactly one finding", problems)
	}
	if problems[0].Key != "frobnicate_1" || !strings.Contains(problems[0].Msg, `unknown tool "frobnicate"`) {
		t.Errorf("unexpected finding: %v", problems[0])
	}
}

func TestCheckToolsArity(t *testing.T) {
	tr := parse(t, `{"add_1": {"a": [1]}}`)

	problems, err := validator.CheckTools(context.Background(), tr, registry.Calculator())
	if err != nil {
		t.Fatalf("CheckTools() error = %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("CheckTools() = %v, want exactly one finding", problems)
	}
	if !strings.Contains(problems[0].Msg, "declares 2 parameter(s), call passes 1") {
		t.Errorf("unexpected finding: %v", problems[0])
	}
}

func TestCheckToolsCleanProgram(t *testing.T) {
	tr := parse(t, `{"multiply_1": {"a": {"add_1": {"x": [1], "y": [2]}}, "b": [3]}}`)

	problems, err := validator.CheckTools(context.Background(), tr, registry.Calculator())
	if err != nil {
		t.Fatalf("CheckTools() error = %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("CheckTools() = %v, want none", problems)
	}
}

func TestSummarize(t *testing.T) {
	if err := validator.Summarize(nil); err != nil {
		t.Errorf("Summarize(nil) = %v, want nil", err)
	}

	err := validator.Summarize([]validator.Problem{
		{Key: "a", Msg: "first"},
		{Key: "b", Msg: "second"},
	})
	if err == nil {
		t.Fatal("Summarize() = nil, want error")
	}
	for _, want := range []string{"2 problem(s)", "a: first", "b: second"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Summarize() = %q, want substring %q", err, want)
		}
	}
}
