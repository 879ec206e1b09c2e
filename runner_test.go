package treelang_test

import (
	"context"
	"strings"
	"testing"

	"github.com/treelang/treelang"
	"github.com/treelang/treelang/pkg/registry"
)

func TestRunnerRequiresIO(t *testing.T) {
	eng, err := treelang.New(registry.Calculator())
	if err != nil {
		t.Fatal(err)
	}

	r := treelang.NewRunner()
	if err := r.Run(context.Background(), eng); err == nil {
		t.Error("Expected error when input is not set")
	}

	r.Input = strings.NewReader("")
	if err := r.Run(context.Background(), eng); err == nil {
		t.Error("Expected error when output is not set")
	}
}

func TestRunnerAskLoop(t *testing.T) {
	planner := &scriptedPlanner{wire: []byte(`{"multiply_1": {"a": [6], "b": [7]}}`)}
	eng, err := treelang.New(registry.Calculator(), treelang.WithPlanner(planner))
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	r := treelang.NewRunner()
	r.Input = strings.NewReader("what is 6 times 7?\nexit\n")
	r.Output = &out

	if err := r.Run(context.Background(), eng); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "42") {
		t.Errorf("Expected the answer in output, got:\n%s", got)
	}
	if !strings.Contains(got, "Bye!") {
		t.Errorf("Expected farewell in output, got:\n%s", got)
	}
	if planner.calls != 1 {
		t.Errorf("Expected one planner call, got %d", planner.calls)
	}
}

func TestRunnerHeadlessEOF(t *testing.T) {
	planner := &scriptedPlanner{wire: []byte(`{"add_1": {"a": [1], "b": [2]}}`)}
	eng, err := treelang.New(registry.Calculator(), treelang.WithPlanner(planner))
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	r := treelang.NewRunner()
	r.Input = strings.NewReader("one plus two\n")
	r.Output = &out
	r.Headless = true

	// EOF after the single query is a graceful exit.
	if err := r.Run(context.Background(), eng); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	if strings.Contains(got, ">") {
		t.Errorf("Headless output should not contain prompts, got:\n%s", got)
	}
	if !strings.Contains(got, "3") {
		t.Errorf("Expected the answer in output, got:\n%s", got)
	}
}

func TestRunnerContinuesAfterError(t *testing.T) {
	// An unparseable plan fails the first query; the loop must carry on
	// to the second.
	planner := &scriptedPlanner{wire: []byte(`nonsense`)}
	eng, err := treelang.New(registry.Calculator(), treelang.WithPlanner(planner))
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	r := treelang.NewRunner()
	r.Input = strings.NewReader("first\nexit\n")
	r.Output = &out

	if err := r.Run(context.Background(), eng); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "error:") {
		t.Errorf("Expected an error line, got:\n%s", got)
	}
	if !strings.Contains(got, "Bye!") {
		t.Errorf("Expected the loop to reach exit, got:\n%s", got)
	}
}

func TestRunnerExplain(t *testing.T) {
	planner := &scriptedPlanner{
		wire:    []byte(`{"multiply_1": {"a": [6], "b": [7]}}`),
		explain: "It multiplies six by seven.",
	}
	eng, err := treelang.New(registry.Calculator(), treelang.WithPlanner(planner))
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	r := treelang.NewRunner()
	r.Input = strings.NewReader("what is 6 times 7?\nexit\n")
	r.Output = &out
	r.Explain = true
	r.Renderer = func(s string) (string, error) {
		return "* " + s + " *", nil
	}

	if err := r.Run(context.Background(), eng); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "* It multiplies six by seven. *") {
		t.Errorf("Expected rendered explanation, got:\n%s", got)
	}
}
