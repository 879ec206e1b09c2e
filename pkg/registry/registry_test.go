package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/treelang/treelang/pkg/schema"
)

func echoTool(name string, params schema.Params) Tool {
	return Tool{
		Name:   name,
		Params: params,
		Func: func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterRequiresNameAndFunc(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Tool{Func: func(context.Context, map[string]any) (any, error) { return nil, nil }}); err == nil {
		t.Error("Register() should reject a tool without a name")
	}
	if err := r.Register(Tool{Name: "noop"}); err == nil {
		t.Error("Register() should reject a tool without an implementation")
	}
}

func TestCallMapsPositionalArgsInOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("stats", schema.Params{
		{Name: "game", Type: schema.String()},
		{Name: "feature", Type: schema.String()},
	}))

	out, err := r.Call(context.Background(), "stats", []any{"Doom", "hours_played"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	got := out.(map[string]any)
	if got["game"] != "Doom" || got["feature"] != "hours_played" {
		t.Errorf("positional mapping wrong: %v", got)
	}
}

func TestCallArity(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("stats", schema.Params{
		{Name: "game", Type: schema.String()},
		{Name: "limit", Type: schema.Float(), Optional: true},
	}))

	// Trailing optional parameter may be omitted.
	if _, err := r.Call(context.Background(), "stats", []any{"Doom"}); err != nil {
		t.Errorf("Call() with omitted optional = %v, want nil", err)
	}

	// Missing required parameter.
	_, err := r.Call(context.Background(), "stats", []any{})
	if !errors.Is(err, ErrArity) {
		t.Errorf("Call() missing required = %v, want ErrArity", err)
	}

	// Too many arguments.
	_, err = r.Call(context.Background(), "stats", []any{"Doom", 5.0, "extra"})
	if !errors.Is(err, ErrArity) {
		t.Errorf("Call() with extra arg = %v, want ErrArity", err)
	}
}

func TestCallUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Call(context.Background(), "nope", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Call() = %v, want ErrUnknownTool", err)
	}
}

func TestCallValidatesArgumentTypes(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("stats", schema.Params{
		{Name: "players", Type: schema.Slice(schema.Int())},
	}))

	_, err := r.Call(context.Background(), "stats", []any{"not a list"})
	if err == nil {
		t.Fatal("Call() should reject mistyped argument")
	}
	var aggr *schema.AggregateError
	if !errors.As(err, &aggr) {
		t.Errorf("error should wrap *schema.AggregateError, got %T", err)
	}
}

func TestExecuteNamedArgs(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("stats", schema.Params{
		{Name: "game", Type: schema.String()},
		{Name: "limit", Type: schema.Float(), Optional: true},
	}))

	out, err := r.Execute(context.Background(), "stats", map[string]any{"game": "Doom"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.(map[string]any)["game"] != "Doom" {
		t.Errorf("Execute() = %v", out)
	}

	if _, err := r.Execute(context.Background(), "stats", map[string]any{"limit": 5.0}); !errors.Is(err, ErrArity) {
		t.Errorf("Execute() without required arg = %v, want ErrArity", err)
	}
	if _, err := r.Execute(context.Background(), "stats", map[string]any{"game": "Doom", "mode": "x"}); !errors.Is(err, ErrArity) {
		t.Errorf("Execute() with undeclared arg = %v, want ErrArity", err)
	}
}

func TestListToolsKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("zeta", nil))
	r.MustRegister(echoTool("alpha", schema.Params{{Name: "a", Type: schema.Float()}}))

	specs, err := r.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(specs) != 2 || specs[0].Name != "zeta" || specs[1].Name != "alpha" {
		t.Fatalf("ListTools() order wrong: %+v", specs)
	}

	names, err := schema.Properties(specs[1].InputSchema)
	if err != nil {
		t.Fatalf("Properties() error = %v", err)
	}
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("schema properties = %v, want [a]", names)
	}
}

func TestRegisterOverwriteKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("first", nil))
	r.MustRegister(echoTool("second", nil))
	r.MustRegister(Tool{
		Name: "first",
		Func: func(context.Context, map[string]any) (any, error) { return "replaced", nil },
	})

	specs, _ := r.ListTools(context.Background())
	if len(specs) != 2 || specs[0].Name != "first" {
		t.Fatalf("overwrite should keep position: %+v", specs)
	}

	out, err := r.Call(context.Background(), "first", nil)
	if err != nil || out != "replaced" {
		t.Errorf("Call() = %v, %v; want replaced", out, err)
	}
}
