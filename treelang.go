package treelang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/treelang/treelang/pkg/eval"
	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/tree"
)

// ErrNoPlanner is returned by Plan and Ask when the engine was built
// without a planner. Parsing, evaluation and compilation never need
// one.
var ErrNoPlanner = errors.New("no planner configured")

// Engine is the high-level entry point for the treelang library.
// It ties the wire parsers, the evaluator, the tool compiler and an
// optional planner together behind a simplified API for consumers.
type Engine struct {
	invoker   ports.ToolInvoker
	planner   ports.Planner
	evaluator *eval.Evaluator
	logger    *slog.Logger

	hooks    eval.LifecycleHooks
	hasHooks bool
	maxConc  int

	Name string
}

// Answer is the outcome of one Ask round trip: the sanitized query,
// the wire tree the planner produced for it, and the evaluated result.
type Answer struct {
	Query  string          `json:"query"`
	Wire   json.RawMessage `json:"wire"`
	Result any             `json:"result"`
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithPlanner attaches a planner, enabling Plan and Ask.
func WithPlanner(p ports.Planner) Option {
	return func(e *Engine) {
		e.planner = p
	}
}

// WithLifecycleHooks registers observability hooks fired during
// evaluation.
func WithLifecycleHooks(hooks eval.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
		e.hasHooks = true
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxConcurrent caps concurrent fan-out during evaluation.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		e.maxConc = n
	}
}

// WithName labels the engine. The name enriches every log line, which
// keeps multi-engine hosts tellable apart.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a treelang Engine bound to the given tool invoker.
// The invoker is required; everything else is optional.
func New(invoker ports.ToolInvoker, opts ...Option) (*Engine, error) {
	if invoker == nil {
		return nil, fmt.Errorf("a tool invoker is required")
	}

	eng := &Engine{invoker: invoker}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to the
	// evaluator, which would overwrite its default).
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("engine", eng.Name)
	}

	evalOpts := []eval.Option{eval.WithLogger(eng.logger)}
	if eng.hasHooks {
		evalOpts = append(evalOpts, eval.WithLifecycleHooks(eng.hooks))
	}
	if eng.maxConc > 0 {
		evalOpts = append(evalOpts, eval.WithMaxConcurrent(eng.maxConc))
	}
	eng.evaluator = eval.New(invoker, evalOpts...)

	return eng, nil
}

// Tools returns the catalog advertised by the underlying invoker.
func (e *Engine) Tools(ctx context.Context) ([]ports.ToolSpec, error) {
	return e.invoker.ListTools(ctx)
}

// Parse decodes a wire tree in either format: the canonical typed
// encoding (with or without the document envelope) or the compact
// keyed convention.
func (e *Engine) Parse(data []byte) (*tree.Tree, error) {
	return tree.ParseAny(data)
}

// Eval parses a wire tree and evaluates it against the engine's tools.
func (e *Engine) Eval(ctx context.Context, wire []byte) (any, error) {
	t, err := tree.ParseAny(wire)
	if err != nil {
		return nil, err
	}
	return e.evaluator.Evaluate(ctx, t)
}

// EvalTree evaluates an already-parsed tree.
func (e *Engine) EvalTree(ctx context.Context, t *tree.Tree) (any, error) {
	return e.evaluator.Evaluate(ctx, t)
}

// Compile turns a tree into a reusable parameterized tool. Declared
// parameters bind to the value leaves sharing their name unless
// overridden per identity with eval.WithBinding.
func (e *Engine) Compile(t *tree.Tree, params []string, opts ...eval.CompileOption) (*eval.CompiledTool, error) {
	return e.evaluator.Compile(t, params, opts...)
}

// Plan translates a natural-language query into a wire tree over the
// engine's tool catalog. The tree is returned unevaluated so callers
// can inspect, store or compile it first.
func (e *Engine) Plan(ctx context.Context, query string) ([]byte, error) {
	wire, _, err := e.plan(ctx, query)
	return wire, err
}

// Ask runs the full round trip: sanitize the query, plan it into a
// tree, and evaluate the tree. The planner is consulted exactly once;
// evaluation makes no further model calls.
func (e *Engine) Ask(ctx context.Context, query string) (*Answer, error) {
	wire, clean, err := e.plan(ctx, query)
	if err != nil {
		return nil, err
	}

	t, err := tree.ParseAny(wire)
	if err != nil {
		return nil, fmt.Errorf("planner produced an invalid tree: %w", err)
	}

	e.logger.Debug("evaluating planned tree", "nodes", t.Len())
	result, err := e.evaluator.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}

	return &Answer{Query: clean, Wire: wire, Result: result}, nil
}

// plan sanitizes the query and asks the planner for a wire tree over
// the current tool catalog.
func (e *Engine) plan(ctx context.Context, query string) ([]byte, string, error) {
	if e.planner == nil {
		return nil, "", ErrNoPlanner
	}
	clean, err := SanitizeInput(query)
	if err != nil {
		return nil, "", err
	}

	tools, err := e.invoker.ListTools(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list tools: %w", err)
	}

	e.logger.Debug("planning query", "tools", len(tools))
	wire, err := e.planner.Plan(ctx, clean, tools)
	if err != nil {
		return nil, "", fmt.Errorf("planning failed: %w", err)
	}
	return wire, clean, nil
}

// Explain renders a wire tree as prose. With a planner attached the
// description comes from the model; without one a deterministic
// structural description is returned instead.
func (e *Engine) Explain(ctx context.Context, wire []byte) (string, error) {
	t, err := tree.ParseAny(wire)
	if err != nil {
		return "", err
	}
	if e.planner == nil {
		return localExplain(t), nil
	}
	return e.planner.Explain(ctx, wire)
}

// Invoker returns the underlying tool invoker used by the engine.
func (e *Engine) Invoker() ports.ToolInvoker {
	return e.invoker
}

// localExplain describes a tree without consulting a planner: which
// tools it calls, followed by the compact rendering.
func localExplain(t *tree.Tree) string {
	var calls []string
	seen := make(map[string]bool)
	t.Walk(func(_ tree.NodeID, n *tree.Node) bool {
		if n.Kind == tree.KindFunction && !seen[n.Name] {
			seen[n.Name] = true
			calls = append(calls, n.Name)
		}
		return true
	})
	if len(calls) == 0 {
		return fmt.Sprintf("A program with no tool calls:\n\n%s", tree.Repr(t))
	}
	return fmt.Sprintf("A program calling %s:\n\n%s", strings.Join(calls, ", "), tree.Repr(t))
}
