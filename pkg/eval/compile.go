package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/schema"
	"github.com/treelang/treelang/pkg/tree"
)

// CompileOption configures tool compilation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	name        string
	description string
	overrides   map[string][]tree.NodeID
}

// WithName sets the published tool name, overriding the program node's
// own name.
func WithName(name string) CompileOption {
	return func(c *compileConfig) {
		c.name = name
	}
}

// WithDescription sets the published tool description.
func WithDescription(desc string) CompileOption {
	return func(c *compileConfig) {
		c.description = desc
	}
}

// WithBinding pins a declared parameter to specific leaf identities
// instead of binding every leaf that shares its name. Leaves claimed
// here are withdrawn from name-based binding for all other parameters,
// which is how two same-named leaves end up on different parameters.
func WithBinding(param string, ids ...tree.NodeID) CompileOption {
	return func(c *compileConfig) {
		if c.overrides == nil {
			c.overrides = make(map[string][]tree.NodeID)
		}
		c.overrides[param] = append(c.overrides[param], ids...)
	}
}

// CompiledTool is a tree published as a callable tool. Each Call
// substitutes arguments into a private copy of the tree and evaluates
// it, so a CompiledTool is safe for concurrent use.
type CompiledTool struct {
	ev          *Evaluator
	tree        *tree.Tree
	name        string
	description string
	params      []string
	bindings    map[string][]tree.NodeID
}

// Compile turns a tree into a callable tool. Each declared parameter
// binds to every reachable value leaf sharing its name, unless a
// WithBinding override pins it to explicit identities. Binding is
// resolved once here; Call only substitutes and evaluates.
func (e *Evaluator) Compile(t *tree.Tree, params []string, opts ...CompileOption) (*CompiledTool, error) {
	cfg := compileConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	for i, p := range params {
		if slices.Index(params, p) != i {
			return nil, &BindingError{Param: p, Reason: "declared more than once"}
		}
	}

	reach := t.Reachable()
	claimed := make(map[tree.NodeID]string)
	for param, ids := range cfg.overrides {
		if !slices.Contains(params, param) {
			return nil, &BindingError{Param: param, Reason: "override targets an undeclared parameter"}
		}
		for _, id := range ids {
			if id < 0 || int(id) >= t.Len() {
				return nil, &BindingError{Param: param, Reason: fmt.Sprintf("node %d does not exist", id)}
			}
			if t.Node(id).Kind != tree.KindValue {
				return nil, &BindingError{Param: param, Reason: fmt.Sprintf("node %q is not a value leaf", t.Node(id).Key)}
			}
			if !reach[id] {
				return nil, &BindingError{Param: param, Reason: fmt.Sprintf("leaf %q is not reachable from the root", t.Node(id).Key)}
			}
			if prev, dup := claimed[id]; dup {
				return nil, &BindingError{Param: param, Reason: fmt.Sprintf("leaf %q is already bound to parameter %q", t.Node(id).Key, prev)}
			}
			claimed[id] = param
		}
	}

	bindings := make(map[string][]tree.NodeID, len(params))
	for _, p := range params {
		if ids, ok := cfg.overrides[p]; ok {
			bindings[p] = slices.Clone(ids)
			continue
		}
		var ids []tree.NodeID
		t.Walk(func(id tree.NodeID, n *tree.Node) bool {
			if !reach[id] || n.Kind != tree.KindValue || n.Name != p {
				return true
			}
			if _, taken := claimed[id]; taken {
				return true
			}
			ids = append(ids, id)
			return true
		})
		if len(ids) == 0 {
			return nil, &BindingError{Param: p, Reason: "no value leaf carries this name"}
		}
		bindings[p] = ids
	}

	name := cfg.name
	desc := cfg.description
	if root := t.Node(t.Root()); root.Kind == tree.KindProgram {
		if name == "" {
			name = root.Name
		}
		if desc == "" {
			desc = root.Description
		}
	}
	if name == "" {
		return nil, fmt.Errorf("compiled tool needs a name: use WithName or name the program node")
	}

	return &CompiledTool{
		ev:          e,
		tree:        t,
		name:        name,
		description: desc,
		params:      append([]string{}, params...),
		bindings:    bindings,
	}, nil
}

// Name returns the published tool name.
func (ct *CompiledTool) Name() string { return ct.name }

// Description returns the published tool description.
func (ct *CompiledTool) Description() string { return ct.description }

// Params returns the declared parameter names in declaration order.
func (ct *CompiledTool) Params() []string { return slices.Clone(ct.params) }

// Call substitutes the named arguments into the tree and evaluates it.
// Every declared parameter must be supplied; undeclared arguments are
// rejected. The receiver's tree is never mutated.
func (ct *CompiledTool) Call(ctx context.Context, args map[string]any) (any, error) {
	for k := range args {
		if !slices.Contains(ct.params, k) {
			return nil, &BindingError{Param: k, Reason: "not a declared parameter"}
		}
	}

	vals := make(map[tree.NodeID]any, len(args))
	for _, p := range ct.params {
		v, ok := args[p]
		if !ok {
			return nil, &BindingError{Param: p, Reason: "missing argument"}
		}
		for _, id := range ct.bindings[p] {
			vals[id] = v
		}
	}

	working := ct.tree.CloneWithValues(vals)
	return ct.ev.Evaluate(ctx, working)
}

// Tool renders the declaration offered to tool catalogs. Parameter
// types are inferred from the literals currently bound at each
// parameter's leaves; schema properties keep declaration order so
// positional callers can rely on it.
func (ct *CompiledTool) Tool() ports.ToolSpec {
	params := make(schema.Params, len(ct.params))
	for i, p := range ct.params {
		params[i] = schema.Param{Name: p, Type: ct.paramType(p)}
	}
	return ports.ToolSpec{
		Name:        ct.name,
		Description: ct.description,
		InputSchema: params.Object(),
		Params:      ct.Params(),
	}
}

// paramType infers a schema type from the first bound literal among
// the parameter's leaves. Placeholder leaves contribute nothing.
func (ct *CompiledTool) paramType(param string) schema.Type {
	for _, id := range ct.bindings[param] {
		n := ct.tree.Node(id)
		if !n.Bound {
			continue
		}
		switch n.Value.(type) {
		case string:
			return schema.String()
		case bool:
			return schema.Bool()
		case float64, float32, int, int32, int64, json.Number:
			return schema.Float()
		case []any:
			return schema.Slice(schema.Any())
		}
	}
	return schema.Any()
}
