// Package registry provides an in-process tool catalog. It implements
// the same invocation boundary as the remote catalog adapters, so an
// evaluator can run against local Go functions and remote servers
// interchangeably.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/schema"
)

// ErrUnknownTool is returned when a call names a tool the registry
// does not hold.
var ErrUnknownTool = errors.New("unknown tool")

// ErrArity is returned when a positional call supplies too many or too
// few arguments for the tool's declared parameters.
var ErrArity = errors.New("wrong number of arguments")

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of named arguments, and returns a
// result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Tool bundles a tool implementation with its published declaration.
// Params order is the positional calling convention.
type Tool struct {
	Name        string
	Description string
	Params      schema.Params
	Func        ToolFunction
}

// Registry manages the available tools. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]Tool
	logger *slog.Logger
}

// Option defines a functional option for configuring the Registry.
type Option func(*Registry)

// WithLogger sets a custom structured logger for the registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return r
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten in place and
// keeps its position in the catalog listing.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Func == nil {
		return fmt.Errorf("tool %q has no implementation", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// MustRegister is Register that panics on error. Intended for
// package-level tool sets assembled at startup.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// ListTools implements ports.ToolInvoker. Tools are listed in
// registration order with their schemas rendered from the declared
// parameters.
func (r *Registry) ListTools(ctx context.Context) ([]ports.ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ports.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, ports.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Params.Object(),
			Params:      t.Params.Names(),
		})
	}
	return specs, nil
}

// Call implements ports.ToolInvoker. Positional arguments map onto the
// tool's declared parameters in order; trailing optional parameters
// may be omitted.
func (r *Registry) Call(ctx context.Context, name string, args []any) (any, error) {
	t, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	if len(args) > len(t.Params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, name, len(t.Params), len(args))
	}
	for _, p := range t.Params[len(args):] {
		if !p.Optional {
			return nil, fmt.Errorf("%w: %s missing required %q", ErrArity, name, p.Name)
		}
	}

	named := make(map[string]any, len(args))
	provided := make([]string, len(args))
	for i, arg := range args {
		named[t.Params[i].Name] = arg
		provided[i] = t.Params[i].Name
	}
	return r.run(ctx, t, named, provided)
}

// Execute runs a tool with named arguments directly, bypassing the
// positional convention. Remote-protocol servers backed by a registry
// use this path, since their clients already send named arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	declared := t.Params.Schema()
	provided := make([]string, 0, len(args))
	for _, p := range t.Params {
		if _, ok := args[p.Name]; ok {
			provided = append(provided, p.Name)
			continue
		}
		if !p.Optional {
			return nil, fmt.Errorf("%w: %s missing required %q", ErrArity, name, p.Name)
		}
	}
	for k := range args {
		if _, ok := declared[k]; !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrArity, name, k)
		}
	}
	return r.run(ctx, t, args, provided)
}

func (r *Registry) lookup(name string) (Tool, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

func (r *Registry) run(ctx context.Context, t Tool, named map[string]any, provided []string) (any, error) {
	if err := schema.ValidateFields(t.Params.Schema(), named, provided...); err != nil {
		return nil, fmt.Errorf("tool %s: %w", t.Name, err)
	}

	r.logger.Debug("executing tool", "tool", t.Name, "args", len(named))
	out, err := t.Func(ctx, named)
	if err != nil {
		r.logger.Debug("tool returned error", "tool", t.Name, "err", err)
		return nil, err
	}
	return out, nil
}
