// Package testutils holds shared helpers for exercising evaluators and
// planners against instrumented tool boundaries.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/treelang/treelang/pkg/ports"
)

// CountingInvoker wraps a ToolInvoker and records how many times each
// tool is called. Safe for concurrent use, matching the evaluator's
// fan-out.
type CountingInvoker struct {
	Base ports.ToolInvoker

	mu     sync.Mutex
	counts map[string]int
}

// NewCountingInvoker wraps base with call counting.
func NewCountingInvoker(base ports.ToolInvoker) *CountingInvoker {
	return &CountingInvoker{
		Base:   base,
		counts: make(map[string]int),
	}
}

// ListTools implements ports.ToolInvoker.
func (c *CountingInvoker) ListTools(ctx context.Context) ([]ports.ToolSpec, error) {
	return c.Base.ListTools(ctx)
}

// Call implements ports.ToolInvoker, counting before delegating.
func (c *CountingInvoker) Call(ctx context.Context, name string, args []any) (any, error) {
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
	return c.Base.Call(ctx, name, args)
}

// Counts returns a snapshot of per-tool call counts.
func (c *CountingInvoker) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Count returns the call count for one tool.
func (c *CountingInvoker) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Total returns the number of calls across all tools.
func (c *CountingInvoker) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, v := range c.counts {
		total += v
	}
	return total
}

// Reset clears all recorded counts.
func (c *CountingInvoker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
}

// FuncInvoker adapts plain functions into a ToolInvoker. Tests use it
// to stub a boundary without building a registry.
type FuncInvoker struct {
	ListFunc func(ctx context.Context) ([]ports.ToolSpec, error)
	CallFunc func(ctx context.Context, name string, args []any) (any, error)
}

// ListTools implements ports.ToolInvoker.
func (f *FuncInvoker) ListTools(ctx context.Context) ([]ports.ToolSpec, error) {
	if f.ListFunc == nil {
		return nil, nil
	}
	return f.ListFunc(ctx)
}

// Call implements ports.ToolInvoker.
func (f *FuncInvoker) Call(ctx context.Context, name string, args []any) (any, error) {
	if f.CallFunc == nil {
		return nil, fmt.Errorf("unexpected tool call: %s", name)
	}
	return f.CallFunc(ctx, name, args)
}

// StaticPlanner returns a fixed wire tree for every prompt. Tests use
// it to drive the ask path without a live model.
type StaticPlanner struct {
	Wire        []byte
	Explanation string
	Err         error
}

// Plan implements ports.Planner.
func (s *StaticPlanner) Plan(ctx context.Context, prompt string, tools []ports.ToolSpec) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Wire, nil
}

// Explain implements ports.Planner.
func (s *StaticPlanner) Explain(ctx context.Context, wire []byte) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Explanation, nil
}
