// Package eval walks computation trees and produces values. It drives
// every function node through a ports.ToolInvoker, memoizes shared
// subtrees so they evaluate exactly once, and fans sibling work out
// across a bounded pool of goroutines.
package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/tree"
)

// DefaultMaxConcurrent bounds the fan-out of sibling evaluations when
// no explicit limit is configured.
const DefaultMaxConcurrent = 8

// Evaluator executes computation trees against a tool invoker. It is
// safe for concurrent use; every Evaluate call runs with its own
// memoization state.
type Evaluator struct {
	invoker       ports.ToolInvoker
	logger        *slog.Logger
	hooks         *LifecycleHooks
	maxConcurrent int
}

// Option defines a functional option for configuring the Evaluator.
type Option func(*Evaluator)

// WithLogger sets a custom structured logger for the evaluator.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks fired on node entry,
// node exit and tool invocations.
func WithLifecycleHooks(hooks LifecycleHooks) Option {
	return func(e *Evaluator) {
		e.hooks = &hooks
	}
}

// WithMaxConcurrent caps how many sibling evaluations may run at once
// within a single fan-out site. Values below one force sequential
// evaluation.
func WithMaxConcurrent(n int) Option {
	return func(e *Evaluator) {
		if n < 1 {
			n = 1
		}
		e.maxConcurrent = n
	}
}

// Sequential disables concurrent fan-out entirely. Useful for
// deterministic traces and stepwise debugging.
func Sequential() Option {
	return WithMaxConcurrent(1)
}

// New initializes an Evaluator bound to the given tool invoker.
func New(invoker ports.ToolInvoker, opts ...Option) *Evaluator {
	e := &Evaluator{
		invoker:       invoker,
		maxConcurrent: DefaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return e
}

// Closure is the value produced by evaluating a lambda node. Applying
// it binds its parameter names to argument values for the body.
type Closure struct {
	Params []string
	Body   tree.NodeID
}

// Evaluate walks the tree from its root and returns the final value.
// Shared subtrees evaluate exactly once per call unless an enclosing
// lambda rebinds one of their leaves. The returned value is the last
// statement of a program node, a Closure for a bare lambda, or the
// node's own result otherwise.
func (e *Evaluator) Evaluate(ctx context.Context, t *tree.Tree) (any, error) {
	if t == nil || t.Len() == 0 {
		return nil, nil
	}
	r := &run{
		e:    e,
		tree: t,
		memo: make([]memoCell, t.Len()),
		free: leafNames(t),
	}
	return r.eval(ctx, t.Root(), nil)
}

// memoCell holds the once-computed result of a node. sync.Once gives
// exactly-once semantics even when several goroutines race to the same
// shared subtree.
type memoCell struct {
	once sync.Once
	val  any
	err  error
}

// frame is one ring of lambda bindings. Frames form an immutable
// linked list so concurrent element evaluations can extend the chain
// without locking; lookup walks inward-out, innermost first.
type frame struct {
	parent *frame
	names  []string
	vals   []any
}

func (f *frame) lookup(name string) (any, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		for i, n := range fr.names {
			if n == name {
				return fr.vals[i], true
			}
		}
	}
	return nil, false
}

// bindsAny reports whether any active frame binds one of the given
// leaf names. A node whose leaves are all unbound by the frame chain
// is frame-independent and safe to memoize.
func (f *frame) bindsAny(names []string) bool {
	for fr := f; fr != nil; fr = fr.parent {
		for _, n := range fr.names {
			for _, want := range names {
				if n == want {
					return true
				}
			}
		}
	}
	return false
}

// leafNames computes, per node, the sorted set of value-leaf names
// reachable beneath it. Children precede parents in the arena, so a
// single forward pass suffices.
func leafNames(t *tree.Tree) [][]string {
	out := make([][]string, t.Len())
	t.Walk(func(id tree.NodeID, n *tree.Node) bool {
		if n.Kind == tree.KindValue {
			out[id] = []string{n.Name}
			return true
		}
		seen := make(map[string]struct{})
		var names []string
		for _, c := range n.Children {
			for _, name := range out[c] {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		out[id] = names
		return true
	})
	return out
}

// run carries the per-Evaluate state: the memo table and the
// precomputed leaf-name sets that gate it.
type run struct {
	e    *Evaluator
	tree *tree.Tree
	memo []memoCell
	free [][]string
}

// eval resolves one node, consulting the memo table when the frame
// chain cannot influence the result.
func (r *run) eval(ctx context.Context, id tree.NodeID, fr *frame) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fr != nil && fr.bindsAny(r.free[id]) {
		// A lambda parameter shadows a leaf beneath this node, so the
		// result depends on the frame and must not be cached.
		return r.evalNode(ctx, id, fr)
	}
	cell := &r.memo[id]
	cell.once.Do(func() {
		cell.val, cell.err = r.evalNode(ctx, id, nil)
	})
	return cell.val, cell.err
}

func (r *run) evalNode(ctx context.Context, id tree.NodeID, fr *frame) (any, error) {
	n := r.tree.Node(id)
	r.e.hooks.fireNodeEnter(ctx, n)
	val, err := r.evalKind(ctx, n, fr)
	r.e.hooks.fireNodeLeave(ctx, n, val, err)
	return val, err
}

func (r *run) evalKind(ctx context.Context, n *tree.Node, fr *frame) (any, error) {
	switch n.Kind {
	case tree.KindValue:
		if fr != nil {
			if v, ok := fr.lookup(n.Name); ok {
				return v, nil
			}
		}
		if !n.Bound {
			return nil, &UnboundParameterError{Key: n.Key, Name: n.Name}
		}
		return n.Value, nil

	case tree.KindFunction:
		return r.evalFunction(ctx, n, fr)

	case tree.KindLambda:
		return Closure{Params: n.Params, Body: n.Children[0]}, nil

	case tree.KindMap:
		return r.evalMap(ctx, n, fr)

	case tree.KindFilter:
		return r.evalFilter(ctx, n, fr)

	case tree.KindReduce:
		return r.evalReduce(ctx, n, fr)

	case tree.KindConditional:
		pred, err := r.eval(ctx, n.Children[0], fr)
		if err != nil {
			return nil, err
		}
		if Truthy(pred) {
			return r.eval(ctx, n.Children[1], fr)
		}
		return r.eval(ctx, n.Children[2], fr)

	case tree.KindProgram:
		var last any
		for _, c := range n.Children {
			v, err := r.eval(ctx, c, fr)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	default:
		return nil, &EvalError{Key: n.Key, Err: fmt.Errorf("unsupported node kind %s", n.Kind)}
	}
}

// evalFunction resolves all argument subtrees, concurrently when more
// than one is present, then invokes the named tool with positional
// arguments.
func (r *run) evalFunction(ctx context.Context, n *tree.Node, fr *frame) (any, error) {
	args := make([]any, len(n.Children))
	if err := r.evalAll(ctx, n.Children, fr, func(i int, v any) {
		args[i] = v
	}); err != nil {
		return nil, err
	}

	r.e.hooks.fireToolCall(ctx, n, args)
	r.e.logger.Debug("invoking tool", "tool", n.Name, "node", n.Key, "args", len(args))

	start := time.Now()
	out, err := r.e.invoker.Call(ctx, n.Name, args)
	elapsed := time.Since(start)
	r.e.hooks.fireToolReturn(ctx, n, out, err, elapsed)

	if err != nil {
		r.e.logger.Debug("tool failed", "tool", n.Name, "node", n.Key, "err", err)
		return nil, &ToolError{Key: n.Key, Op: n.Name, Err: err}
	}
	return out, nil
}

// evalAll evaluates the given nodes in input order, fanning out across
// goroutines when the evaluator allows it. Results land by index, so
// callers observe input order regardless of completion order.
func (r *run) evalAll(ctx context.Context, ids []tree.NodeID, fr *frame, sink func(int, any)) error {
	if len(ids) <= 1 || r.e.maxConcurrent <= 1 {
		for i, id := range ids {
			v, err := r.eval(ctx, id, fr)
			if err != nil {
				return err
			}
			sink(i, v)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.e.maxConcurrent)
	for i, id := range ids {
		g.Go(func() error {
			v, err := r.eval(gctx, id, fr)
			if err != nil {
				return err
			}
			sink(i, v)
			return nil
		})
	}
	return g.Wait()
}

// apply evaluates a closure body under a child frame binding the
// closure's parameters to the given values.
func (r *run) apply(ctx context.Context, cl Closure, fr *frame, vals ...any) (any, error) {
	child := &frame{parent: fr, names: cl.Params, vals: vals}
	return r.eval(ctx, cl.Body, child)
}

func (r *run) closureOf(ctx context.Context, n *tree.Node, fr *frame) (Closure, error) {
	v, err := r.eval(ctx, n.Children[0], fr)
	if err != nil {
		return Closure{}, err
	}
	cl, ok := v.(Closure)
	if !ok {
		return Closure{}, &EvalError{Key: n.Key, Op: n.Kind.String(), Err: fmt.Errorf("function child is not a lambda, got %T", v)}
	}
	return cl, nil
}

func (r *run) sequenceOf(ctx context.Context, n *tree.Node, fr *frame) ([]any, error) {
	v, err := r.eval(ctx, n.Children[1], fr)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, &EvalError{Key: n.Key, Op: n.Kind.String(), Err: fmt.Errorf("iterable must be a sequence, got %T", v)}
	}
	return seq, nil
}

// evalMap applies the lambda to every element, concurrently, and
// returns results in input order.
func (r *run) evalMap(ctx context.Context, n *tree.Node, fr *frame) (any, error) {
	cl, err := r.closureOf(ctx, n, fr)
	if err != nil {
		return nil, err
	}
	seq, err := r.sequenceOf(ctx, n, fr)
	if err != nil {
		return nil, err
	}

	results := make([]any, len(seq))
	err = r.applyAll(ctx, cl, seq, fr, func(i int, v any) {
		results[i] = v
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// evalFilter evaluates the predicate for every element concurrently,
// then collects the elements whose predicate was truthy, preserving
// input order.
func (r *run) evalFilter(ctx context.Context, n *tree.Node, fr *frame) (any, error) {
	cl, err := r.closureOf(ctx, n, fr)
	if err != nil {
		return nil, err
	}
	seq, err := r.sequenceOf(ctx, n, fr)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(seq))
	err = r.applyAll(ctx, cl, seq, fr, func(i int, v any) {
		keep[i] = Truthy(v)
	})
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(seq))
	for i, el := range seq {
		if keep[i] {
			results = append(results, el)
		}
	}
	return results, nil
}

// applyAll runs one closure application per element with the same
// ordering and fan-out rules as evalAll.
func (r *run) applyAll(ctx context.Context, cl Closure, seq []any, fr *frame, sink func(int, any)) error {
	if len(seq) <= 1 || r.e.maxConcurrent <= 1 {
		for i, el := range seq {
			v, err := r.apply(ctx, cl, fr, el)
			if err != nil {
				return err
			}
			sink(i, v)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.e.maxConcurrent)
	for i, el := range seq {
		g.Go(func() error {
			v, err := r.apply(gctx, cl, fr, el)
			if err != nil {
				return err
			}
			sink(i, v)
			return nil
		})
	}
	return g.Wait()
}

// evalReduce folds the sequence left to right. Each step depends on
// the previous accumulator, so reduction is inherently sequential.
func (r *run) evalReduce(ctx context.Context, n *tree.Node, fr *frame) (any, error) {
	cl, err := r.closureOf(ctx, n, fr)
	if err != nil {
		return nil, err
	}
	seq, err := r.sequenceOf(ctx, n, fr)
	if err != nil {
		return nil, err
	}
	acc, err := r.eval(ctx, n.Children[2], fr)
	if err != nil {
		return nil, err
	}

	for _, el := range seq {
		acc, err = r.apply(ctx, cl, fr, acc, el)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}
