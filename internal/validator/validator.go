// Package validator lints parsed program trees. The parsers already
// guarantee structure; this layer finds the problems a structurally
// valid program can still have, like calls to tools that do not exist
// in the catalog it will run against.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/tree"
)

// Problem is one finding. Key locates the offending node.
type Problem struct {
	Key string
	Msg string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Key, p.Msg)
}

// Lint reports catalog-independent findings: arena nodes nothing
// references and unbound leaves that plain evaluation cannot supply.
func Lint(t *tree.Tree) []Problem {
	var problems []Problem
	reach := t.Reachable()
	t.Walk(func(id tree.NodeID, n *tree.Node) bool {
		if !reach[id] {
			problems = append(problems, Problem{Key: n.Key, Msg: "unreachable from the program root"})
			return true
		}
		if n.Kind == tree.KindValue && !n.Bound {
			problems = append(problems, Problem{
				Key: n.Key,
				Msg: fmt.Sprintf("unbound parameter %q; evaluation fails unless a compiled tool or lambda binds it", n.Name),
			})
		}
		return true
	})
	return problems
}

// CheckTools cross-checks every function call against the invoker's
// catalog: unknown tool names, and argument counts that contradict the
// tool's declared parameters. Tools without declared parameters skip
// the arity check.
func CheckTools(ctx context.Context, t *tree.Tree, invoker ports.ToolInvoker) ([]Problem, error) {
	specs, err := invoker.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	catalog := make(map[string]ports.ToolSpec, len(specs))
	for _, spec := range specs {
		catalog[spec.Name] = spec
	}

	reach := t.Reachable()
	var problems []Problem
	t.Walk(func(id tree.NodeID, n *tree.Node) bool {
		if !reach[id] || n.Kind != tree.KindFunction {
			return true
		}
		spec, ok := catalog[n.Name]
		if !ok {
			problems = append(problems, Problem{Key: n.Key, Msg: fmt.Sprintf("unknown tool %q", n.Name)})
			return true
		}
		if len(spec.Params) > 0 && len(spec.Params) != len(n.Children) {
			problems = append(problems, Problem{
				Key: n.Key,
				Msg: fmt.Sprintf("%q declares %d parameter(s), call passes %d", n.Name, len(spec.Params), len(n.Children)),
			})
		}
		return true
	})
	return problems, nil
}

// Summarize folds problems into a single error in reading order, or
// nil when there are none.
func Summarize(problems []Problem) error {
	if len(problems) == 0 {
		return nil
	}
	lines := make([]string, len(problems))
	for i, p := range problems {
		lines[i] = p.String()
	}
	return fmt.Errorf("found %d problem(s):\n- %s", len(problems), strings.Join(lines, "\n- "))
}
