package graph

import (
	"fmt"
	"strings"

	"github.com/treelang/treelang/pkg/tree"
)

// maxLiteral caps how much of a leaf literal makes it into a node
// label before truncation.
const maxLiteral = 24

// GenerateMermaid produces a Mermaid flowchart (graph TD) from a
// program tree. It applies semantic styling:
//   - Program: ((Circle))
//   - Function: [[Subroutine]]
//   - Unbound parameter: [/Parallelogram/] (an input)
//   - Default: [Rectangle]
//
// Each node prints once; a shared subexpression keeps its single box
// and collects one edge per parent, so the diagram shows the DAG
// shape, not an expanded copy per reference.
func GenerateMermaid(t *tree.Tree) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if t == nil || t.Len() == 0 {
		return sb.String()
	}

	reach := t.Reachable()
	t.Walk(func(id tree.NodeID, n *tree.Node) bool {
		if !reach[id] {
			return true
		}
		safeID := sanitizeMermaidID(n.Key)

		opener, closer := "[", "]"
		switch {
		case n.Kind == tree.KindProgram:
			opener, closer = "((", "))"
		case n.Kind == tree.KindFunction:
			opener, closer = "[[", "]]"
		case n.Kind == tree.KindValue && !n.Bound:
			opener, closer = "[/", "/]"
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, nodeLabel(n), closer))

		for i, c := range n.Children {
			child := t.Node(c)
			arrow := "-->"
			if label := edgeLabel(n.Kind, i); label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
				// Dotted arrow for the else branch.
				if n.Kind == tree.KindConditional && i == 2 {
					arrow = fmt.Sprintf("-. \"%s\" .->", label)
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(child.Key)))
		}
		return true
	})

	return sb.String()
}

// nodeLabel renders what goes inside a node's box.
func nodeLabel(n *tree.Node) string {
	switch n.Kind {
	case tree.KindValue:
		if !n.Bound {
			return escapeMermaidLabel(n.Name)
		}
		return escapeMermaidLabel(fmt.Sprintf("%s: %s", n.Name, formatLiteral(n.Value)))
	case tree.KindFunction:
		return escapeMermaidLabel(n.Name)
	case tree.KindLambda:
		return escapeMermaidLabel(fmt.Sprintf("lambda(%s)", strings.Join(n.Params, ", ")))
	case tree.KindProgram:
		if n.Name != "" {
			return escapeMermaidLabel(n.Name)
		}
		return "program"
	default:
		return n.Kind.String()
	}
}

// edgeLabel names a child slot where the position carries meaning.
// Function parameters and program statements stay unlabeled: their
// boxes already say what they are.
func edgeLabel(kind tree.Kind, child int) string {
	switch kind {
	case tree.KindMap, tree.KindFilter:
		return [...]string{"fn", "over"}[child]
	case tree.KindReduce:
		return [...]string{"fn", "over", "init"}[child]
	case tree.KindConditional:
		return [...]string{"if", "then", "else"}[child]
	}
	return ""
}

func formatLiteral(v any) string {
	s := fmt.Sprintf("%v", v)
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		s = fmt.Sprintf("%d", int64(f))
	}
	if runes := []rune(s); len(runes) > maxLiteral {
		s = string(runes[:maxLiteral]) + "..."
	}
	return s
}

// escapeMermaidLabel swaps double quotes for singles so labels cannot
// break out of their quoting.
func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
