package tree

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Repr renders the tree in the compact keyed convention, one line,
// order-decorated: functions print as "<name>_<n>": {...} using their
// wire identity, leaves as "<name>": [<literal>]. A shared node prints
// once; later occurrences appear as "@<key>". The rendering is a
// convenience view for logs and prompts and is not invertible.
func Repr(t *Tree) string {
	r := &reprState{t: t, printed: make(map[NodeID]bool)}
	var sb strings.Builder
	root := t.Node(t.Root())
	if root.Kind == KindProgram {
		sb.WriteString("{")
		for i, stmt := range root.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			r.entry(&sb, stmt)
		}
		sb.WriteString("}")
	} else {
		sb.WriteString("{")
		r.entry(&sb, t.Root())
		sb.WriteString("}")
	}
	return sb.String()
}

type reprState struct {
	t       *Tree
	printed map[NodeID]bool
}

// entry writes one `"key": value` element.
func (r *reprState) entry(sb *strings.Builder, id NodeID) {
	n := r.t.Node(id)
	if r.printed[id] {
		fmt.Fprintf(sb, "%q", "@"+n.Key)
		return
	}
	r.printed[id] = true

	switch n.Kind {
	case KindValue:
		fmt.Fprintf(sb, "%q: [%s]", n.Name, formatLiteral(n.Value))
	case KindFunction:
		fmt.Fprintf(sb, "%q: {", n.Key)
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			r.entry(sb, c)
		}
		sb.WriteString("}")
	case KindLambda:
		fmt.Fprintf(sb, "%q: {\"params\": [", n.Key)
		for i, p := range n.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%q", p)
		}
		sb.WriteString("], \"body\": ")
		r.wrapped(sb, n.Children[0])
		sb.WriteString("}")
	case KindMap, KindFilter, KindReduce:
		fmt.Fprintf(sb, "%q: {\"function\": ", n.Key)
		r.wrapped(sb, n.Children[0])
		sb.WriteString(", \"iterable\": ")
		r.wrapped(sb, n.Children[1])
		if n.Kind == KindReduce {
			sb.WriteString(", \"initial\": ")
			r.wrapped(sb, n.Children[2])
		}
		sb.WriteString("}")
	case KindConditional:
		fmt.Fprintf(sb, "%q: {\"predicate\": ", n.Key)
		r.wrapped(sb, n.Children[0])
		sb.WriteString(", \"then\": ")
		r.wrapped(sb, n.Children[1])
		sb.WriteString(", \"else\": ")
		r.wrapped(sb, n.Children[2])
		sb.WriteString("}")
	case KindProgram:
		fmt.Fprintf(sb, "%q: {", n.Key)
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			r.entry(sb, c)
		}
		sb.WriteString("}")
	}
}

// wrapped writes a node position as a one-entry object, except that a
// lambda body keeps its own entry shape.
func (r *reprState) wrapped(sb *strings.Builder, id NodeID) {
	sb.WriteString("{")
	r.entry(sb, id)
	sb.WriteString("}")
}

// formatLiteral prints literals the way the repr convention expects:
// strings quoted, booleans lowercase, integral floats without the
// trailing ".0".
func formatLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, formatLiteral(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}
