// Package tree defines the program-tree data model: a closed set of
// node kinds stored in an arena and addressed by stable ids, together
// with the wire parsers, the serializer and a human-readable rendering.
//
// A Tree is immutable once built. Parents reference children by NodeID,
// and every child id precedes its parent id in the arena, which makes
// shared subexpressions cheap (the same id reachable from two parents
// is one node) and cycles unrepresentable.
package tree

import "fmt"

// Kind identifies the variant of a node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindValue
	KindFunction
	KindLambda
	KindMap
	KindFilter
	KindReduce
	KindConditional
	KindProgram
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindValue:       "value",
	KindFunction:    "function",
	KindLambda:      "lambda",
	KindMap:         "map",
	KindFilter:      "filter",
	KindReduce:      "reduce",
	KindConditional: "conditional",
	KindProgram:     "program",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// NodeID addresses a node inside its Tree's arena.
type NodeID int32

// InvalidID is the zero value for "no node".
const InvalidID NodeID = -1

// Node is one unit of a program tree. Which fields are meaningful
// depends on Kind; Children carries a fixed layout per kind:
//
//	Function:    parameters, in declared order
//	Lambda:      [body]
//	Map/Filter:  [function, iterable]
//	Reduce:      [function, iterable, initial]
//	Conditional: [predicate, then, else]
//	Program:     statements, in declared order
//	Value:       none
//
// Key is the node's stable wire identity, unique within its tree and
// distinct from Name: two leaves both named "a" under unrelated
// functions carry different keys, which is what keeps parameter
// rebinding from conflating them.
type Node struct {
	Kind        Kind
	Key         string
	Name        string
	Description string
	Value       any
	Bound       bool
	Params      []string
	Children    []NodeID
}

// Tree is a rooted, acyclic graph of nodes. Nodes are stored in an
// arena ordered so that children always precede their parents.
type Tree struct {
	nodes []Node
	root  NodeID
	byKey map[string]NodeID
}

// Root returns the id of the root node.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes in the arena, including nodes only
// reachable through shared references.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given id. The returned value points
// into the arena and must be treated as read-only.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Lookup resolves a wire identity to its node id.
func (t *Tree) Lookup(key string) (NodeID, bool) {
	id, ok := t.byKey[key]
	return id, ok
}

// Walk visits every node in arena order (children before parents) and
// stops early when fn returns false.
func (t *Tree) Walk(fn func(id NodeID, n *Node) bool) {
	for i := range t.nodes {
		if !fn(NodeID(i), &t.nodes[i]) {
			return
		}
	}
}

// Reachable reports, per arena slot, whether the node is reachable from
// the root. Unreachable nodes can exist when a builder created more
// nodes than the final program references.
func (t *Tree) Reachable() []bool {
	seen := make([]bool, len(t.nodes))
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, c := range t.nodes[id].Children {
			visit(c)
		}
	}
	if t.root != InvalidID {
		visit(t.root)
	}
	return seen
}

// parentCounts returns how many reachable parents reference each node.
// A count above one marks a shared subexpression.
func (t *Tree) parentCounts() []int {
	counts := make([]int, len(t.nodes))
	reach := t.Reachable()
	for i, n := range t.nodes {
		if !reach[i] {
			continue
		}
		for _, c := range n.Children {
			counts[c]++
		}
	}
	return counts
}

// CloneWithValues returns a copy of the tree with the given Value
// leaves overwritten and marked bound. The receiver is not modified;
// child slices are shared because neither copy mutates them.
func (t *Tree) CloneWithValues(vals map[NodeID]any) *Tree {
	nodes := make([]Node, len(t.nodes))
	copy(nodes, t.nodes)
	for id, v := range vals {
		nodes[id].Value = v
		nodes[id].Bound = true
	}
	return &Tree{nodes: nodes, root: t.root, byKey: t.byKey}
}

// Equal reports structural equivalence from the roots down: same kinds,
// same names and leaf values, same child order, same sharing shape.
// Keys are identity metadata and are compared too, since both parsers
// and the serializer preserve them.
func Equal(a, b *Tree) bool {
	if a == nil || b == nil {
		return a == b
	}
	type pair struct{ x, y NodeID }
	seen := make(map[pair]bool)
	var eq func(x, y NodeID) bool
	eq = func(x, y NodeID) bool {
		p := pair{x, y}
		if seen[p] {
			return true
		}
		seen[p] = true
		na, nb := a.Node(x), b.Node(y)
		if na.Kind != nb.Kind || na.Key != nb.Key || na.Name != nb.Name {
			return false
		}
		if na.Kind == KindValue {
			if na.Bound != nb.Bound {
				return false
			}
			if na.Bound && !valueEqual(na.Value, nb.Value) {
				return false
			}
		}
		if len(na.Params) != len(nb.Params) || len(na.Children) != len(nb.Children) {
			return false
		}
		for i := range na.Params {
			if na.Params[i] != nb.Params[i] {
				return false
			}
		}
		for i := range na.Children {
			if !eq(na.Children[i], nb.Children[i]) {
				return false
			}
		}
		return true
	}
	return eq(a.root, b.root)
}

// valueEqual compares JSON-shaped literals (scalars, []any,
// map[string]any) without caring about container identity.
func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !valueEqual(v, bvv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
