package tree

import "fmt"

// Builder constructs a Tree programmatically. Methods return the id of
// the node they add, so subtrees compose bottom-up:
//
//	b := tree.NewBuilder()
//	sum := b.Function("add", b.Value("a", 4), b.Value("b", 7))
//	t, err := b.Build(b.Program(sum))
//
// The first construction problem sticks and is returned by Build.
type Builder struct {
	nodes  []Node
	byKey  map[string]NodeID
	counts map[string]int
	err    error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		byKey:  make(map[string]NodeID),
		counts: make(map[string]int),
	}
}

// Value adds a bound literal leaf. The value should be JSON-shaped:
// a scalar, []any or map[string]any.
func (b *Builder) Value(name string, value any) NodeID {
	return b.add(Node{Kind: KindValue, Name: name, Value: value, Bound: true}, name, "")
}

// KeyedValue is Value with an explicit wire identity.
func (b *Builder) KeyedValue(key, name string, value any) NodeID {
	return b.add(Node{Kind: KindValue, Name: name, Value: value, Bound: true}, name, key)
}

// Param adds an unbound placeholder leaf. Evaluating it without a
// binding fails; the tool compiler and lambda frames give it a value.
func (b *Builder) Param(name string) NodeID {
	return b.add(Node{Kind: KindValue, Name: name}, name, "")
}

// KeyedParam is Param with an explicit wire identity.
func (b *Builder) KeyedParam(key, name string) NodeID {
	return b.add(Node{Kind: KindValue, Name: name}, name, key)
}

// Function adds an operation node whose params evaluate in the given
// order before the named tool is invoked.
func (b *Builder) Function(name string, params ...NodeID) NodeID {
	return b.add(Node{Kind: KindFunction, Name: name, Children: params}, name, "")
}

// KeyedFunction is Function with an explicit wire identity.
func (b *Builder) KeyedFunction(key, name string, params ...NodeID) NodeID {
	return b.add(Node{Kind: KindFunction, Name: name, Children: params}, name, key)
}

// Lambda adds an anonymous function with the given parameter names.
func (b *Builder) Lambda(params []string, body NodeID) NodeID {
	return b.add(Node{Kind: KindLambda, Params: params, Children: []NodeID{body}}, "lambda", "")
}

// Map applies fn (a one-parameter lambda) to each element of iterable.
func (b *Builder) Map(fn, iterable NodeID) NodeID {
	return b.add(Node{Kind: KindMap, Children: []NodeID{fn, iterable}}, "map", "")
}

// Filter keeps the elements of iterable for which fn is truthy.
func (b *Builder) Filter(fn, iterable NodeID) NodeID {
	return b.add(Node{Kind: KindFilter, Children: []NodeID{fn, iterable}}, "filter", "")
}

// Reduce left-folds iterable with fn (a two-parameter lambda), seeded
// by initial.
func (b *Builder) Reduce(fn, iterable, initial NodeID) NodeID {
	return b.add(Node{Kind: KindReduce, Children: []NodeID{fn, iterable, initial}}, "reduce", "")
}

// Conditional evaluates predicate and then exactly one branch.
func (b *Builder) Conditional(predicate, then, els NodeID) NodeID {
	return b.add(Node{Kind: KindConditional, Children: []NodeID{predicate, then, els}}, "conditional", "")
}

// Program adds a top-level statement sequence.
func (b *Builder) Program(stmts ...NodeID) NodeID {
	return b.add(Node{Kind: KindProgram, Children: stmts}, "program", "")
}

// Describe attaches a name and description to a node. Programs carry
// them on the wire and compiled tools use them as catalog metadata.
func (b *Builder) Describe(id NodeID, name, description string) {
	if b.err != nil || !b.valid(id) {
		return
	}
	b.nodes[id].Name = name
	b.nodes[id].Description = description
}

func (b *Builder) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(b.nodes)
}

func (b *Builder) add(n Node, base, key string) NodeID {
	if b.err != nil {
		return InvalidID
	}
	for _, c := range n.Children {
		if !b.valid(c) {
			b.err = structuralErr(key, "unknown child node %d", c)
			return InvalidID
		}
	}
	if key == "" {
		key = b.nextKey(n.Kind, base)
	} else if _, taken := b.byKey[key]; taken {
		b.err = structuralErr(key, "duplicate key")
		return InvalidID
	}
	n.Key = key
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	b.byKey[key] = id
	return id
}

// nextKey derives a wire identity: plain name for the first leaf of a
// name, "<base>_<n>" for operations and repeated leaves.
func (b *Builder) nextKey(kind Kind, base string) string {
	if kind == KindValue {
		if _, taken := b.byKey[base]; !taken {
			return base
		}
	}
	for {
		b.counts[base]++
		key := fmt.Sprintf("%s_%d", base, b.counts[base])
		if _, taken := b.byKey[key]; !taken {
			return key
		}
	}
}

// Build validates the structure and returns the finished tree. The
// Builder must not be reused afterwards.
func (b *Builder) Build(root NodeID) (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.valid(root) {
		return nil, structuralErr("", "root node %d does not exist", root)
	}
	t := &Tree{nodes: b.nodes, root: root, byKey: b.byKey}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// validate enforces the per-kind structural invariants. Parsers run
// their own field checks but still funnel through this before handing
// a tree out.
func (t *Tree) validate() error {
	for i := range t.nodes {
		id := NodeID(i)
		n := &t.nodes[i]
		for _, c := range n.Children {
			if c < 0 || c >= id {
				return structuralErr(n.Key, "child %d does not precede its parent", c)
			}
		}
		switch n.Kind {
		case KindValue:
			if len(n.Children) != 0 {
				return structuralErr(n.Key, "value leaves take no children")
			}
		case KindFunction:
			if n.Name == "" {
				return structuralErr(n.Key, "function requires an operation name")
			}
		case KindLambda:
			if len(n.Children) != 1 {
				return structuralErr(n.Key, "lambda requires exactly one body")
			}
		case KindMap, KindFilter:
			if len(n.Children) != 2 {
				return structuralErr(n.Key, "%s requires a function and an iterable", n.Kind)
			}
			if err := t.checkLambdaArity(n, n.Children[0], 1); err != nil {
				return err
			}
		case KindReduce:
			if len(n.Children) != 3 {
				return structuralErr(n.Key, "reduce requires a function, an iterable and an initial value")
			}
			if err := t.checkLambdaArity(n, n.Children[0], 2); err != nil {
				return err
			}
		case KindConditional:
			if len(n.Children) != 3 {
				return structuralErr(n.Key, "conditional requires a predicate and both branches")
			}
		case KindProgram:
			// Empty programs are legal and evaluate to nil.
		default:
			return structuralErr(n.Key, "unknown kind %d", n.Kind)
		}
	}
	return nil
}

func (t *Tree) checkLambdaArity(parent *Node, fn NodeID, arity int) error {
	f := t.Node(fn)
	if f.Kind != KindLambda {
		return structuralErr(parent.Key, "%s function must be a lambda, got %s", parent.Kind, f.Kind)
	}
	if len(f.Params) != arity {
		return structuralErr(parent.Key, "%s function must take %d parameter(s), got %d", parent.Kind, arity, len(f.Params))
	}
	return nil
}
