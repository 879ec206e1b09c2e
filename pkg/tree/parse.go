package tree

import (
	"encoding/json"
	"errors"
	"fmt"
)

// maxParseDepth bounds recursion while decoding wire trees, so a
// hostile document fails with ErrMaxDepth instead of exhausting the
// stack.
const maxParseDepth = 512

// CurrentSchemaVersion is the envelope version ParseDocument accepts
// and SerializeDocument emits.
const CurrentSchemaVersion = "1.0"

// Parse decodes a canonical typed wire tree: every node is an object
// with a "type" discriminator, an optional "id" (its stable identity)
// and the kind-specific fields. A node of type "ref" re-uses an
// already-declared id, which is how shared subexpressions travel.
func Parse(data []byte) (*Tree, error) {
	d := newDecoder()
	root, err := d.node(data, 0)
	if err != nil {
		return nil, err
	}
	return d.finish(root)
}

// ParseAny decodes any accepted wire form: the versioned envelope, a
// bare canonical node, or the compact object form. The canonical
// error wins when nothing matches.
func ParseAny(data []byte) (*Tree, error) {
	t, err := ParseDocument(data)
	if err == nil {
		return t, nil
	}
	if t, cerr := ParseCompact(data); cerr == nil {
		return t, nil
	}
	return nil, err
}

// ParseDocument decodes either a bare node or the versioned envelope
// {"schema_version":"1.0","ast":{...}}.
func ParseDocument(data []byte) (*Tree, error) {
	var env struct {
		SchemaVersion *string         `json:"schema_version"`
		AST           json.RawMessage `json:"ast"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.SchemaVersion != nil {
		if *env.SchemaVersion != CurrentSchemaVersion {
			return nil, &ParseError{Err: fmt.Errorf("unsupported schema_version %q", *env.SchemaVersion)}
		}
		if len(env.AST) == 0 {
			return nil, parseErr("", ErrMissingField, "%q", "ast")
		}
		return Parse(env.AST)
	}
	return Parse(data)
}

type decoder struct {
	nodes  []Node
	byKey  map[string]NodeID
	open   map[string]bool
	counts map[string]int
}

func newDecoder() *decoder {
	return &decoder{
		byKey:  make(map[string]NodeID),
		open:   make(map[string]bool),
		counts: make(map[string]int),
	}
}

func (d *decoder) finish(root NodeID) (*Tree, error) {
	t := &Tree{nodes: d.nodes, root: root, byKey: d.byKey}
	if err := t.validate(); err != nil {
		// Field checks run inline; anything left is an arity problem.
		var se *StructuralError
		if errors.As(err, &se) {
			return nil, parseErr(se.Key, ErrBadArity, "%s", se.Msg)
		}
		return nil, &ParseError{Err: err}
	}
	return t, nil
}

func (d *decoder) node(data []byte, depth int) (NodeID, error) {
	if depth > maxParseDepth {
		return InvalidID, parseErr("", ErrMaxDepth, "")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return InvalidID, &ParseError{Err: fmt.Errorf("malformed node: %w", err)}
	}
	typ, err := d.str(obj, "", "type")
	if err != nil {
		return InvalidID, err
	}

	if typ == "ref" {
		target, err := d.str(obj, "", "ref")
		if err != nil {
			return InvalidID, err
		}
		if d.open[target] {
			return InvalidID, parseErr(target, ErrCycle, "node references an enclosing node")
		}
		id, ok := d.byKey[target]
		if !ok {
			return InvalidID, parseErr(target, ErrUnknownRef, "")
		}
		return id, nil
	}

	n := Node{}
	switch typ {
	case "value":
		n.Kind = KindValue
	case "function":
		n.Kind = KindFunction
	case "lambda":
		n.Kind = KindLambda
	case "map":
		n.Kind = KindMap
	case "filter":
		n.Kind = KindFilter
	case "reduce":
		n.Kind = KindReduce
	case "conditional":
		n.Kind = KindConditional
	case "program":
		n.Kind = KindProgram
	default:
		return InvalidID, parseErr("", ErrUnknownType, "%q", typ)
	}

	key, err := d.claimKey(obj, &n)
	if err != nil {
		return InvalidID, err
	}
	d.open[key] = true
	defer delete(d.open, key)

	switch n.Kind {
	case KindValue:
		raw, bound := obj["value"]
		n.Bound = bound
		if bound {
			if err := json.Unmarshal(raw, &n.Value); err != nil {
				return InvalidID, parseErr(key, fmt.Errorf("bad literal: %w", err), "")
			}
		}
	case KindFunction:
		if n.Children, err = d.nodeList(obj, key, "params", false, depth); err != nil {
			return InvalidID, err
		}
	case KindLambda:
		if raw, ok := obj["params"]; ok {
			if err := json.Unmarshal(raw, &n.Params); err != nil {
				return InvalidID, parseErr(key, fmt.Errorf("bad lambda params: %w", err), "")
			}
		}
		body, err := d.child(obj, key, depth, "body")
		if err != nil {
			return InvalidID, err
		}
		n.Children = []NodeID{body}
	case KindMap, KindFilter:
		fn, err := d.lambdaChild(obj, key, depth)
		if err != nil {
			return InvalidID, err
		}
		iter, err := d.child(obj, key, depth, "iterable")
		if err != nil {
			return InvalidID, err
		}
		n.Children = []NodeID{fn, iter}
	case KindReduce:
		fn, err := d.lambdaChild(obj, key, depth)
		if err != nil {
			return InvalidID, err
		}
		iter, err := d.child(obj, key, depth, "iterable")
		if err != nil {
			return InvalidID, err
		}
		initial, err := d.child(obj, key, depth, "initial")
		if err != nil {
			return InvalidID, err
		}
		n.Children = []NodeID{fn, iter, initial}
	case KindConditional:
		pred, err := d.child(obj, key, depth, "predicate", "condition")
		if err != nil {
			return InvalidID, err
		}
		then, err := d.child(obj, key, depth, "then", "true_branch")
		if err != nil {
			return InvalidID, err
		}
		els, err := d.child(obj, key, depth, "else", "false_branch")
		if err != nil {
			return InvalidID, err
		}
		n.Children = []NodeID{pred, then, els}
	case KindProgram:
		if n.Children, err = d.nodeList(obj, key, "body", false, depth); err != nil {
			return InvalidID, err
		}
		if raw, ok := obj["description"]; ok {
			_ = json.Unmarshal(raw, &n.Description)
		}
	}

	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	d.byKey[key] = id
	return id, nil
}

// claimKey settles the node's identity: the explicit "id" when given,
// otherwise an auto-derived "<base>_<n>" (or the plain name for a first
// leaf). Re-claiming an identity is a duplicate; re-claiming one that
// is still being parsed means the document nests a node inside itself.
func (d *decoder) claimKey(obj map[string]json.RawMessage, n *Node) (string, error) {
	if raw, ok := obj["name"]; ok {
		if err := json.Unmarshal(raw, &n.Name); err != nil {
			return "", &ParseError{Err: fmt.Errorf("bad name: %w", err)}
		}
	}
	switch n.Kind {
	case KindValue, KindFunction:
		if n.Name == "" {
			return "", parseErr("", ErrMissingField, "%q", "name")
		}
	}

	var key string
	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &key); err != nil || key == "" {
			return "", &ParseError{Err: fmt.Errorf("bad node id")}
		}
	} else {
		key = d.autoKey(n)
	}
	if d.open[key] {
		return "", parseErr(key, ErrCycle, "node nested inside itself")
	}
	if _, taken := d.byKey[key]; taken {
		return "", parseErr(key, ErrDuplicateID, "")
	}
	n.Key = key
	return key, nil
}

func (d *decoder) autoKey(n *Node) string {
	base := n.Kind.String()
	switch n.Kind {
	case KindFunction:
		base = n.Name
	case KindValue:
		if _, taken := d.byKey[n.Name]; !taken && !d.open[n.Name] {
			return n.Name
		}
		base = n.Name
	}
	for {
		d.counts[base]++
		key := fmt.Sprintf("%s_%d", base, d.counts[base])
		if _, taken := d.byKey[key]; !taken && !d.open[key] {
			return key
		}
	}
}

func (d *decoder) str(obj map[string]json.RawMessage, key, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", parseErr(key, ErrMissingField, "%q", field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", parseErr(key, fmt.Errorf("field %q must be a string", field), "")
	}
	return s, nil
}

func (d *decoder) child(obj map[string]json.RawMessage, key string, depth int, names ...string) (NodeID, error) {
	for _, name := range names {
		if raw, ok := obj[name]; ok {
			return d.node(raw, depth+1)
		}
	}
	return InvalidID, parseErr(key, ErrMissingField, "%q", names[0])
}

func (d *decoder) lambdaChild(obj map[string]json.RawMessage, key string, depth int) (NodeID, error) {
	fn, err := d.child(obj, key, depth, "function")
	if err != nil {
		return InvalidID, err
	}
	if d.nodes[fn].Kind != KindLambda {
		return InvalidID, parseErr(key, ErrBadArity, "function must be a lambda, got %s", d.nodes[fn].Kind)
	}
	return fn, nil
}

func (d *decoder) nodeList(obj map[string]json.RawMessage, key, field string, required bool, depth int) ([]NodeID, error) {
	raw, ok := obj[field]
	if !ok {
		if required {
			return nil, parseErr(key, ErrMissingField, "%q", field)
		}
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, parseErr(key, fmt.Errorf("field %q must be an array", field), "")
	}
	ids := make([]NodeID, 0, len(items))
	for _, item := range items {
		id, err := d.node(item, depth+1)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
