package tree

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// ParseCompact decodes the compact keyed wire convention, the shape
// generators favor: a nested object whose keys double as node
// identities. The top-level object is the program body. A key of the
// form "<op>_<n>" with an object value is a Function invoking <op>; the
// reserved bases map, filter, reduce, conditional, lambda and program
// select the control kinds, whose values hold their field names
// (function, iterable, initial, predicate, then, else, params, body);
// any other key is a Value leaf, its literal wrapped in a one-element
// array ("a": [4] binds 4; a bare scalar is tolerated). Key order in
// the document is declaration order, so decoding walks objects in
// document order rather than through Go maps. Repeating a key refers
// to the node it already named; repeating it inside its own definition
// is a cycle and fails.
func ParseCompact(data []byte) (*Tree, error) {
	d := newDecoder()

	entries, err := d.compactEntries("", data, 0)
	if err != nil {
		return nil, err
	}

	// A single explicit program key is the root; otherwise the top
	// object's statements become one.
	if len(entries) == 1 && d.nodes[entries[0]].Kind == KindProgram {
		return d.finish(entries[0])
	}
	root := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, Node{Kind: KindProgram, Key: d.autoKey(&Node{Kind: KindProgram}), Children: entries})
	d.byKey[d.nodes[root].Key] = root
	return d.finish(root)
}

// compactEntries parses every key of an object as a node entry, in
// document order.
func (d *decoder) compactEntries(parent string, data []byte, depth int) ([]NodeID, error) {
	if depth > maxParseDepth {
		return nil, parseErr(parent, ErrMaxDepth, "")
	}
	var ids []NodeID
	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		id, err := d.compactEntry(string(key), value, dt, depth)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			return nil, pe
		}
		return nil, &ParseError{Key: parent, Err: fmt.Errorf("malformed object: %w", err)}
	}
	return ids, nil
}

// compactEntry decodes one "key": value pair into a node.
func (d *decoder) compactEntry(key string, value []byte, dt jsonparser.ValueType, depth int) (NodeID, error) {
	if depth > maxParseDepth {
		return InvalidID, parseErr(key, ErrMaxDepth, "")
	}
	if d.open[key] {
		return InvalidID, parseErr(key, ErrCycle, "node nested inside itself")
	}
	if id, ok := d.byKey[key]; ok {
		// Same identity seen again: a shared reference. The first
		// definition wins; a repeated body is not re-read.
		return id, nil
	}

	base := trimOrderSuffix(key)
	switch base {
	case "program", "map", "filter", "reduce", "conditional", "lambda":
		if dt != jsonparser.Object {
			return InvalidID, parseErr(key, ErrMissingField, "%s requires an object body", base)
		}
		return d.compactControl(key, base, value, depth)
	}

	if dt == jsonparser.Object {
		return d.compactFunction(key, base, value, depth)
	}
	return d.compactLeaf(key, base, value, dt)
}

func (d *decoder) compactFunction(key, name string, value []byte, depth int) (NodeID, error) {
	d.open[key] = true
	params, err := d.compactEntries(key, value, depth+1)
	delete(d.open, key)
	if err != nil {
		return InvalidID, err
	}
	return d.append(Node{Kind: KindFunction, Key: key, Name: name, Children: params}), nil
}

func (d *decoder) compactLeaf(key, name string, value []byte, dt jsonparser.ValueType) (NodeID, error) {
	lit, err := compactLiteral(value, dt)
	if err != nil {
		return InvalidID, parseErr(key, err, "")
	}
	// The convention wraps a leaf's literal in a one-element array.
	if arr, ok := lit.([]any); ok && len(arr) == 1 {
		lit = arr[0]
	}
	return d.append(Node{Kind: KindValue, Key: key, Name: name, Value: lit, Bound: true}), nil
}

func (d *decoder) compactControl(key, base string, value []byte, depth int) (NodeID, error) {
	d.open[key] = true
	defer delete(d.open, key)

	n := Node{Key: key}
	switch base {
	case "program":
		n.Kind = KindProgram
		stmts, err := d.compactEntries(key, value, depth+1)
		if err != nil {
			return InvalidID, err
		}
		n.Children = stmts
	case "lambda":
		n.Kind = KindLambda
		params, body, err := d.compactLambdaSpec(key, value, depth)
		if err != nil {
			return InvalidID, err
		}
		n.Params, n.Children = params, []NodeID{body}
	case "map", "filter", "reduce":
		switch base {
		case "map":
			n.Kind = KindMap
		case "filter":
			n.Kind = KindFilter
		default:
			n.Kind = KindReduce
		}
		fn, err := d.compactLambdaField(key, value, depth)
		if err != nil {
			return InvalidID, err
		}
		iter, err := d.compactField(key, value, depth, "iterable")
		if err != nil {
			return InvalidID, err
		}
		n.Children = []NodeID{fn, iter}
		if base == "reduce" {
			initial, err := d.compactField(key, value, depth, "initial")
			if err != nil {
				return InvalidID, err
			}
			n.Children = append(n.Children, initial)
		}
	case "conditional":
		n.Kind = KindConditional
		pred, err := d.compactField(key, value, depth, "predicate", "condition")
		if err != nil {
			return InvalidID, err
		}
		then, err := d.compactField(key, value, depth, "then", "true_branch")
		if err != nil {
			return InvalidID, err
		}
		els, err := d.compactField(key, value, depth, "else", "false_branch")
		if err != nil {
			return InvalidID, err
		}
		n.Children = []NodeID{pred, then, els}
	}
	return d.append(n), nil
}

func (d *decoder) append(n Node) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	d.byKey[n.Key] = id
	return id
}

// compactField resolves a named field of a control node to a child
// node. An object value must hold exactly one keyed entry; a scalar or
// array becomes a leaf named after the field.
func (d *decoder) compactField(parent string, data []byte, depth int, names ...string) (NodeID, error) {
	for _, name := range names {
		value, dt, _, err := jsonparser.Get(data, name)
		if err != nil {
			continue
		}
		return d.compactPosition(parent, name, value, dt, depth)
	}
	return InvalidID, parseErr(parent, ErrMissingField, "%q", names[0])
}

func (d *decoder) compactPosition(parent, field string, value []byte, dt jsonparser.ValueType, depth int) (NodeID, error) {
	if dt != jsonparser.Object {
		key := d.autoKey(&Node{Kind: KindValue, Name: field})
		return d.compactLeaf(key, field, value, dt)
	}
	ids, err := d.compactEntries(parent, value, depth+1)
	if err != nil {
		return InvalidID, err
	}
	if len(ids) != 1 {
		return InvalidID, parseErr(parent, fmt.Errorf("field %q must hold a single keyed node, got %d", field, len(ids)), "")
	}
	return ids[0], nil
}

// compactLambdaField reads the "function" field of map/filter/reduce:
// either an inline {"params": [...], "body": {...}} spec or a keyed
// lambda entry.
func (d *decoder) compactLambdaField(parent string, data []byte, depth int) (NodeID, error) {
	value, dt, _, err := jsonparser.Get(data, "function")
	if err != nil {
		return InvalidID, parseErr(parent, ErrMissingField, "%q", "function")
	}
	if dt != jsonparser.Object {
		return InvalidID, parseErr(parent, ErrBadArity, "function must be a lambda")
	}
	if _, _, _, specErr := jsonparser.Get(value, "body"); specErr == nil {
		key := d.autoKey(&Node{Kind: KindLambda})
		d.open[key] = true
		params, body, err := d.compactLambdaSpec(key, value, depth)
		delete(d.open, key)
		if err != nil {
			return InvalidID, err
		}
		return d.append(Node{Kind: KindLambda, Key: key, Params: params, Children: []NodeID{body}}), nil
	}
	id, err := d.compactPosition(parent, "function", value, dt, depth)
	if err != nil {
		return InvalidID, err
	}
	if d.nodes[id].Kind != KindLambda {
		return InvalidID, parseErr(parent, ErrBadArity, "function must be a lambda, got %s", d.nodes[id].Kind)
	}
	return id, nil
}

func (d *decoder) compactLambdaSpec(key string, data []byte, depth int) ([]string, NodeID, error) {
	var params []string
	if raw, dt, _, err := jsonparser.Get(data, "params"); err == nil && dt == jsonparser.Array {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, InvalidID, parseErr(key, fmt.Errorf("bad lambda params: %w", err), "")
		}
	}
	value, dt, _, err := jsonparser.Get(data, "body")
	if err != nil {
		return nil, InvalidID, parseErr(key, ErrMissingField, "%q", "body")
	}
	body, perr := d.compactPosition(key, "body", value, dt, depth)
	if perr != nil {
		return nil, InvalidID, perr
	}
	return params, body, nil
}

// compactLiteral decodes a raw jsonparser value into a Go literal.
func compactLiteral(value []byte, dt jsonparser.ValueType) (any, error) {
	switch dt {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return jsonparser.ParseFloat(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Array, jsonparser.Object:
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, fmt.Errorf("bad literal: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("bad literal")
	}
}

// trimOrderSuffix strips a trailing "_<digits>" order decoration.
func trimOrderSuffix(key string) string {
	idx := strings.LastIndexByte(key, '_')
	if idx <= 0 || idx == len(key)-1 {
		return key
	}
	for _, c := range key[idx+1:] {
		if c < '0' || c > '9' {
			return key
		}
	}
	return key[:idx]
}
