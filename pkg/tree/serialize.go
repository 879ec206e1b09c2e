package tree

import (
	"encoding/json"
	"fmt"
)

// Serialize encodes the tree in the canonical typed wire format. Every
// node carries its identity in "id"; a node reached through more than
// one parent is written once and referenced as {"type":"ref","ref":id}
// afterwards, so Parse(Serialize(t)) reproduces t exactly, sharing
// included.
func Serialize(t *Tree) ([]byte, error) {
	s := &serializer{t: t, emitted: make([]bool, t.Len())}
	data, err := json.Marshal(s.encode(t.Root()))
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return data, nil
}

// SerializeDocument wraps the canonical encoding in the versioned
// envelope understood by ParseDocument.
func SerializeDocument(t *Tree) ([]byte, error) {
	s := &serializer{t: t, emitted: make([]bool, t.Len())}
	data, err := json.Marshal(map[string]any{
		"schema_version": CurrentSchemaVersion,
		"ast":            s.encode(t.Root()),
	})
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return data, nil
}

type serializer struct {
	t       *Tree
	emitted []bool
}

func (s *serializer) encode(id NodeID) map[string]any {
	n := s.t.Node(id)
	if s.emitted[id] {
		return map[string]any{"type": "ref", "ref": n.Key}
	}
	s.emitted[id] = true

	m := map[string]any{"type": n.Kind.String(), "id": n.Key}
	switch n.Kind {
	case KindValue:
		m["name"] = n.Name
		if n.Bound {
			m["value"] = n.Value
		}
	case KindFunction:
		m["name"] = n.Name
		m["params"] = s.encodeList(n.Children)
	case KindLambda:
		params := n.Params
		if params == nil {
			params = []string{}
		}
		m["params"] = params
		m["body"] = s.encode(n.Children[0])
	case KindMap, KindFilter:
		m["function"] = s.encode(n.Children[0])
		m["iterable"] = s.encode(n.Children[1])
	case KindReduce:
		m["function"] = s.encode(n.Children[0])
		m["iterable"] = s.encode(n.Children[1])
		m["initial"] = s.encode(n.Children[2])
	case KindConditional:
		m["predicate"] = s.encode(n.Children[0])
		m["then"] = s.encode(n.Children[1])
		m["else"] = s.encode(n.Children[2])
	case KindProgram:
		m["body"] = s.encodeList(n.Children)
		if n.Name != "" {
			m["name"] = n.Name
		}
		if n.Description != "" {
			m["description"] = n.Description
		}
	}
	return m
}

func (s *serializer) encodeList(ids []NodeID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = s.encode(id)
	}
	return out
}
