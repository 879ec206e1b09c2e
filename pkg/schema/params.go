package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Param declares one tool parameter.
type Param struct {
	Name        string
	Type        Type
	Description string
	Optional    bool
}

// Params is an ordered parameter list. Order matters: positional
// callers map arguments onto parameters by declaration order.
type Params []Param

// Names returns the parameter names in declaration order.
func (ps Params) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Schema returns the unordered validation view of the parameters.
func (ps Params) Schema() Schema {
	s := make(Schema, len(ps))
	for _, p := range ps {
		typ := p.Type
		if typ == nil {
			typ = Any()
		}
		s[p.Name] = typ
	}
	return s
}

// Object renders the parameters as a JSON Schema object document.
// Properties appear in declaration order and required lists every
// non-optional parameter, so the document survives a Properties
// round-trip with order intact.
func (ps Params) Object() json.RawMessage {
	var b bytes.Buffer
	b.WriteString(`{"type":"object","properties":{`)
	required := make([]string, 0, len(ps))
	for i, p := range ps {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(p.Name)
		b.Write(key)
		b.WriteByte(':')
		prop := map[string]any{}
		if p.Type != nil {
			if jt := p.Type.JSONType(); jt != "" {
				prop["type"] = jt
			}
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		enc, _ := json.Marshal(prop)
		b.Write(enc)
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	b.WriteString(`},"required":`)
	req, _ := json.Marshal(required)
	b.Write(req)
	b.WriteByte('}')
	return json.RawMessage(b.Bytes())
}

// Properties returns the property names of a JSON Schema object in
// document order. Catalogs that accept positional arguments rely on
// this order to map positions onto names.
func Properties(raw json.RawMessage) ([]string, error) {
	props, _, _, err := jsonparser.Get(raw, "properties")
	if err != nil {
		if err == jsonparser.KeyPathNotFoundError {
			return nil, nil
		}
		return nil, fmt.Errorf("schema has no readable properties: %w", err)
	}
	var names []string
	err = jsonparser.ObjectEach(props, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		names = append(names, string(key))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schema properties not an object: %w", err)
	}
	return names, nil
}
