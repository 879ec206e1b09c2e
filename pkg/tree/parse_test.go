package tree

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalFunction(t *testing.T) {
	wire := `{
		"type": "program",
		"body": [
			{"type": "function", "name": "add", "params": [
				{"type": "value", "name": "a", "value": 4},
				{"type": "value", "name": "b", "value": 7}
			]}
		]
	}`

	tr, err := Parse([]byte(wire))
	require.NoError(t, err)

	root := tr.Node(tr.Root())
	require.Equal(t, KindProgram, root.Kind)
	require.Len(t, root.Children, 1)

	fn := tr.Node(root.Children[0])
	assert.Equal(t, KindFunction, fn.Kind)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, "add_1", fn.Key)
	require.Len(t, fn.Children, 2)

	a := tr.Node(fn.Children[0])
	assert.Equal(t, "a", a.Name)
	assert.True(t, a.Bound)
	assert.Equal(t, 4.0, a.Value)
}

func TestParseConditionalLegacyFieldNames(t *testing.T) {
	wire := `{
		"type": "conditional",
		"condition": {"type": "value", "name": "flag", "value": true},
		"true_branch": {"type": "value", "name": "yes", "value": 1},
		"false_branch": {"type": "value", "name": "no", "value": 0}
	}`

	tr, err := Parse([]byte(wire))
	require.NoError(t, err)
	cond := tr.Node(tr.Root())
	require.Equal(t, KindConditional, cond.Kind)
	require.Len(t, cond.Children, 3)
	assert.Equal(t, "flag", tr.Node(cond.Children[0]).Name)
}

func TestParseConditionalRequiresElse(t *testing.T) {
	wire := `{
		"type": "conditional",
		"predicate": {"type": "value", "name": "flag", "value": true},
		"then": {"type": "value", "name": "yes", "value": 1}
	}`

	_, err := Parse([]byte(wire))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestParseReduceRequiresInitial(t *testing.T) {
	wire := `{
		"type": "reduce",
		"function": {"type": "lambda", "params": ["acc", "x"], "body": {"type": "function", "name": "add", "params": []}},
		"iterable": {"type": "value", "name": "xs", "value": [1, 2]}
	}`

	_, err := Parse([]byte(wire))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestParseUnboundPlaceholder(t *testing.T) {
	tr, err := Parse([]byte(`{"type": "value", "name": "x"}`))
	require.NoError(t, err)
	leaf := tr.Node(tr.Root())
	assert.False(t, leaf.Bound)

	// An explicit null is a bound literal; presence is what matters.
	tr, err = Parse([]byte(`{"type": "value", "name": "x", "value": null}`))
	require.NoError(t, err)
	leaf = tr.Node(tr.Root())
	assert.True(t, leaf.Bound)
	assert.Nil(t, leaf.Value)
}

func TestParseMapRejectsNonLambdaFunction(t *testing.T) {
	wire := `{
		"type": "map",
		"function": {"type": "value", "name": "f", "value": 1},
		"iterable": {"type": "value", "name": "xs", "value": [1]}
	}`

	_, err := Parse([]byte(wire))
	assert.ErrorIs(t, err, ErrBadArity)
}

func TestParseErrorCases(t *testing.T) {
	cases := []struct {
		name string
		wire string
		want error
	}{
		{"unknown type", `{"type": "loop", "body": []}`, ErrUnknownType},
		{"missing type", `{"name": "a", "value": 1}`, ErrMissingField},
		{"missing name", `{"type": "value", "value": 1}`, ErrMissingField},
		{"unknown ref", `{"type": "program", "body": [{"type": "ref", "ref": "nope"}]}`, ErrUnknownRef},
		{
			"duplicate id",
			`{"type": "program", "body": [
				{"type": "value", "id": "x", "name": "x", "value": 1},
				{"type": "value", "id": "x", "name": "x", "value": 2}
			]}`,
			ErrDuplicateID,
		},
		{
			"self reference",
			`{"type": "function", "id": "f_1", "name": "f", "params": [{"type": "ref", "ref": "f_1"}]}`,
			ErrCycle,
		},
		{
			"nested redefinition",
			`{"type": "function", "id": "f_1", "name": "f", "params": [{"type": "function", "id": "f_1", "name": "f"}]}`,
			ErrCycle,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.wire))
			assert.ErrorIs(t, err, tc.want)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseDepthBound(t *testing.T) {
	depth := maxParseDepth + 10
	var sb strings.Builder
	for i := 0; i < depth; i++ {
		sb.WriteString(`{"type": "function", "name": "f", "params": [`)
	}
	sb.WriteString(`{"type": "value", "name": "x", "value": 1}`)
	for i := 0; i < depth; i++ {
		sb.WriteString(`]}`)
	}

	_, err := Parse([]byte(sb.String()))
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestParseSharedRef(t *testing.T) {
	wire := `{
		"type": "program",
		"body": [
			{"type": "function", "id": "subtract_1", "name": "subtract", "params": [
				{"type": "value", "name": "a", "value": 50},
				{"type": "value", "name": "b", "value": 8}
			]},
			{"type": "function", "id": "divide_1", "name": "divide", "params": [
				{"type": "ref", "ref": "subtract_1"},
				{"type": "value", "name": "d", "value": 2}
			]}
		]
	}`

	tr, err := Parse([]byte(wire))
	require.NoError(t, err)

	sub, ok := tr.Lookup("subtract_1")
	require.True(t, ok)
	div, ok := tr.Lookup("divide_1")
	require.True(t, ok)
	assert.Equal(t, sub, tr.Node(div).Children[0], "ref did not resolve to the shared node")
	assert.Equal(t, 7, tr.Len())
}

func TestParseDocumentEnvelope(t *testing.T) {
	doc := `{"schema_version": "1.0", "ast": {"type": "value", "name": "x", "value": 42}}`
	tr, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 42.0, tr.Node(tr.Root()).Value)

	_, err = ParseDocument([]byte(`{"schema_version": "2.0", "ast": {"type": "value", "name": "x", "value": 1}}`))
	require.Error(t, err)

	// Bare nodes stay accepted.
	tr, err = ParseDocument([]byte(`{"type": "value", "name": "x", "value": 1}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Node(tr.Root()).Value)
}

func buildReferenceTrees(t *testing.T) map[string]*Tree {
	t.Helper()
	trees := make(map[string]*Tree)

	{
		b := NewBuilder()
		sum := b.Function("add", b.Value("a", 4.0), b.Value("b", 7.0))
		tr, err := b.Build(b.Program(sum))
		require.NoError(t, err)
		trees["flat function"] = tr
	}
	{
		b := NewBuilder()
		body := b.Function("power", b.Param("x"), b.Value("exp", 2.0))
		fn := b.Lambda([]string{"x"}, body)
		m := b.Map(fn, b.Value("xs", []any{1.0, 2.0, 3.0}))
		tr, err := b.Build(b.Program(m))
		require.NoError(t, err)
		trees["map over lambda"] = tr
	}
	{
		b := NewBuilder()
		body := b.Function("add", b.Param("acc"), b.Param("x"))
		fn := b.Lambda([]string{"acc", "x"}, body)
		red := b.Reduce(fn, b.Value("xs", []any{1.0, 2.0}), b.Value("seed", 0.0))
		tr, err := b.Build(b.Program(red))
		require.NoError(t, err)
		trees["reduce"] = tr
	}
	{
		b := NewBuilder()
		shared := b.Function("subtract", b.Value("a", 50.0), b.Value("b", 8.0))
		pred := b.Function("greater_than", shared, b.Value("limit", 100.0))
		cond := b.Conditional(pred, b.Value("cap", 100.0), shared)
		tr, err := b.Build(b.Program(cond))
		require.NoError(t, err)
		trees["conditional with shared subtree"] = tr
	}
	{
		b := NewBuilder()
		p := b.Program(b.Value("only", "answer"))
		b.Describe(p, "describe", "returns the answer")
		tr, err := b.Build(p)
		require.NoError(t, err)
		trees["named program"] = tr
	}

	return trees
}

func TestSerializeParseRoundTrip(t *testing.T) {
	for name, tr := range buildReferenceTrees(t) {
		t.Run(name, func(t *testing.T) {
			wire, err := Serialize(tr)
			require.NoError(t, err)

			back, err := Parse(wire)
			require.NoError(t, err)
			assert.True(t, Equal(tr, back), "round-trip changed the tree:\n%s", wire)

			// Sharing must survive: no node duplication on reparse.
			reach := 0
			for _, ok := range tr.Reachable() {
				if ok {
					reach++
				}
			}
			assert.Equal(t, reach, back.Len())
		})
	}
}

func TestSerializeDocumentRoundTrip(t *testing.T) {
	for _, tr := range buildReferenceTrees(t) {
		doc, err := SerializeDocument(tr)
		require.NoError(t, err)
		require.Contains(t, string(doc), fmt.Sprintf("%q", CurrentSchemaVersion))

		back, err := ParseDocument(doc)
		require.NoError(t, err)
		assert.True(t, Equal(tr, back))
	}
}
