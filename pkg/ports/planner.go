package ports

import "context"

// Planner is the generation boundary: it turns a natural-language
// request into a wire tree over the advertised tools, once, and can
// render a wire tree back into prose for humans. The core never calls
// back into the planner during evaluation.
type Planner interface {
	// Plan returns a wire-format tree (canonical or compact; the
	// parser accepts both).
	Plan(ctx context.Context, prompt string, tools []ToolSpec) ([]byte, error)
	// Explain describes what the given wire tree computes.
	Explain(ctx context.Context, wire []byte) (string, error)
}
