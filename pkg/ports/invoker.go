package ports

import (
	"context"
	"encoding/json"
)

// ToolSpec describes one callable tool as the boundary advertises it.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	// InputSchema is the tool's argument schema (JSON Schema object).
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	// Params lists the argument names in declared order. Positional
	// arguments from the evaluator map onto these.
	Params []string `json:"params,omitempty"`
}

// ToolInvoker is the tool-invocation boundary the evaluator suspends
// on. Call receives the evaluated arguments in the tool's declared
// parameter order; the implementation maps them onto named arguments.
//
// Implementations must treat non-JSON tool output as data, not as an
// error: raw content passes through unmodified.
type ToolInvoker interface {
	ListTools(ctx context.Context) ([]ToolSpec, error)
	Call(ctx context.Context, name string, args []any) (any, error)
}
