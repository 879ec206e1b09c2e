/*
Package ports defines the driven ports (interfaces) for the treelang
engine.

These interfaces decouple the evaluator and the facade from external
implementations, so the same core runs against an in-process tool
registry or a remote MCP server, with or without a planner, and with
any conversation store.

# Key Interfaces

  - ToolInvoker: executes a named primitive operation for the
    evaluator (the tool-invocation boundary).
  - Planner: turns a natural-language request into a wire tree and
    renders trees back into prose.
  - Memory: persists per-session conversation history for the planner.
*/
package ports
