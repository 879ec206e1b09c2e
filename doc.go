/*
Package treelang executes structured program trees over externally
supplied tools. A natural-language request is translated once into a
tree of function calls, conditionals and higher-order operations; the
tree is then evaluated locally, dispatching its leaves to tools without
any further round-trip to the generating model.

It implements a "plan once, evaluate locally" architecture, separating
generation (the planner), execution (the evaluator) and side-effects
(the tools) behind narrow boundaries.

# Concept

treelang treats a computation as an immutable tree. Function nodes call
named tools, conditional nodes evaluate only the taken branch, and
map/filter/reduce nodes apply lambdas over sequences. Shared subtrees
evaluate exactly once, and independent siblings fan out concurrently up
to a configurable bound. This Hexagonal Architecture lets the engine run
against any tool source: an in-process registry, a remote MCP server, or
your own ports.ToolInvoker.

# Key Features

  - Single model round-trip: plan once, then evaluate without the model.
  - Deterministic evaluation: memoized shared subtrees, ordered results,
    short-circuit conditionals.
  - Tool compilation: freeze a tree into a reusable parameterized tool
    and publish it back to a catalog.
  - Strict contracts: wire trees validate on parse, tool arguments
    validate against declared schemas.

# Usage

Initialize the engine with a tool invoker. The in-process calculator
registry is enough to evaluate trees; attach a planner to translate
natural language.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/treelang/treelang"
		"github.com/treelang/treelang/pkg/registry"
	)

	func main() {
		eng, err := treelang.New(registry.Calculator())
		if err != nil {
			log.Fatal(err)
		}

		wire := []byte(`{
			"type": "function", "name": "add", "params": [
				{"type": "value", "name": "a", "value": 19},
				{"type": "value", "name": "b", "value": 23}
			]
		}`)

		result, err := eng.Eval(context.Background(), wire)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(result) // 42
	}
*/
package treelang
