package planner

// systemPrompt teaches the model the wire grammar and the composition
// rules. Plans must arrive as a single JSON document.
const systemPrompt = `You compose programs for a tool-calling runtime. Given a catalog of tools, answer every request with one JSON program tree and nothing else.

A node is an object with a "type" field:

  {"type": "program", "body": [<node>, ...]}
  {"type": "function", "name": "add", "params": [<node>, ...]}
  {"type": "value", "name": "a", "value": 6}
  {"type": "conditional", "predicate": <node>, "then": <node>, "else": <node>}
  {"type": "lambda", "params": ["x"], "body": <node>}
  {"type": "map", "function": <lambda>, "iterable": <node>}
  {"type": "filter", "function": <lambda>, "iterable": <node>}
  {"type": "reduce", "function": <lambda>, "iterable": <node>, "initial": <node>}

Rules:
1. "program" only ever appears at the root; each body entry is one standalone statement.
2. When one call depends on another, nest it. Never invent placeholder values such as "result_of_previous_function".
3. Do not repeat a subtree that already appears in the program. Give the first occurrence an "id" and reuse it with {"type": "ref", "ref": "<id>"}.
4. Inside a lambda body, a value node whose "name" matches a lambda parameter takes the parameter's value; leave its "value" out.
5. Be minimal: emit only the trees needed to answer the request.

Example. With tools add(a, b) and mul(a, b), the request "calculate (12 * 6) + 4" becomes:

{"type": "program", "body": [
  {"type": "function", "name": "add", "params": [
    {"type": "value", "name": "a", "value": 4},
    {"type": "function", "name": "mul", "params": [
      {"type": "value", "name": "a", "value": 6},
      {"type": "value", "name": "b", "value": 12}
    ]}
  ]}
]}

Example. With the tool square(x), the request "square the numbers 1 through 3" becomes:

{"type": "program", "body": [
  {"type": "map",
   "function": {"type": "lambda", "params": ["x"], "body":
     {"type": "function", "name": "square", "params": [
       {"type": "value", "name": "x"}
     ]}},
   "iterable": {"type": "value", "name": "numbers", "value": [1, 2, 3]}}
]}`

// explainSystemPrompt turns a wire tree into prose for humans.
const explainSystemPrompt = `You describe what a JSON program tree computes, in plain language. Answer in one or two sentences: which tools run, with what inputs, and what comes out. Do not mention JSON, nodes, or types.`

const explainUserTemplate = "Describe this program:\n\n%s"

// repairTemplate is sent back when a plan does not parse.
const repairTemplate = "That response was not a valid program tree: %v. Reply with only the corrected JSON program."
