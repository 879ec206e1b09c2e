/*
Package observability turns evaluation lifecycle events into Prometheus
metrics and lets several consumers watch one evaluator.

Metrics collects node, tool, and whole-evaluation series; its Hooks()
plug straight into the evaluator. Merge combines independent hook sets
so metrics, logging, and custom watchers can observe the same run.
*/
package observability
