package eval

import (
	"context"
	"errors"
	"fmt"
)

// UnboundParameterError reports a placeholder leaf that reached
// evaluation without a value.
type UnboundParameterError struct {
	Key  string
	Name string
}

func (e *UnboundParameterError) Error() string {
	return fmt.Sprintf("unbound parameter %q at node %q", e.Name, e.Key)
}

// ToolError wraps a failed tool invocation with the identity of the
// node that made the call. The evaluator never retries; retry policy
// belongs to the boundary.
type ToolError struct {
	Key string
	Op  string
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed at node %q: %v", e.Op, e.Key, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// EvalError reports an evaluation fault at a specific node, such as a
// map over a non-sequence.
type EvalError struct {
	Key string
	Op  string
	Err error
}

func (e *EvalError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("eval error at node %q (%s): %v", e.Key, e.Op, e.Err)
	}
	return fmt.Sprintf("eval error at node %q: %v", e.Key, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// BindingError reports that the tool compiler could not bind a
// declared parameter, or that a compiled call supplied the wrong
// arguments. It surfaces before any evaluation happens.
type BindingError struct {
	Param  string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("cannot bind parameter %q: %s", e.Param, e.Reason)
}

// IsCancelled reports whether the evaluation ended because its context
// was cancelled or timed out.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
