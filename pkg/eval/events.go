package eval

import (
	"context"
	"time"

	"github.com/treelang/treelang/pkg/tree"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent represents entry or exit from a node. Leave events carry
// the node result, or the error that aborted it.
type NodeEvent struct {
	EventBase
	NodeKey  string `json:"node_key"`
	NodeKind string `json:"node_kind"`
	Result   any    `json:"result,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
	Err      error  `json:"-"`
}

// ToolEvent represents a tool invocation made by a function node.
type ToolEvent struct {
	EventBase
	NodeKey  string        `json:"node_key"`
	ToolName string        `json:"tool_name"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for evaluator observability. All
// fields are optional. Hooks fire synchronously from evaluator
// goroutines and may run concurrently, so they must be thread-safe.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

func (h *LifecycleHooks) fireNodeEnter(ctx context.Context, n *tree.Node) {
	if h == nil || h.OnNodeEnter == nil {
		return
	}
	h.OnNodeEnter(ctx, &NodeEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: EventNodeEnter},
		NodeKey:   n.Key,
		NodeKind:  n.Kind.String(),
	})
}

func (h *LifecycleHooks) fireNodeLeave(ctx context.Context, n *tree.Node, result any, err error) {
	if h == nil || h.OnNodeLeave == nil {
		return
	}
	h.OnNodeLeave(ctx, &NodeEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: EventNodeLeave},
		NodeKey:   n.Key,
		NodeKind:  n.Kind.String(),
		Result:    result,
		IsError:   err != nil,
		Err:       err,
	})
}

func (h *LifecycleHooks) fireToolCall(ctx context.Context, n *tree.Node, args []any) {
	if h == nil || h.OnToolCall == nil {
		return
	}
	h.OnToolCall(ctx, &ToolEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: EventToolCall},
		NodeKey:   n.Key,
		ToolName:  n.Name,
		Input:     args,
	})
}

func (h *LifecycleHooks) fireToolReturn(ctx context.Context, n *tree.Node, out any, err error, elapsed time.Duration) {
	if h == nil || h.OnToolReturn == nil {
		return
	}
	h.OnToolReturn(ctx, &ToolEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: EventToolReturn},
		NodeKey:   n.Key,
		ToolName:  n.Name,
		Output:    out,
		Elapsed:   elapsed,
		IsError:   err != nil,
		Err:       err,
	})
}
