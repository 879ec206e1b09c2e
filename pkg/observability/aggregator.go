package observability

import (
	"context"

	"github.com/treelang/treelang/pkg/eval"
)

// Merge combines several hook sets into one, firing each in order.
// Callbacks nobody set stay nil, so the evaluator skips building
// events for them.
func Merge(hooks ...eval.LifecycleHooks) eval.LifecycleHooks {
	var merged eval.LifecycleHooks

	for _, h := range hooks {
		if h.OnNodeEnter != nil {
			merged.OnNodeEnter = fanOutNode(hooks, func(h eval.LifecycleHooks) func(context.Context, *eval.NodeEvent) {
				return h.OnNodeEnter
			})
			break
		}
	}
	for _, h := range hooks {
		if h.OnNodeLeave != nil {
			merged.OnNodeLeave = fanOutNode(hooks, func(h eval.LifecycleHooks) func(context.Context, *eval.NodeEvent) {
				return h.OnNodeLeave
			})
			break
		}
	}
	for _, h := range hooks {
		if h.OnToolCall != nil {
			merged.OnToolCall = fanOutTool(hooks, func(h eval.LifecycleHooks) func(context.Context, *eval.ToolEvent) {
				return h.OnToolCall
			})
			break
		}
	}
	for _, h := range hooks {
		if h.OnToolReturn != nil {
			merged.OnToolReturn = fanOutTool(hooks, func(h eval.LifecycleHooks) func(context.Context, *eval.ToolEvent) {
				return h.OnToolReturn
			})
			break
		}
	}
	return merged
}

func fanOutNode(hooks []eval.LifecycleHooks, pick func(eval.LifecycleHooks) func(context.Context, *eval.NodeEvent)) func(context.Context, *eval.NodeEvent) {
	return func(ctx context.Context, e *eval.NodeEvent) {
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fn(ctx, e)
			}
		}
	}
}

func fanOutTool(hooks []eval.LifecycleHooks, pick func(eval.LifecycleHooks) func(context.Context, *eval.ToolEvent)) func(context.Context, *eval.ToolEvent) {
	return func(ctx context.Context, e *eval.ToolEvent) {
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fn(ctx, e)
			}
		}
	}
}
