package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/treelang/treelang/pkg/eval"
)

// StreamManager handles active SSE connections. Every subscriber
// receives every broadcast message; slow clients drop messages rather
// than stall evaluations.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
	}
}

// Subscribe registers a listener. The returned cancel func must be
// called when the listener goes away; it closes the channel.
func (sm *StreamManager) Subscribe() (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast delivers a message to every subscriber.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	slog.Debug("StreamManager: Broadcasting", "subscribers", len(sm.subscribers), "payload_size", len(msg))

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			slog.Warn("SSE: Client buffer full, dropping message")
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every evaluation event
// to the stream's subscribers as one JSON document per event. Attach
// them to the engine that backs the handler, merging with any other
// hook set the host carries.
func (sm *StreamManager) Hooks() eval.LifecycleHooks {
	node := func(_ context.Context, ev *eval.NodeEvent) {
		sm.broadcastEvent(ev)
	}
	tool := func(_ context.Context, ev *eval.ToolEvent) {
		sm.broadcastEvent(ev)
	}
	return eval.LifecycleHooks{
		OnNodeEnter:  node,
		OnNodeLeave:  node,
		OnToolCall:   tool,
		OnToolReturn: tool,
	}
}

func (sm *StreamManager) broadcastEvent(ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("SSE: Failed to encode event", "error", err)
		return
	}
	sm.Broadcast(string(data))
}
