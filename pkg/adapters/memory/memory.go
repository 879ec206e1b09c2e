// Package memory provides an in-process conversation store. It backs
// short-lived sessions and tests; nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/treelang/treelang/pkg/ports"
)

// Memory implements ports.Memory in process memory.
// Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]ports.Message
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{
		data: make(map[string][]ports.Message),
	}
}

// Append adds one message to the session's history.
func (m *Memory) Append(ctx context.Context, session string, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[session] = append(m.data[session], msg)
	return nil
}

// History returns the session's messages oldest-first, capped at limit
// when limit > 0.
func (m *Memory) History(ctx context.Context, session string, limit int) ([]ports.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.data[session]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	// Copy on read so the caller cannot mutate stored history.
	return slices.Clone(msgs), nil
}

// Clear removes the session's history.
func (m *Memory) Clear(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, session)
	return nil
}

// Sessions returns the known session IDs, sorted.
func (m *Memory) Sessions(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]string, 0, len(m.data))
	for id := range m.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
