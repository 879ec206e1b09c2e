// Package file provides a filesystem-backed conversation store. Each
// session is one JSON file, replaced atomically on every append, so
// histories survive restarts without a database.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/treelang/treelang/pkg/ports"
)

// Memory implements ports.Memory on the local filesystem.
type Memory struct {
	BasePath string

	// Appends read, extend, and rewrite the session file; serialize
	// them within this process.
	mu sync.Mutex
}

// New creates a store rooted at basePath. If basePath is empty, it
// defaults to ".treelang/memory".
func New(basePath string) *Memory {
	if basePath == "" {
		basePath = filepath.Join(".treelang", "memory")
	}
	return &Memory{BasePath: basePath}
}

func (m *Memory) path(session string) (string, error) {
	if session == "" {
		return "", fmt.Errorf("session id cannot be empty")
	}
	if session == "." || session == ".." || strings.ContainsAny(session, `/\`) {
		return "", fmt.Errorf("invalid session id %q", session)
	}
	return filepath.Join(m.BasePath, session+".json"), nil
}

// Append adds one message to the session file.
func (m *Memory) Append(ctx context.Context, session string, msg ports.Message) error {
	path, err := m.path(session)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msgs, err := m.read(path)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	return m.write(path, session, msgs)
}

// History returns the session's messages oldest-first, capped at limit
// when limit > 0. A missing session yields an empty history.
func (m *Memory) History(ctx context.Context, session string, limit int) ([]ports.Message, error) {
	path, err := m.path(session)
	if err != nil {
		return nil, err
	}

	msgs, err := m.read(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Clear removes the session file.
func (m *Memory) Clear(ctx context.Context, session string) error {
	path, err := m.path(session)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Sessions returns the stored session IDs, sorted.
func (m *Memory) Sessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list session directory: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (m *Memory) read(path string) ([]ports.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var msgs []ports.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return msgs, nil
}

// write replaces the session file atomically: temp file in the same
// directory, fsync, then rename.
func (m *Memory) write(path, session string, msgs []ports.Message) error {
	if err := os.MkdirAll(m.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpFile, err := os.CreateTemp(m.BasePath, "tmp-"+session+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename replaces the destination on POSIX; on Windows it
	// fails if it exists, so clear it first.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to replace session file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
