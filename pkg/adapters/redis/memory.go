// Package redis provides a Redis-backed conversation store for
// sessions shared across processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/treelang/treelang/pkg/ports"
)

// farFuture scores index entries for sessions without an expiry.
// 2100-01-01, far enough for now.
const farFuture = 4102444800

// Memory implements ports.Memory using Redis. Each session is a list
// of JSON-encoded messages; a sorted-set index tracks known sessions
// and is pruned lazily against their expiry.
type Memory struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Memory)

// WithTTL sets the expiration for session histories.
func WithTTL(ttl time.Duration) Option {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithPrefix sets the key prefix for session data.
func WithPrefix(prefix string) Option {
	return func(m *Memory) {
		m.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Memory {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Memory {
	m := &Memory{
		client: client,
		prefix: "treelang:memory:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) key(session string) string {
	return m.prefix + session
}

func (m *Memory) indexKey() string {
	return m.prefix + "index"
}

// Append pushes one message onto the session's list and refreshes the
// index entry in a single pipeline.
func (m *Memory) Append(ctx context.Context, session string, msg ports.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	score := float64(time.Now().Add(m.ttl).Unix())
	if m.ttl == 0 {
		score = farFuture
	}

	pipe := m.client.Pipeline()
	pipe.RPush(ctx, m.key(session), data)
	if m.ttl > 0 {
		pipe.Expire(ctx, m.key(session), m.ttl)
	}
	pipe.ZAdd(ctx, m.indexKey(), backend.Z{
		Score:  score,
		Member: session,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// History returns the session's messages oldest-first, capped at limit
// when limit > 0. A missing session yields an empty history.
func (m *Memory) History(ctx context.Context, session string, limit int) ([]ports.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	vals, err := m.client.LRange(ctx, m.key(session), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	msgs := make([]ports.Message, 0, len(vals))
	for _, val := range vals {
		var msg ports.Message
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Clear removes the session's history and its index entry.
func (m *Memory) Clear(ctx context.Context, session string) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.key(session))
	pipe.ZRem(ctx, m.indexKey(), session)
	_, err := pipe.Exec(ctx)
	return err
}

// Sessions returns the known session IDs. Entries past their expiry
// are pruned from the index first.
func (m *Memory) Sessions(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := m.client.ZRemRangeByScore(ctx, m.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := m.client.ZRange(ctx, m.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (m *Memory) Close() error {
	return m.client.Close()
}
