package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/treelang/treelang"
	"github.com/treelang/treelang/internal/config"
	"github.com/treelang/treelang/pkg/adapters/file"
	"github.com/treelang/treelang/pkg/adapters/mcp"
	"github.com/treelang/treelang/pkg/adapters/memory"
	"github.com/treelang/treelang/pkg/adapters/redis"
	"github.com/treelang/treelang/pkg/eval"
	"github.com/treelang/treelang/pkg/observability"
	"github.com/treelang/treelang/pkg/persistence/middleware"
	"github.com/treelang/treelang/pkg/planner"
	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/registry"
)

// EngineOptions carries per-command wiring on top of the configuration.
type EngineOptions struct {
	// Session names the conversation for ask; empty gets a fresh ID.
	Session string
	// Hooks are merged into the engine's lifecycle hooks, on top of
	// the debug hooks when debug logging is on.
	Hooks []eval.LifecycleHooks
}

// BuildInvoker constructs the tool catalog the configuration names:
// the built-in calculator registry, or a client for a remote MCP
// server. The returned cleanup releases any child process or
// connection and is safe to call even when there is nothing to release.
func BuildInvoker(ctx context.Context, cfg config.Tools, logger *slog.Logger) (ports.ToolInvoker, func(), error) {
	if cfg.Source != "mcp" {
		return registry.Calculator(), func() {}, nil
	}

	var (
		client *mcp.Client
		err    error
	)
	switch cfg.Transport {
	case "sse":
		client, err = mcp.NewSSE(ctx, cfg.URL, mcp.WithClientLogger(logger))
	case "http":
		client, err = mcp.NewStreamableHTTP(ctx, cfg.URL, mcp.WithClientLogger(logger))
	default:
		client, err = mcp.NewStdio(ctx, cfg.Command, cfg.Env, cfg.Args, mcp.WithClientLogger(logger))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting tool catalog: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// BuildMemory returns the conversation store the configuration names,
// wrapped in the configured persistence middleware. Redaction sits
// outermost so patterns match plaintext, not ciphertext.
func BuildMemory(cfg config.Memory) (ports.Memory, func(), error) {
	var (
		mem     ports.Memory
		cleanup = func() {}
	)
	switch cfg.Backend {
	case "redis":
		var opts []redis.Option
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		m := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		mem, cleanup = m, func() { _ = m.Close() }
	case "file":
		mem = file.New(cfg.Path)
	default:
		mem = memory.New()
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if key != nil {
		mem = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(mem)
	}
	if len(cfg.Redact) > 0 {
		mem = middleware.NewPIIMiddleware(cfg.Redact)(mem)
	}
	return mem, cleanup, nil
}

// BuildEngine assembles the facade from the configuration: tool
// catalog, optional planner grounded in session memory, logger and
// evaluator tuning. The cleanup tears down everything the engine
// borrowed, in reverse order.
func BuildEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, opts EngineOptions) (*treelang.Engine, func(), error) {
	invoker, cleanupInvoker, err := BuildInvoker(ctx, cfg.Tools, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(){cleanupInvoker}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	engineOpts := []treelang.Option{treelang.WithLogger(logger)}

	switch {
	case cfg.Eval.Sequential:
		engineOpts = append(engineOpts, treelang.WithMaxConcurrent(1))
	case cfg.Eval.MaxConcurrent > 0:
		engineOpts = append(engineOpts, treelang.WithMaxConcurrent(cfg.Eval.MaxConcurrent))
	}

	if cfg.Planner.Configured() {
		mem, cleanupMemory, err := BuildMemory(cfg.Memory)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, cleanupMemory)

		plannerOpts := []planner.Option{
			planner.WithLogger(logger),
			planner.WithMemory(mem, opts.Session),
		}
		if cfg.Planner.Model != "" {
			plannerOpts = append(plannerOpts, planner.WithModel(cfg.Planner.Model))
		}
		if cfg.Planner.BaseURL != "" {
			plannerOpts = append(plannerOpts, planner.WithBaseURL(cfg.Planner.BaseURL))
		}
		if cfg.Planner.Repairs > 0 {
			plannerOpts = append(plannerOpts, planner.WithRepairs(cfg.Planner.Repairs))
		}
		engineOpts = append(engineOpts, treelang.WithPlanner(planner.New(cfg.Planner.Key(), plannerOpts...)))
	}

	hooks := opts.Hooks
	if cfg.Debug {
		hooks = append(hooks, debugHooks(logger))
	}
	if len(hooks) > 0 {
		engineOpts = append(engineOpts, treelang.WithLifecycleHooks(observability.Merge(hooks...)))
	}

	engine, err := treelang.New(invoker, engineOpts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initializing engine: %w", err)
	}
	return engine, cleanup, nil
}
