// Package mcp adapts the Model Context Protocol to the tool-invocation
// boundary. The Client consumes remote MCP servers as a
// ports.ToolInvoker; the Server publishes a local invoker or compiled
// tools to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/schema"
)

// toolInfo caches what a Call needs from the remote declaration: the
// positional parameter order and the raw schema for validation.
type toolInfo struct {
	params      []string
	inputSchema json.RawMessage
	description string
}

// Client consumes a remote MCP tool catalog through the
// ports.ToolInvoker boundary. Positional arguments map onto parameter
// names using the declaration order recovered from each tool's schema.
// Safe for concurrent use once connected.
type Client struct {
	mcp      *mcpclient.Client
	logger   *slog.Logger
	validate bool

	mu    sync.RWMutex
	tools map[string]toolInfo
	order []string
}

// ClientOption defines a functional option for configuring the Client.
type ClientOption func(*Client)

// WithClientLogger sets a custom structured logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithoutValidation disables local argument validation against the
// remote schemas. The server still enforces its own.
func WithoutValidation() ClientOption {
	return func(c *Client) {
		c.validate = false
	}
}

// NewStdio launches command as a child process and speaks MCP over its
// stdin/stdout. env entries are KEY=VALUE pairs appended to the child
// environment.
func NewStdio(ctx context.Context, command string, env []string, args []string, opts ...ClientOption) (*Client, error) {
	inner, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("spawning mcp server %q: %w", command, err)
	}
	return connect(ctx, inner, false, opts...)
}

// NewSSE connects to an MCP server over server-sent events.
func NewSSE(ctx context.Context, baseURL string, opts ...ClientOption) (*Client, error) {
	inner, err := mcpclient.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %q: %w", baseURL, err)
	}
	return connect(ctx, inner, true, opts...)
}

// NewStreamableHTTP connects to an MCP server over streamable HTTP.
func NewStreamableHTTP(ctx context.Context, baseURL string, opts ...ClientOption) (*Client, error) {
	inner, err := mcpclient.NewStreamableHttpClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %q: %w", baseURL, err)
	}
	return connect(ctx, inner, true, opts...)
}

func connect(ctx context.Context, inner *mcpclient.Client, needsStart bool, opts ...ClientOption) (*Client, error) {
	c := &Client{
		mcp:      inner,
		validate: true,
		tools:    make(map[string]toolInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if needsStart {
		if err := inner.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting mcp transport: %w", err)
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "treelang",
		Version: "1.0.0",
	}
	result, err := inner.Initialize(ctx, initReq)
	if err != nil {
		inner.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}
	c.logger.Debug("mcp session established",
		"server", result.ServerInfo.Name,
		"version", result.ServerInfo.Version)
	return c, nil
}

// Close tears down the session and, for stdio transports, the child
// process.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// ListTools implements ports.ToolInvoker. It refreshes the local
// declaration cache as a side effect.
func (c *Client) ListTools(ctx context.Context) ([]ports.ToolSpec, error) {
	res, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	specs := make([]ports.ToolSpec, 0, len(res.Tools))
	tools := make(map[string]toolInfo, len(res.Tools))
	order := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q schema: %w", t.Name, err)
		}
		info := toolInfo{
			params:      paramOrder(t.InputSchema),
			inputSchema: raw,
			description: t.Description,
		}
		tools[t.Name] = info
		order = append(order, t.Name)
		specs = append(specs, ports.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: raw,
			Params:      info.params,
		})
	}

	c.mu.Lock()
	c.tools = tools
	c.order = order
	c.mu.Unlock()
	return specs, nil
}

// Call implements ports.ToolInvoker. Positional arguments are matched
// to parameter names, validated against the remote schema, and sent
// as named MCP arguments.
func (c *Client) Call(ctx context.Context, name string, args []any) (any, error) {
	info, err := c.tool(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(args) > len(info.params) {
		return nil, fmt.Errorf("tool %q takes %d argument(s), got %d", name, len(info.params), len(args))
	}

	named := make(map[string]any, len(args))
	for i, arg := range args {
		named[info.params[i]] = arg
	}
	if c.validate {
		if err := schema.ValidateDocument(info.inputSchema, named); err != nil {
			return nil, fmt.Errorf("tool %q: %w", name, err)
		}
	}

	c.logger.Debug("calling remote tool", "tool", name, "args", len(named))
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = named
	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("calling tool %q: %w", name, err)
	}
	return DecodeResult(name, res)
}

// tool returns the cached declaration, fetching the catalog on first
// use.
func (c *Client) tool(ctx context.Context, name string) (toolInfo, error) {
	c.mu.RLock()
	info, ok := c.tools[name]
	populated := len(c.order) > 0
	c.mu.RUnlock()
	if ok {
		return info, nil
	}
	if populated {
		return toolInfo{}, fmt.Errorf("unknown tool %q", name)
	}

	if _, err := c.ListTools(ctx); err != nil {
		return toolInfo{}, err
	}
	c.mu.RLock()
	info, ok = c.tools[name]
	c.mu.RUnlock()
	if !ok {
		return toolInfo{}, fmt.Errorf("unknown tool %q", name)
	}
	return info, nil
}

// paramOrder recovers the positional convention from a decoded tool
// schema. JSON decoding loses property order, but the required array
// survives as declared, which by MCP server convention follows the
// declaration order; optional properties follow, sorted for
// determinism.
func paramOrder(s mcp.ToolInputSchema) []string {
	params := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		params = append(params, name)
	}

	var optional []string
	for name := range s.Properties {
		if !seen[name] {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	return append(params, optional...)
}
