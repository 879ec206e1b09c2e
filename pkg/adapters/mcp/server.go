package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/treelang/treelang/pkg/eval"
	"github.com/treelang/treelang/pkg/ports"
)

// catalogURI is the resource under which the server publishes its tool
// declarations.
const catalogURI = "treelang://tools"

// Server publishes tools over MCP. Tools come from any
// ports.ToolInvoker, from compiled trees, or both; the combined
// catalog is also exposed as a JSON resource.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger

	mu    sync.Mutex
	specs []ports.ToolSpec
}

// ServerOption defines a functional option for configuring the Server.
type ServerOption func(*Server)

// WithServerLogger sets a custom structured logger for the server.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server identified by name and version.
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	catalog := mcp.NewResource(catalogURI, "Tool catalog",
		mcp.WithResourceDescription("Declared tools with their parameter order"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcp.AddResource(catalog, s.readCatalog)
	return s
}

// AddInvoker registers every tool the invoker declares. MCP clients
// send named arguments; they are mapped back to the invoker's
// positional convention using the declared parameter order.
func (s *Server) AddInvoker(ctx context.Context, invoker ports.ToolInvoker) error {
	specs, err := invoker.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}
	for _, spec := range specs {
		spec := spec
		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, spec.InputSchema)
		s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := positionalArgs(spec.Params, req.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := invoker.Call(ctx, spec.Name, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult(out)
		})
		s.remember(spec)
		s.logger.Debug("tool published", "tool", spec.Name, "params", len(spec.Params))
	}
	return nil
}

// AddCompiled registers compiled trees as callable tools.
func (s *Server) AddCompiled(tools ...*eval.CompiledTool) {
	for _, ct := range tools {
		ct := ct
		spec := ct.Tool()
		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, spec.InputSchema)
		s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := ct.Call(ctx, req.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult(out)
		})
		s.remember(spec)
		s.logger.Debug("compiled tool published", "tool", spec.Name)
	}
}

func (s *Server) remember(spec ports.ToolSpec) {
	s.mu.Lock()
	s.specs = append(s.specs, spec)
	s.mu.Unlock()
}

// readCatalog serves the declarations collected so far.
func (s *Server) readCatalog(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type entry struct {
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		Params      []string `json:"params"`
	}
	s.mu.Lock()
	entries := make([]entry, len(s.specs))
	for i, spec := range s.specs {
		entries[i] = entry{Name: spec.Name, Description: spec.Description, Params: spec.Params}
	}
	s.mu.Unlock()

	b, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      catalogURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// ServeStdio blocks serving MCP over stdin/stdout until the stream
// closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving mcp over stdio")
	return server.ServeStdio(s.mcp)
}

// ServeSSE serves MCP over server-sent events on the given port until
// ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port string) error {
	baseURL := fmt.Sprintf("http://localhost:%s", port)
	sseServer := server.NewSSEServer(s.mcp, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: corsMiddleware(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving mcp over sse", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// positionalArgs maps named MCP arguments onto the positional
// convention. Arguments must fill the parameter list from the front;
// trailing parameters may be omitted.
func positionalArgs(params []string, named map[string]any) ([]any, error) {
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p] = true
	}
	for name := range named {
		if !declared[name] {
			return nil, fmt.Errorf("unexpected argument %q", name)
		}
	}

	args := make([]any, 0, len(named))
	for _, p := range params {
		v, ok := named[p]
		if !ok {
			break
		}
		args = append(args, v)
	}
	if len(args) != len(named) {
		return nil, fmt.Errorf("missing argument %q", params[len(args)])
	}
	return args, nil
}

// textResult marshals a tool result as a JSON text part so that any
// MCP client can decode it.
func textResult(out any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// corsMiddleware permits browser-based MCP clients to reach the SSE
// endpoints.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
