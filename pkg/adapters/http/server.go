// Package http exposes a treelang engine over a small REST surface:
// tool catalog, wire-tree validation, evaluation, ask, and a
// server-sent event stream of evaluation lifecycle events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/treelang/treelang"
	"github.com/treelang/treelang/pkg/eval"
	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/tree"
)

// maxBodySize caps request bodies. Wire trees are small; anything
// beyond this is either a mistake or an attack.
const maxBodySize = 1 << 20

// Engine defines the interface for the treelang engine core.
type Engine interface {
	Tools(ctx context.Context) ([]ports.ToolSpec, error)
	Eval(ctx context.Context, wire []byte) (any, error)
	Ask(ctx context.Context, query string) (*treelang.Answer, error)
	Explain(ctx context.Context, wire []byte) (string, error)
}

// Ensure the facade satisfies the handler's view of it.
var _ Engine = (*treelang.Engine)(nil)

// Server holds the handler state.
type Server struct {
	Engine  Engine
	Streams *StreamManager
}

// HandlerOption configures NewHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	streams *StreamManager
	metrics http.Handler
}

// WithStreams attaches an existing stream manager instead of a fresh
// one, so the host can feed it evaluation events via Hooks.
func WithStreams(sm *StreamManager) HandlerOption {
	return func(c *handlerConfig) {
		c.streams = sm
	}
}

// WithMetrics mounts a metrics handler (typically promhttp) at
// /metrics.
func WithMetrics(h http.Handler) HandlerOption {
	return func(c *handlerConfig) {
		c.metrics = h
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...HandlerOption) http.Handler {
	cfg := handlerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.streams == nil {
		cfg.streams = NewStreamManager()
	}

	server := &Server{
		Engine:  engine,
		Streams: cfg.streams,
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tools", server.GetTools)
		r.Post("/validate", server.Validate)
		r.Post("/eval", server.Eval)
		r.Post("/ask", server.Ask)
		r.Get("/events", server.SubscribeEvents)
	})
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "treelang-http",
		"version": treelang.Version,
	})
}

// GetTools handles the GET /v1/tools request.
func (s *Server) GetTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.Engine.Tools(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		slog.Error("Tools failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Nodes int    `json:"nodes,omitempty"`
	Error string `json:"error,omitempty"`
	Node  string `json:"node,omitempty"`
}

// Validate handles the POST /v1/validate request. The body is a wire
// tree in either format; the response always carries status 200, with
// the verdict in the payload.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	wire, err := readBody(w, r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Validate: Invalid request body", "error", err)
		return
	}

	t, err := tree.ParseAny(wire)
	if err != nil {
		writeJSON(w, http.StatusOK, validateResponse{
			Valid: false,
			Error: err.Error(),
			Node:  nodeKey(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Nodes: t.Len()})
}

type evalResponse struct {
	Result any `json:"result"`
}

// Eval handles the POST /v1/eval request. The body is a wire tree; the
// response carries the evaluated result. Malformed trees map to 400,
// evaluation failures to 500.
func (s *Server) Eval(w http.ResponseWriter, r *http.Request) {
	wire, err := readBody(w, r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Eval: Invalid request body", "error", err)
		return
	}

	result, err := s.Engine.Eval(r.Context(), wire)
	if err != nil {
		var parseErr *tree.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		slog.Error("Eval failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, evalResponse{Result: result})
}

type askRequest struct {
	Query   string `json:"query"`
	Explain bool   `json:"explain,omitempty"`
}

type askResponse struct {
	Query       string          `json:"query"`
	Wire        json.RawMessage `json:"wire"`
	Result      any             `json:"result"`
	Explanation string          `json:"explanation,omitempty"`
}

// Ask handles the POST /v1/ask request: plan the query into a tree,
// evaluate it, and optionally explain it. Without a planner the
// endpoint answers 501.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Ask: Invalid request body", "error", err)
		return
	}
	var req askRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Ask: Invalid request body", "error", err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	answer, err := s.Engine.Ask(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, treelang.ErrNoPlanner):
			writeError(w, http.StatusNotImplemented, err)
		case errors.Is(err, treelang.ErrInputTooLarge), errors.Is(err, treelang.ErrInvalidUTF8):
			writeError(w, http.StatusBadRequest, err)
			slog.Warn("Ask: Query rejected", "error", err, "size", len(req.Query))
		default:
			writeError(w, http.StatusInternalServerError, err)
			slog.Error("Ask failed", "error", err)
		}
		return
	}

	resp := askResponse{
		Query:  answer.Query,
		Wire:   answer.Wire,
		Result: answer.Result,
	}
	if req.Explain {
		explanation, err := s.Engine.Explain(r.Context(), answer.Wire)
		if err != nil {
			// The answer stands on its own; a failed explanation is
			// not worth a 5xx.
			slog.Warn("Ask: Explain failed", "error", err)
		} else {
			resp.Explanation = explanation
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubscribeEvents handles the GET /v1/events request (SSE). Clients
// receive evaluation lifecycle events as JSON lines; the optional
// "types" query parameter keeps only the named event types
// (comma-separated, e.g. "tool_call,tool_return").
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	filter := parseTypeFilter(r.URL.Query().Get("types"))

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Apply filtering if provided. We deserialize to check the
			// type field, which has a cost; acceptable at event volume.
			if filter != nil {
				var envelope struct {
					Type eval.EventType `json:"type"`
				}
				if err := json.Unmarshal([]byte(msg), &envelope); err == nil {
					if !filter[envelope.Type] {
						continue
					}
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func init() {
	// Configure default slog to output JSON to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
}

// -- Helpers --

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Node  string `json:"node,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Node: nodeKey(err)})
}

// nodeKey extracts the offending node identity from the typed parse
// and evaluation errors, so API clients can point at the node without
// scraping the message.
func nodeKey(err error) string {
	var parseErr *tree.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Key
	}
	var toolErr *eval.ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Key
	}
	var evalErr *eval.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Key
	}
	var unboundErr *eval.UnboundParameterError
	if errors.As(err, &unboundErr) {
		return unboundErr.Key
	}
	return ""
}

func parseTypeFilter(raw string) map[eval.EventType]bool {
	if raw == "" {
		return nil
	}
	filter := make(map[eval.EventType]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[eval.EventType(t)] = true
		}
	}
	return filter
}
