// Package planner generates wire trees from natural-language requests
// through an OpenAI-compatible chat completions endpoint, and renders
// trees back into prose. It implements ports.Planner.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/treelang/treelang/pkg/ports"
	"github.com/treelang/treelang/pkg/tree"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"

	// defaultRepairs is how many times an invalid plan is sent back
	// for correction before giving up.
	defaultRepairs = 2

	// historyLimit caps how many stored turns ground a new plan.
	historyLimit = 20
)

// Planner asks a chat model for program trees. Safe for concurrent
// use.
type Planner struct {
	model   string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
	repairs int

	memory  ports.Memory
	session string
}

// Option defines a functional option for configuring the Planner.
type Option func(*Planner)

// WithModel selects the chat model. Defaults to gpt-4o.
func WithModel(model string) Option {
	return func(p *Planner) {
		p.model = model
	}
}

// WithBaseURL points the planner at any OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(p *Planner) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Planner) {
		p.client = client
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithRepairs sets how many correction rounds an invalid plan gets.
func WithRepairs(n int) Option {
	return func(p *Planner) {
		p.repairs = n
	}
}

// WithMemory grounds plans in the session's stored conversation and
// records each successful turn. An empty session gets a fresh ID.
func WithMemory(mem ports.Memory, session string) Option {
	return func(p *Planner) {
		p.memory = mem
		if session == "" {
			session = ports.NewSessionID()
		}
		p.session = session
	}
}

// New creates a Planner authenticated with apiKey.
func New(apiKey string, opts ...Option) *Planner {
	p := &Planner{
		model:   defaultModel,
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		repairs: defaultRepairs,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return p
}

// Session returns the conversation session ID, if memory is configured.
func (p *Planner) Session() string {
	return p.session
}

// Plan implements ports.Planner. The model plans once; if the tree
// does not parse, the parse error goes back as a correction request,
// up to the configured number of repairs.
func (p *Planner) Plan(ctx context.Context, prompt string, tools []ports.ToolSpec) ([]byte, error) {
	messages := []chatMessage{{Role: ports.RoleSystem, Content: systemPrompt}}
	if p.memory != nil {
		history, err := p.memory.History(ctx, p.session, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("loading conversation history: %w", err)
		}
		for _, msg := range history {
			messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
		}
	}
	messages = append(messages, chatMessage{Role: ports.RoleUser, Content: prompt})

	decls := toolDecls(tools)
	var lastErr error
	for attempt := 0; attempt <= p.repairs; attempt++ {
		content, err := p.complete(ctx, messages, decls, true)
		if err != nil {
			return nil, err
		}

		wire := []byte(content)
		if _, err := tree.ParseAny(wire); err != nil {
			lastErr = err
			p.logger.Warn("plan did not parse", "attempt", attempt+1, "error", err)
			messages = append(messages,
				chatMessage{Role: ports.RoleAssistant, Content: content},
				chatMessage{Role: ports.RoleUser, Content: fmt.Sprintf(repairTemplate, err)},
			)
			continue
		}

		p.remember(ctx, prompt, content)
		return wire, nil
	}
	return nil, fmt.Errorf("no valid tree after %d attempts: %w", p.repairs+1, lastErr)
}

// Explain implements ports.Planner.
func (p *Planner) Explain(ctx context.Context, wire []byte) (string, error) {
	if _, err := tree.ParseAny(wire); err != nil {
		return "", err
	}
	messages := []chatMessage{
		{Role: ports.RoleSystem, Content: explainSystemPrompt},
		{Role: ports.RoleUser, Content: fmt.Sprintf(explainUserTemplate, wire)},
	}
	return p.complete(ctx, messages, nil, false)
}

// remember records a successful turn. Failures are logged, not fatal:
// the plan itself is already in hand.
func (p *Planner) remember(ctx context.Context, prompt, wire string) {
	if p.memory == nil {
		return
	}
	now := time.Now()
	turns := []ports.Message{
		{Role: ports.RoleUser, Content: prompt, CreatedAt: now},
		{Role: ports.RoleAssistant, Content: wire, CreatedAt: now},
	}
	for _, msg := range turns {
		if err := p.memory.Append(ctx, p.session, msg); err != nil {
			p.logger.Warn("failed to record conversation turn", "session", p.session, "error", err)
			return
		}
	}
}

// Chat completions wire types.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type toolDecl struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Tools          []toolDecl      `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func toolDecls(specs []ports.ToolSpec) []toolDecl {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]toolDecl, len(specs))
	for i, spec := range specs {
		params := spec.InputSchema
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		decls[i] = toolDecl{
			Type: "function",
			Function: toolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  params,
			},
		}
	}
	return decls
}

func (p *Planner) complete(ctx context.Context, messages []chatMessage, tools []toolDecl, jsonMode bool) (string, error) {
	payload := chatRequest{
		Model:    p.model,
		Messages: messages,
		Tools:    tools,
	}
	if jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	// Reasoning models set their own temperature.
	if p.model != "o1" {
		temp := 0.0
		payload.Temperature = &temp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completions returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
