package mcp

import (
	"reflect"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestDecodeResultSingleText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want any
	}{
		{"number", "93.0", 93.0},
		{"integer", "7", 7.0},
		{"bool", "true", true},
		{"string", `"hello"`, "hello"},
		{"array", "[1,4,9]", []any{1.0, 4.0, 9.0}},
		{"object", `{"count":2}`, map[string]any{"count": 2.0}},
		{"null", "null", nil},
		{"opaque text passes through", "three wins, two losses", "three wins, two losses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResult("stats", mcp.NewToolResultText(tt.text))
			if err != nil {
				t.Fatalf("DecodeResult() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeResult() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeResultEmpty(t *testing.T) {
	got, err := DecodeResult("noop", &mcp.CallToolResult{})
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}
	if got != nil {
		t.Errorf("DecodeResult() = %#v, want nil", got)
	}
}

func TestDecodeResultMultipleTexts(t *testing.T) {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "1"},
			mcp.TextContent{Type: "text", Text: "4"},
			mcp.TextContent{Type: "text", Text: "9"},
		},
	}
	got, err := DecodeResult("squares", res)
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}
	want := []any{1.0, 4.0, 9.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeResult() = %#v, want %#v", got, want)
	}
}

func TestDecodeResultMultipleMixedTexts(t *testing.T) {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: `{"ok":true}`},
			mcp.TextContent{Type: "text", Text: "plain words"},
		},
	}
	got, err := DecodeResult("mixed", res)
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}
	want := []any{map[string]any{"ok": true}, "plain words"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeResult() = %#v, want %#v", got, want)
	}
}

func TestDecodeResultError(t *testing.T) {
	_, err := DecodeResult("divide", mcp.NewToolResultError("cannot divide by zero"))
	if err == nil {
		t.Fatal("DecodeResult() expected error")
	}
	if !strings.Contains(err.Error(), `tool "divide"`) || !strings.Contains(err.Error(), "cannot divide by zero") {
		t.Errorf("error = %q, want tool name and server message", err)
	}
}

func TestDecodeResultErrorWithoutMessage(t *testing.T) {
	_, err := DecodeResult("divide", &mcp.CallToolResult{IsError: true})
	if err == nil {
		t.Fatal("DecodeResult() expected error")
	}
}

func TestParamOrder(t *testing.T) {
	s := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"a":     map[string]any{"type": "number"},
			"b":     map[string]any{"type": "number"},
			"limit": map[string]any{"type": "integer"},
			"game":  map[string]any{"type": "string"},
		},
		Required: []string{"b", "a"},
	}
	got := paramOrder(s)
	want := []string{"b", "a", "game", "limit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paramOrder() = %v, want %v", got, want)
	}
}

func TestParamOrderSkipsUnknownRequired(t *testing.T) {
	s := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{"x": map[string]any{"type": "number"}},
		Required:   []string{"ghost", "x", "x"},
	}
	got := paramOrder(s)
	want := []string{"x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paramOrder() = %v, want %v", got, want)
	}
}

func TestPositionalArgs(t *testing.T) {
	params := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		named   map[string]any
		want    []any
		wantErr string
	}{
		{
			name:  "all provided",
			named: map[string]any{"a": 1.0, "b": 2.0, "c": 3.0},
			want:  []any{1.0, 2.0, 3.0},
		},
		{
			name:  "trailing omitted",
			named: map[string]any{"a": 1.0, "b": 2.0},
			want:  []any{1.0, 2.0},
		},
		{
			name:  "none provided",
			named: map[string]any{},
			want:  []any{},
		},
		{
			name:    "gap in the middle",
			named:   map[string]any{"a": 1.0, "c": 3.0},
			wantErr: `missing argument "b"`,
		},
		{
			name:    "undeclared argument",
			named:   map[string]any{"a": 1.0, "z": 9.0},
			wantErr: `unexpected argument "z"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := positionalArgs(params, tt.named)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("positionalArgs() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("positionalArgs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("positionalArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
