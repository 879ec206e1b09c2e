package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DecodeResult turns a tool call result into a Go value. Each text
// part is decoded as JSON; text that does not parse passes through as
// an opaque string rather than failing the call. Multiple parts decode
// to a slice. Results flagged as errors become Go errors carrying the
// server's message.
func DecodeResult(name string, res *mcp.CallToolResult) (any, error) {
	texts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			texts = append(texts, tc.Text)
		}
	}

	if res.IsError {
		msg := strings.Join(texts, "; ")
		if msg == "" {
			msg = "tool failed without a message"
		}
		return nil, fmt.Errorf("tool %q: %s", name, msg)
	}

	switch len(texts) {
	case 0:
		return nil, nil
	case 1:
		return decodeText(texts[0]), nil
	default:
		// Try the parts as one JSON array first so that servers
		// streaming array elements as separate texts round-trip.
		joined := "[" + strings.Join(texts, ",") + "]"
		var arr []any
		if err := json.Unmarshal([]byte(joined), &arr); err == nil {
			return arr, nil
		}
		out := make([]any, len(texts))
		for i, t := range texts {
			out[i] = decodeText(t)
		}
		return out, nil
	}
}

// decodeText parses a single text part, passing non-JSON through
// verbatim.
func decodeText(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	return v
}
