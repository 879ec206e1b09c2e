package treelang

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Runner handles an interactive ask loop over an Engine using provided
// IO. This allows for easy testing and integration with different
// frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Explain  bool
	Renderer ContentRenderer
}

// ContentRenderer is a function that transforms explanations before
// outputting them. This allows for TUI rendering (markdown to ANSI)
// without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Input and Output must be set by the
// caller (typically os.Stdin and os.Stdout).
func NewRunner() *Runner {
	return &Runner{}
}

// Run reads queries line by line, asks the engine, and prints each
// answer until EOF or an explicit exit.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	writer := r.Output

	if !r.Headless {
		fmt.Fprintln(writer, "--- treelang ask (exit or Ctrl-D to quit) ---")
	}

	for {
		if !r.Headless {
			fmt.Fprint(writer, "> ")
		}

		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Graceful exit on EOF
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		query := strings.TrimSpace(text)
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			if !r.Headless {
				fmt.Fprintln(writer, "Bye!")
			}
			return nil
		}

		answer, err := engine.Ask(ctx, query)
		if err != nil {
			// A failed query should not end the session.
			fmt.Fprintf(writer, "error: %v\n", err)
			continue
		}

		fmt.Fprintln(writer, formatResult(answer.Result))

		if r.Explain {
			r.explain(ctx, engine, writer, answer.Wire)
		}
	}
}

func (r *Runner) explain(ctx context.Context, engine *Engine, writer io.Writer, wire []byte) {
	text, err := engine.Explain(ctx, wire)
	if err != nil {
		fmt.Fprintf(writer, "explain error: %v\n", err)
		return
	}
	if r.Renderer != nil {
		if rendered, err := r.Renderer(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(writer, strings.TrimSpace(text))
}

// formatResult renders an answer value as compact JSON, falling back
// to Go formatting for values JSON cannot express.
func formatResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
