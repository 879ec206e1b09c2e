package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/treelang/treelang"
	"github.com/treelang/treelang/internal/config"
	"github.com/treelang/treelang/internal/presentation/tui"
)

// AskOptions configures the natural-language surface.
type AskOptions struct {
	Question string // one-shot; empty starts the interactive loop
	Session  string // conversation ID for memory-grounded planning
	Explain  bool   // also print a prose description of the plan
	In       io.Reader
	Out      io.Writer
}

// Ask plans the question into a program, evaluates it and prints the
// answer. Without a question it runs the interactive loop.
func Ask(ctx context.Context, cfg config.Config, opts AskOptions) error {
	logger := createLogger(cfg.Debug)
	engine, cleanup, err := BuildEngine(ctx, cfg, logger, EngineOptions{Session: opts.Session})
	if err != nil {
		return err
	}
	defer cleanup()

	interactive := tui.Interactive(opts.Out)

	if opts.Question != "" {
		return askOnce(ctx, engine, opts, interactive)
	}

	r := treelang.NewRunner()
	r.Input = opts.In
	r.Output = opts.Out
	r.Explain = opts.Explain
	r.Headless = !interactive
	if interactive {
		tui.PrintBanner(treelang.Version)
		r.Renderer = tui.NewRenderer()
	}
	return handleExecutionError(r.Run(ctx, engine))
}

func askOnce(ctx context.Context, engine *treelang.Engine, opts AskOptions, interactive bool) error {
	answer, err := engine.Ask(ctx, opts.Question)
	if err != nil {
		return err
	}
	fmt.Fprintln(opts.Out, formatValue(answer.Result))

	if !opts.Explain {
		return nil
	}
	explanation, err := engine.Explain(ctx, answer.Wire)
	if err != nil {
		return fmt.Errorf("explaining plan: %w", err)
	}
	if interactive {
		if rendered, rerr := tui.NewRenderer()(explanation); rerr == nil {
			explanation = rendered
		}
	}
	fmt.Fprintln(opts.Out, explanation)
	return nil
}
