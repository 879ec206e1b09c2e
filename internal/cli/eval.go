package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/treelang/treelang/internal/config"
	"github.com/treelang/treelang/pkg/tree"
)

// EvalOptions configures a one-shot or watched evaluation.
type EvalOptions struct {
	Path string // wire source; "" or "-" reads stdin
	Repr bool   // print the order-decorated repr instead of evaluating
	Out  io.Writer
}

// Eval reads a wire tree, evaluates it against the configured tool
// catalog and prints the result.
func Eval(ctx context.Context, cfg config.Config, opts EvalOptions) error {
	wire, err := readSource(opts.Path)
	if err != nil {
		return err
	}

	if opts.Repr {
		t, err := tree.ParseAny(wire)
		if err != nil {
			return fmt.Errorf("invalid tree: %w", err)
		}
		fmt.Fprintln(opts.Out, tree.Repr(t))
		return nil
	}

	logger := createLogger(cfg.Debug)
	engine, cleanup, err := BuildEngine(ctx, cfg, logger, EngineOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := engine.Eval(ctx, wire)
	if err != nil {
		return err
	}
	fmt.Fprintln(opts.Out, formatValue(result))
	return nil
}
