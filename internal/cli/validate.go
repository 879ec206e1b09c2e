package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/treelang/treelang/internal/config"
	"github.com/treelang/treelang/internal/validator"
	"github.com/treelang/treelang/pkg/tree"
)

// ValidateOptions configures a validation run.
type ValidateOptions struct {
	Path       string
	CheckTools bool // cross-check calls against the configured catalog
	Out        io.Writer
}

// Validate parses the wire tree and lints it. With CheckTools it also
// verifies every call against the configured tool catalog. A non-nil
// error means the program should not ship.
func Validate(ctx context.Context, cfg config.Config, opts ValidateOptions) error {
	wire, err := readSource(opts.Path)
	if err != nil {
		return err
	}

	t, err := tree.ParseAny(wire)
	if err != nil {
		return fmt.Errorf("invalid tree: %w", err)
	}

	problems := validator.Lint(t)
	if opts.CheckTools {
		logger := createLogger(cfg.Debug)
		invoker, cleanup, err := BuildInvoker(ctx, cfg.Tools, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		toolProblems, err := validator.CheckTools(ctx, t, invoker)
		if err != nil {
			return err
		}
		problems = append(problems, toolProblems...)
	}

	if err := validator.Summarize(problems); err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "Tree is valid (%d nodes). ✅\n", t.Len())
	return nil
}
