package cli

import (
	"fmt"
	"io"

	"github.com/treelang/treelang/internal/presentation/graph"
	"github.com/treelang/treelang/pkg/tree"
)

// GraphOptions configures the Mermaid export.
type GraphOptions struct {
	Path string
	Out  io.Writer
}

// Graph parses the wire tree and writes a Mermaid diagram of it.
func Graph(opts GraphOptions) error {
	wire, err := readSource(opts.Path)
	if err != nil {
		return err
	}

	t, err := tree.ParseAny(wire)
	if err != nil {
		return fmt.Errorf("invalid tree: %w", err)
	}

	fmt.Fprint(opts.Out, graph.GenerateMermaid(t))
	return nil
}
