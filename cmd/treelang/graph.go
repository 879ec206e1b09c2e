package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treelang/treelang/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export the tree visualization",
	Long:  `Parses a JSON wire tree and outputs a Mermaid diagram (graph TD) representing its call structure.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.GraphOptions{Path: "-", Out: os.Stdout}
		if len(args) > 0 {
			opts.Path = args[0]
		}

		if err := cli.Graph(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
