package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treelang/treelang/internal/cli"
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate a wire tree",
	Long: `Reads a JSON wire tree from a file (or stdin with "-") and evaluates
it against the configured tool catalog. With --watch the file is
re-evaluated on every save.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		opts := cli.EvalOptions{Path: "-", Out: os.Stdout}
		if len(args) > 0 {
			opts.Path = args[0]
		}
		opts.Repr, _ = cmd.Flags().GetBool("repr")
		watchMode, _ := cmd.Flags().GetBool("watch")

		if watchMode {
			sig := cli.NewSignalContext(context.Background())
			defer sig.Cancel()
			if err := cli.Watch(sig, cfg, opts); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := cli.Eval(context.Background(), cfg, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().BoolP("watch", "w", false, "Re-evaluate when the file changes")
	evalCmd.Flags().Bool("repr", false, "Print the parsed tree instead of evaluating it")
}
