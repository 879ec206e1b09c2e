package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treelang/treelang/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a wire tree for consistency",
	Long: `Parses a JSON wire tree and reports structural problems: unreachable
nodes and unbound parameters. With --tools every function call is also
checked against the configured tool catalog.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		opts := cli.ValidateOptions{Path: "-", Out: os.Stdout}
		if len(args) > 0 {
			opts.Path = args[0]
		}
		opts.CheckTools, _ = cmd.Flags().GetBool("tools")

		if err := cli.Validate(context.Background(), cfg, opts); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("tools", false, "Also check calls against the tool catalog")
}
