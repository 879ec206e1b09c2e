package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/treelang/treelang/internal/cli"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Plan a question into a tree and evaluate it",
	Long: `Sends the question to the configured planner, which produces a wire
tree over the tool catalog; the tree is then evaluated locally with no
further model calls. Without a question an interactive loop starts.

Requires a planner: set an API key (default env OPENAI_API_KEY) or a
base_url in the planner section of treelang.yaml.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		opts := cli.AskOptions{
			Question: strings.Join(args, " "),
			In:       os.Stdin,
			Out:      os.Stdout,
		}
		opts.Session, _ = cmd.Flags().GetString("session")
		opts.Explain, _ = cmd.Flags().GetBool("explain")

		if err := cli.Ask(context.Background(), cfg, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringP("session", "s", "", "Conversation ID for memory-grounded planning")
	askCmd.Flags().Bool("explain", false, "Also print a prose description of the plan")
}
