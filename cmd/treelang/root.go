package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treelang/treelang/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "treelang",
	Short: "Treelang plans once and evaluates locally",
	Long: `Treelang turns natural-language questions into executable trees of
tool calls: one model call to plan, zero model calls to evaluate.
Programs travel as JSON wire trees that can be validated, visualized
and evaluated against a local or remote tool catalog.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (defaults to ./treelang.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig resolves the configuration for one invocation: defaults,
// then file, then TREELANG_* environment, then flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}
