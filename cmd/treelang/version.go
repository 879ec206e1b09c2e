package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/treelang/treelang"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of treelang",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("treelang version %s\n", strings.TrimSpace(treelang.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
