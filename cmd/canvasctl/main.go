package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; all subcommands register themselves in init.
var rootCmd = &cobra.Command{
	Use:   "canvasctl",
	Short: "Render saved canvas designs into infrastructure code",
	Long: `canvasctl turns saved design graphs into Terraform or Pulumi projects
without a running engine or database.

A graph file is the JSON snapshot the engine API returns: an object with
"nodes" and "edges" arrays.

Examples:
  canvasctl catalog
  canvasctl generate design.json
  canvasctl generate design.json --target pulumi --language python --out ./out
  canvasctl export design.json --project web-app`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
