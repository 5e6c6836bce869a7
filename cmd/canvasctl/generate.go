package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	generateTarget   string
	generateLanguage string
	generateOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate <graph.json>",
	Short: "Render a design graph into an IaC project on disk",
	Long: `Render a saved design graph into a Terraform or Pulumi project.

Files land under --out with the same layout the engine's export
endpoint archives, so the directory is ready for terraform init or
pulumi up.

Examples:
  canvasctl generate design.json
  canvasctl generate design.json --target pulumi --language python
  canvasctl generate design.json --out ./infra`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateTarget, "target", "t", "terraform", "Generation target: terraform or pulumi")
	generateCmd.Flags().StringVarP(&generateLanguage, "language", "l", "typescript", "Pulumi language: typescript or python")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Output directory (default: graph file name without extension)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	project := projectNameFor("", args[0])
	files, err := renderProject(args[0], generateTarget, generateLanguage, project)
	if err != nil {
		return err
	}

	outDir := generateOut
	if outDir == "" {
		outDir = project
	}
	for _, f := range files {
		path := filepath.Join(outDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, f.Content, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	fmt.Printf("Wrote %d files to %s\n", len(files), outDir)
	for _, p := range files.Paths() {
		fmt.Println("  " + p)
	}
	return nil
}
