/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package build provides the build command for permute.
package build

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	buildlib "bennypowers.dev/permute/build"
	"bennypowers.dev/permute/cmd/project"
	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/schema"
)

// Cmd is the build cobra command.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve every permutation and render the configured outputs",
	Long: `Resolve the permutations of a resolver document, lint them, and render each
configured output. Outputs are independent: one failing output does not stop
the others, but the command exits non-zero.

Examples:
  # Build using .config/permute.yaml
  permute build

  # Build one permutation
  permute build -i theme=dark -i density=compact

  # Show what would be written
  permute build --dry-run --format json`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().Bool("dry-run", false, "Render without writing files")
	Cmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}

func run(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	format, _ := cmd.Flags().GetString("format")

	filesystem := fs.NewOSFileSystem()
	cfg, root, err := project.Load(filesystem)
	if err != nil {
		return err
	}
	if len(cfg.Outputs) == 0 {
		return schema.NewError(schema.ErrConfiguration, "no outputs configured")
	}

	b, err := buildlib.FromConfig(cmd.Context(), cfg, project.Env(filesystem, root))
	if err != nil {
		return err
	}
	b.DryRun = dryRun

	result := b.Build(cmd.Context())
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	default:
		printResult(cmd.OutOrStdout(), result, b.BuildPath, dryRun)
	}

	if !result.Success {
		return fmt.Errorf("build failed with %d error(s)", len(result.Errors))
	}
	return nil
}

func printResult(w io.Writer, result *buildlib.Result, buildPath string, dryRun bool) {
	verb := "wrote"
	if dryRun {
		verb = "would write"
	}
	for _, out := range result.Outputs {
		fmt.Fprintf(w, "%s:\n", out.Name)
		for _, f := range out.Files {
			fmt.Fprintf(w, "  %s %s (%d bytes)\n", verb, filepath.Join(buildPath, f.Path), len(f.Content))
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "error: %v\n", e)
	}
	fmt.Fprintf(w, "%d permutation(s), %d output(s), %d error(s)\n",
		len(result.Permutations), len(result.Outputs), len(result.Errors))
}
