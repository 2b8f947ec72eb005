/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package lint provides the lint command for permute.
package lint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	buildlib "bennypowers.dev/permute/build"
	"bennypowers.dev/permute/cmd/project"
	"bennypowers.dev/permute/fs"
	lintlib "bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/lint/rules"
	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/schema"
)

// Cmd is the lint cobra command.
var Cmd = &cobra.Command{
	Use:   "lint",
	Short: "Lint the resolved tokens of every permutation",
	Long: `Resolve each permutation and run the configured lint rules over it.
Without lint configuration the tokens/recommended preset is used.

Examples:
  permute lint
  permute lint --preset tokens/strict -i theme=dark`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringSlice("preset", nil, "Lint presets to extend, e.g. tokens/strict")
	Cmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}

// report is the JSON form of one permutation's lint result.
type report struct {
	Permutation string          `json:"permutation"`
	Issues      []lintlib.Issue `json:"issues"`
	Problems    []*schema.Error `json:"problems,omitempty"`
}

func run(cmd *cobra.Command, args []string) error {
	presets, _ := cmd.Flags().GetStringSlice("preset")
	format, _ := cmd.Flags().GetString("format")

	filesystem := fs.NewOSFileSystem()
	cfg, root, err := project.Load(filesystem)
	if err != nil {
		return err
	}
	enabled, failOnError := true, false
	cfg.Lint.Enabled = &enabled
	cfg.Lint.FailOnError = &failOnError
	if len(presets) > 0 {
		cfg.Lint.Extends = presets
	} else if len(cfg.Lint.Extends) == 0 && len(cfg.Lint.Rules) == 0 {
		cfg.Lint.Extends = []string{rules.PluginName + "/recommended"}
	}
	// Lint checks the whole table; output selection does not apply.
	cfg.Outputs = nil
	cfg.Filters = nil
	cfg.Transforms = nil

	b, err := buildlib.FromConfig(cmd.Context(), cfg, project.Env(filesystem, root))
	if err != nil {
		return err
	}
	perms := b.Permutations
	if perms == nil {
		perms = b.Runner.Engine().GeneratePermutations()
	}
	results, err := b.Runner.RunAll(cmd.Context(), perms)
	if err != nil {
		return err
	}

	reports := make([]report, 0, len(results))
	errorCount := 0
	for _, p := range results {
		reports = append(reports, toReport(p))
		if p.Lint != nil {
			errorCount += p.Lint.ErrorCount
		}
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	default:
		printReports(out, reports)
	}

	if errorCount > 0 {
		return schema.NewError(schema.ErrLint, "%d lint error(s)", errorCount)
	}
	return nil
}

func toReport(p *pipeline.Permutation) report {
	r := report{Permutation: p.Key, Issues: []lintlib.Issue{}, Problems: p.Issues}
	if p.Lint != nil && len(p.Lint.Issues) > 0 {
		r.Issues = p.Lint.Issues
	}
	return r
}

func printReports(w io.Writer, reports []report) {
	clean := true
	for _, r := range reports {
		if len(r.Issues) == 0 && len(r.Problems) == 0 {
			continue
		}
		clean = false
		fmt.Fprintf(w, "%s\n", r.Permutation)
		for _, issue := range r.Issues {
			name := issue.TokenName
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(w, "  %-7s %-40s %s  %s\n", issue.Severity, name, issue.Message, issue.RuleID)
		}
		for _, problem := range r.Problems {
			fmt.Fprintf(w, "  %-7s %v\n", problem.Severity, problem)
		}
	}
	if clean {
		fmt.Fprintln(w, "No problems found.")
	}
}
