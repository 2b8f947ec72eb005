/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package permutations provides the permutations command for permute.
package permutations

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bennypowers.dev/permute/cmd/project"
	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/load"
	"bennypowers.dev/permute/resolution"
)

// Cmd is the permutations cobra command.
var Cmd = &cobra.Command{
	Use:   "permutations",
	Short: "List every permutation of the resolver's modifiers",
	Long: `List the permutation keys and modifier inputs a build would produce, in
modifier declaration order. The base permutation selects every modifier's default.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}

// Entry describes one permutation.
type Entry struct {
	Key    string            `json:"key"`
	Inputs resolution.Inputs `json:"inputs"`
	Base   bool              `json:"base,omitempty"`
}

func run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	filesystem := fs.NewOSFileSystem()
	cfg, root, err := project.Load(filesystem)
	if err != nil {
		return err
	}
	env := project.Env(filesystem, root)
	engine, err := load.Engine(cmd.Context(), cfg.Resolver, load.Options{
		Root:    root,
		FS:      filesystem,
		Fetcher: env.Fetcher,
		Strict:  cfg.Strict,
	})
	if err != nil {
		return err
	}

	entries := List(engine)
	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printEntries(out, engine.Document(), entries)
	return nil
}

// List returns the engine's permutations, marking the base permutation.
func List(engine *resolution.Engine) []Entry {
	doc := engine.Document()
	baseKey := ""
	if base, err := engine.DefaultInputs(); err == nil {
		baseKey = doc.Key(base)
	}
	perms := engine.GeneratePermutations()
	entries := make([]Entry, len(perms))
	for i, p := range perms {
		key := doc.Key(p)
		entries[i] = Entry{Key: key, Inputs: p, Base: key == baseKey}
	}
	return entries
}

func printEntries(w io.Writer, doc *resolution.Document, entries []Entry) {
	for _, e := range entries {
		pairs := make([]string, 0, len(doc.ModifierOrder))
		for _, name := range doc.ModifierOrder {
			pairs = append(pairs, name+"="+e.Inputs[name])
		}
		marker := ""
		if e.Base {
			marker = "  (base)"
		}
		fmt.Fprintf(w, "%-30s %s%s\n", e.Key, strings.Join(pairs, " "), marker)
	}
}
