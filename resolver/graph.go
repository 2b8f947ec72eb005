/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package resolver resolves curly-brace aliases and group extensions.
package resolver

import (
	"slices"
	"sort"

	"bennypowers.dev/permute/token"
)

// DependencyGraph maps each token to the tokens its aliases name. Cycles are
// reported by ResolveAliases; the graph only answers "what does x use".
type DependencyGraph struct {
	dependencies map[string][]string
}

// BuildDependencyGraph builds a dependency graph from the aliases in a table.
// Edges come from OriginalValue when set, so the graph still describes a
// table whose aliases have already been resolved.
func BuildDependencyGraph(tbl token.Table) *DependencyGraph {
	graph := &DependencyGraph{dependencies: make(map[string][]string)}

	for _, name := range tbl.Names() {
		tok := tbl[name]
		source := tok.OriginalValue
		if source == nil {
			source = tok.Value
		}
		for _, ref := range token.ExtractRefsFromValue(source) {
			dep, ok := lookup(tbl, ref)
			if !ok {
				continue
			}
			if !slices.Contains(graph.dependencies[name], dep) {
				graph.dependencies[name] = append(graph.dependencies[name], dep)
			}
		}
	}
	for _, deps := range graph.dependencies {
		sort.Strings(deps)
	}

	return graph
}

// Dependencies returns the tokens name aliases directly, sorted.
func (g *DependencyGraph) Dependencies(name string) []string {
	return g.dependencies[name]
}

// lookup finds the table entry an alias names. A group reference falls back
// to the group's $root token.
func lookup(tbl token.Table, name string) (string, bool) {
	if _, ok := tbl[name]; ok {
		return name, true
	}
	rooted := name + "." + token.RootKey
	if _, ok := tbl[rooted]; ok {
		return rooted, true
	}
	return "", false
}
