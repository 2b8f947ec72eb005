/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package filter selects which tokens reach transforms and renderers.
package filter

import (
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/token"
)

// Filter decides whether a token is kept.
type Filter interface {
	Keep(tok *token.Token) bool
}

// Func adapts a function to Filter.
type Func func(tok *token.Token) bool

// Keep implements Filter.
func (f Func) Keep(tok *token.Token) bool { return f(tok) }

// Spec is the configuration form of a filter. Set fields combine with AND.
type Spec struct {
	// Types keeps tokens of these $types.
	Types []string `yaml:"types" json:"types"`
	// Paths keeps tokens whose name matches one of these globs.
	Paths []string `yaml:"paths" json:"paths"`
	// Exclude drops tokens whose name matches one of these globs.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// Deprecated keeps only deprecated tokens when true and drops them when false.
	Deprecated *bool `yaml:"deprecated" json:"deprecated"`
	// Sets keeps tokens contributed by these resolver sets.
	Sets []string `yaml:"sets" json:"sets"`
}

// FromSpec builds a filter from its configuration form.
func FromSpec(spec Spec) (Filter, error) {
	var filters []Filter
	if len(spec.Types) > 0 {
		filters = append(filters, ByType(spec.Types...))
	}
	if len(spec.Paths) > 0 || len(spec.Exclude) > 0 {
		f, err := ByPath(spec.Paths, spec.Exclude)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if spec.Deprecated != nil {
		want := *spec.Deprecated
		filters = append(filters, Func(func(tok *token.Token) bool { return tok.Deprecated == want }))
	}
	if len(spec.Sets) > 0 {
		filters = append(filters, BySourceSet(spec.Sets...))
	}
	return All(filters...), nil
}

// ByType keeps tokens whose $type is one of types.
func ByType(types ...string) Filter {
	return Func(func(tok *token.Token) bool {
		return slices.Contains(types, tok.Type)
	})
}

// ByPath keeps tokens matching an include glob (all tokens when include is
// empty) and no exclude glob. Globs use dots as separators:
// "color.*" matches one level, "color.**" any depth.
func ByPath(include, exclude []string) (Filter, error) {
	for _, pattern := range slices.Concat(include, exclude) {
		if !doublestar.ValidatePattern(globPath(pattern)) {
			return nil, schema.NewError(schema.ErrConfiguration, "invalid path glob %q", pattern)
		}
	}
	return Func(func(tok *token.Token) bool {
		name := globPath(tok.Name)
		if len(include) > 0 && !matchAny(include, name) {
			return false
		}
		return !matchAny(exclude, name)
	}), nil
}

// NotDeprecated drops deprecated tokens.
func NotDeprecated() Filter {
	return Func(func(tok *token.Token) bool { return !tok.Deprecated })
}

// BySourceSet keeps tokens contributed by one of the named resolver sets.
func BySourceSet(sets ...string) Filter {
	return Func(func(tok *token.Token) bool {
		return slices.Contains(sets, tok.SourceSet)
	})
}

// All keeps tokens every filter keeps.
func All(filters ...Filter) Filter {
	return Func(func(tok *token.Token) bool {
		for _, f := range filters {
			if !f.Keep(tok) {
				return false
			}
		}
		return true
	})
}

// Apply returns a copy of tbl holding only the tokens every filter keeps.
func Apply(tbl token.Table, filters ...Filter) token.Table {
	keep := All(filters...)
	out := make(token.Table, len(tbl))
	for name, tok := range tbl {
		if keep.Keep(tok) {
			out[name] = tok.Clone()
		}
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(globPath(p), name); ok {
			return true
		}
	}
	return false
}

func globPath(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}
