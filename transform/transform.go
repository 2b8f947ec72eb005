/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package transform rewrites token names and values after filtering.
package transform

import (
	"maps"
	"slices"

	"bennypowers.dev/permute/internal/colorval"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
	"bennypowers.dev/permute/token"
)

// Transform rewrites the tokens it matches.
type Transform interface {
	Name() string
	Match(tok *token.Token) bool
	// Apply returns the rewritten token. It must not modify tok.
	Apply(tok *token.Token) (*token.Token, error)
}

type funcTransform struct {
	name  string
	match func(*token.Token) bool
	apply func(*token.Token) (*token.Token, error)
}

func (f funcTransform) Name() string {
	return f.name
}

func (f funcTransform) Match(tok *token.Token) bool {
	return f.match(tok)
}

func (f funcTransform) Apply(tok *token.Token) (*token.Token, error) {
	return f.apply(tok)
}

// New creates a transform from a matcher and a rewrite function.
// A nil matcher matches every token.
func New(name string, match func(*token.Token) bool, apply func(*token.Token) (*token.Token, error)) Transform {
	if match == nil {
		match = func(*token.Token) bool { return true }
	}
	return funcTransform{name: name, match: match, apply: apply}
}

var builtins = map[string]Transform{
	"name/kebab":  nameTransform("name/kebab", ToKebabCase),
	"name/camel":  nameTransform("name/camel", ToCamelCase),
	"name/snake":  nameTransform("name/snake", ToSnakeCase),
	"name/pascal": nameTransform("name/pascal", ToPascalCase),
	"color/hex":   colorTransform("color/hex", colorval.Value.Hex),
	"color/oklch": colorTransform("color/oklch", colorval.Value.OkLch),
}

// Names returns the built-in transform names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(builtins))
}

// Lookup returns a built-in transform by name.
func Lookup(name string) (Transform, error) {
	if t, ok := builtins[name]; ok {
		return t, nil
	}
	return nil, schema.NewError(schema.ErrConfiguration, "unknown transform %q", name).
		WithSuggestions(suggest.Suggest(name, Names()))
}

// LookupAll resolves transform names in order.
func LookupAll(names []string) ([]Transform, error) {
	out := make([]Transform, 0, len(names))
	for _, name := range names {
		t, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Apply runs each transform in order over every token it matches and
// returns a new table keyed by the transformed names. tbl is not modified.
func Apply(tbl token.Table, transforms ...Transform) (token.Table, error) {
	current := tbl.Clone()
	for _, t := range transforms {
		next := make(token.Table, len(current))
		for _, name := range current.Names() {
			tok := current[name]
			if t.Match(tok) {
				rewritten, err := t.Apply(tok)
				if err != nil {
					return nil, schema.NewError(schema.ErrValidation, "transform %s failed", t.Name()).
						WithToken(name).
						WithCause(err)
				}
				tok = rewritten
			}
			if prev, clash := next[tok.Name]; clash {
				return nil, schema.NewError(schema.ErrValidation,
					"transform %s maps %s and %s to the same name %q", t.Name(), prev.DotPath(), tok.DotPath(), tok.Name)
			}
			next[tok.Name] = tok
		}
		current = next
	}
	return current, nil
}

func nameTransform(name string, convert func(string) string) Transform {
	return New(name, nil, func(tok *token.Token) (*token.Token, error) {
		c := tok.Clone()
		c.Name = convert(tok.DotPath())
		return c, nil
	})
}

func colorTransform(name string, format func(colorval.Value) string) Transform {
	return New(name,
		func(tok *token.Token) bool { return tok.Type == "color" },
		func(tok *token.Token) (*token.Token, error) {
			v, err := colorval.Parse(tok.Value)
			if err != nil {
				return nil, err
			}
			c := tok.Clone()
			c.Value = format(v)
			return c, nil
		})
}
