/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package token provides the flat, resolved design token table.
package token

import (
	"sort"
	"strings"

	"github.com/mohae/deepcopy"
)

// Token is one entry of a flat token table.
// See: https://design-tokens.github.io/community-group/format/
type Token struct {
	// Name is the dot-path key (e.g., "color.brand.primary").
	Name string `json:"name"`

	// Path is Name split into segments.
	Path []string `json:"path"`

	// Type is the declared or inherited $type.
	Type string `json:"$type,omitempty"`

	// Value is the resolved $value. Alias-free once the alias stage has run.
	Value any `json:"$value"`

	// OriginalValue is the $value before alias resolution.
	OriginalValue any `json:"originalValue,omitempty"`

	// Description is optional documentation for the token.
	Description string `json:"$description,omitempty"`

	// Extensions allows for custom metadata.
	Extensions map[string]any `json:"$extensions,omitempty"`

	// Deprecated indicates if this token should no longer be used.
	Deprecated bool `json:"$deprecated,omitempty"`

	// DeprecationMessage provides context for deprecated tokens.
	DeprecationMessage string `json:"deprecationMessage,omitempty"`

	// IsAlias is true when $value was a pure {reference}.
	IsAlias bool `json:"_isAlias,omitempty"`

	// SourceSet is the resolver set that contributed this token.
	SourceSet string `json:"_sourceSet,omitempty"`

	// SourceModifier is "{modifier}-{context}" when a modifier context contributed this token.
	SourceModifier string `json:"_sourceModifier,omitempty"`
}

// DotPath returns the dot-separated path to this token.
func (t *Token) DotPath() string {
	return strings.Join(t.Path, ".")
}

// Clone returns a deep copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	c.Path = append([]string(nil), t.Path...)
	c.Value = deepcopy.Copy(t.Value)
	c.OriginalValue = deepcopy.Copy(t.OriginalValue)
	if t.Extensions != nil {
		c.Extensions = deepcopy.Copy(t.Extensions).(map[string]any)
	}
	return &c
}

// Table is a flat token table keyed by dot-path name.
type Table map[string]*Token

// Names returns the token names in sorted order.
func (tbl Table) Names() []string {
	names := make([]string, 0, len(tbl))
	for name := range tbl {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the tokens ordered by name.
func (tbl Table) Sorted() []*Token {
	names := tbl.Names()
	tokens := make([]*Token, len(names))
	for i, name := range names {
		tokens[i] = tbl[name]
	}
	return tokens
}

// Clone returns a deep copy of the table, so the receiver's owner keeps exclusive
// access to its own entries.
func (tbl Table) Clone() Table {
	c := make(Table, len(tbl))
	for name, t := range tbl {
		c[name] = t.Clone()
	}
	return c
}

// Tree rebuilds the nested token document the table was flattened from.
func (tbl Table) Tree() map[string]any {
	root := make(map[string]any)
	for _, t := range tbl.Sorted() {
		current := root
		for _, segment := range t.Path[:len(t.Path)-1] {
			next, ok := current[segment].(map[string]any)
			switch {
			case !ok:
				next = make(map[string]any)
				current[segment] = next
			case isTokenNode(next):
				// A token with children is written back as a $root group.
				next = map[string]any{RootKey: next}
				current[segment] = next
			}
			current = next
		}
		leaf := t.Path[len(t.Path)-1]
		if group, ok := current[leaf].(map[string]any); ok && !isTokenNode(group) {
			group[RootKey] = t.Node()
			continue
		}
		current[leaf] = t.Node()
	}
	return root
}

func isTokenNode(node map[string]any) bool {
	_, ok := node["$value"]
	return ok
}

// Node returns the token as a raw document node.
func (t *Token) Node() map[string]any {
	node := map[string]any{"$value": deepcopy.Copy(t.Value)}
	if t.Type != "" {
		node["$type"] = t.Type
	}
	if t.Description != "" {
		node["$description"] = t.Description
	}
	if len(t.Extensions) > 0 {
		node["$extensions"] = deepcopy.Copy(t.Extensions)
	}
	if t.Deprecated {
		if t.DeprecationMessage != "" {
			node["$deprecated"] = t.DeprecationMessage
		} else {
			node["$deprecated"] = true
		}
	}
	if t.SourceSet != "" {
		node[SourceSetKey] = t.SourceSet
	}
	if t.SourceModifier != "" {
		node[SourceModifierKey] = t.SourceModifier
	}
	return node
}

// RootKey names the child that lets a group carry its own value.
const RootKey = "$root"

// Provenance keys carried on raw token nodes between resolution and flattening.
const (
	SourceSetKey      = "_sourceSet"
	SourceModifierKey = "_sourceModifier"
)
