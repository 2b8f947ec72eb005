/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/ref"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/token"
)

// Options configures an Engine.
type Options struct {
	// FS reads source files. Defaults to the OS filesystem.
	FS fs.FileSystem
	// Fetcher enables http(s) sources and references.
	Fetcher ref.Fetcher
	// Cache is shared by every permutation. A new one is created when nil.
	Cache *ref.Cache
	// Strict disables first-context fallback and turns $type mismatches into errors.
	Strict bool
}

// Engine resolves permutations of one Document. It is safe for concurrent
// use: the document and file cache are shared, everything else is created
// per call.
type Engine struct {
	doc   *Document
	opts  Options
	cache *ref.Cache
}

// NewEngine creates an engine for doc.
func NewEngine(doc *Document, opts Options) *Engine {
	if opts.FS == nil {
		opts.FS = fs.NewOSFileSystem()
	}
	cache := opts.Cache
	if cache == nil {
		cache = ref.NewCache()
	}
	return &Engine{doc: doc, opts: opts, cache: cache}
}

// Document returns the resolver document.
func (e *Engine) Document() *Document {
	return e.doc
}

// Strict reports whether the engine runs in strict mode.
func (e *Engine) Strict() bool {
	return e.opts.Strict
}

// NewRefResolver returns a reference resolver with its own cycle-detection
// state that shares the engine's file cache.
func (e *Engine) NewRefResolver() *ref.Resolver {
	return ref.New(ref.Options{
		FS:      e.opts.FS,
		BaseDir: e.doc.BaseDir,
		Cache:   e.cache,
		Fetcher: e.opts.Fetcher,
		Strict:  e.opts.Strict,
	})
}

// PrepareInputs validates and default-fills raw inputs under the engine's policy.
func (e *Engine) PrepareInputs(raw map[string]any) (normalized, resolved Inputs, err error) {
	return e.doc.PrepareInputs(raw, PrepareOptions{Strict: e.opts.Strict})
}

// ResolveWithInputs merges every entry of the resolution order, selecting
// modifier contexts from raw, into one token document. Source references are
// loaded but $refs inside the tokens are left for the reference stage.
//
// Tokens are tagged with the set ("_sourceSet") or modifier context
// ("_sourceModifier", as "{modifier}-{context}") that contributed them.
func (e *Engine) ResolveWithInputs(ctx context.Context, raw map[string]any) (map[string]any, Inputs, error) {
	_, resolved, err := e.PrepareInputs(raw)
	if err != nil {
		return nil, nil, err
	}

	refs := e.NewRefResolver()
	tree := make(map[string]any)

	for _, entry := range e.doc.ResolutionOrder {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		switch entry.Kind {
		case EntrySet:
			for i, src := range entry.Set.Sources {
				part, err := e.loadSource(ctx, refs, src)
				if err != nil {
					return nil, nil, fmt.Errorf("set %q source %d: %w", entry.Set.Name, i, err)
				}
				tagProvenance(part, token.SourceSetKey, entry.Set.Name)
				merge(tree, part)
			}
		case EntryModifier:
			mod := entry.Modifier
			selected := resolved[mod.Name]
			for i, src := range mod.Contexts[selected] {
				part, err := e.loadSource(ctx, refs, src)
				if err != nil {
					return nil, nil, fmt.Errorf("modifier %q context %q source %d: %w", mod.Name, selected, i, err)
				}
				tagProvenance(part, token.SourceModifierKey, mod.Name+"-"+selected)
				merge(tree, part)
			}
		default:
			return nil, nil, fmt.Errorf("unhandled resolution entry kind %v", entry.Kind)
		}
	}

	logger.Debug("resolved permutation %s", resolved)
	return tree, resolved, nil
}

// loadSource returns a private copy of a source's token tree.
func (e *Engine) loadSource(ctx context.Context, refs *ref.Resolver, src any) (map[string]any, error) {
	node, ok := src.(map[string]any)
	if !ok {
		return nil, schema.NewError(schema.ErrConfiguration, "source must be an object, got %T", src)
	}
	target, isRef := ref.IsRef(node)
	if !isRef {
		return deepcopy.Copy(node).(map[string]any), nil
	}

	loaded, err := refs.Load(ctx, target, e.doc.Raw)
	if err != nil {
		return nil, err
	}
	tree, ok := loaded.(map[string]any)
	if !ok {
		return nil, schema.NewError(schema.ErrConfiguration,
			"source %q must resolve to a token tree, got %T", target, loaded).
			WithPath(e.doc.Path)
	}
	for k, v := range node {
		if k != "$ref" {
			tree[k] = deepcopy.Copy(v)
		}
	}
	return tree, nil
}

// GeneratePermutations returns every combination of modifier contexts, in
// modifier order then context declaration order. A document without
// modifiers yields one empty permutation.
func (e *Engine) GeneratePermutations() []Inputs {
	perms := []Inputs{{}}
	for _, name := range e.doc.ModifierOrder {
		mod := e.doc.Modifiers[name]
		next := make([]Inputs, 0, len(perms)*len(mod.ContextOrder))
		for _, p := range perms {
			for _, option := range mod.ContextOrder {
				c := p.Clone()
				c[name] = option
				next = append(next, c)
			}
		}
		perms = next
	}
	return perms
}

// DefaultInputs returns the base permutation: every modifier at its default.
func (e *Engine) DefaultInputs() (Inputs, error) {
	_, resolved, err := e.PrepareInputs(nil)
	if err != nil {
		var se *schema.Error
		if errors.As(err, &se) && errors.Is(err, schema.ErrModifier) {
			return nil, schema.NewError(schema.ErrBasePermutation, "%s", se.Message).
				WithSuggestions(se.Suggestions).
				WithPath(e.doc.Path)
		}
		return nil, err
	}
	return resolved, nil
}

// merge copies src into dst. Groups merge recursively; tokens and values
// from src replace what dst holds.
func merge(dst, src map[string]any) {
	for k, v := range src {
		srcGroup, srcIsGroup := asGroup(v)
		dstGroup, dstIsGroup := asGroup(dst[k])
		if srcIsGroup && dstIsGroup {
			merge(dstGroup, srcGroup)
			continue
		}
		dst[k] = v
	}
}

// asGroup reports whether v is a group node, as opposed to a token, a $ref,
// or a plain value.
func asGroup(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, isToken := m["$value"]; isToken {
		return nil, false
	}
	if _, isRef := m["$ref"]; isRef {
		return nil, false
	}
	return m, true
}

// tagProvenance sets key on every token and $ref node of tree.
func tagProvenance(tree map[string]any, key, value string) {
	for k, child := range tree {
		if strings.HasPrefix(k, "$") && k != token.RootKey {
			continue
		}
		node, ok := child.(map[string]any)
		if !ok {
			continue
		}
		_, isToken := node["$value"]
		_, isRef := node["$ref"]
		if isToken || isRef {
			node[key] = value
			continue
		}
		tagProvenance(node, key, value)
	}
}
