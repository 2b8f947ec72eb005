/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package render defines the contract between the build and output renderers.
package render

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
)

// PermutationPlaceholder in an output file name expands to a permutation key.
const PermutationPlaceholder = "{permutation}"

// Renderer formats resolved permutations.
type Renderer interface {
	Name() string
	Render(ctx context.Context, rc *Context) ([]File, error)
}

// File is one rendered file. Path is relative to the build path.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"-"`
}

// Output describes what the renderer is asked to produce.
type Output struct {
	Name     string
	Renderer string
	// File is the requested path, possibly holding PermutationPlaceholder.
	File    string
	Options map[string]any
}

// PerPermutation reports whether the output writes one file per permutation.
func (o Output) PerPermutation() bool {
	return strings.Contains(o.File, PermutationPlaceholder)
}

// FileFor expands the output's file name for one permutation key.
func (o Output) FileFor(key string) string {
	return strings.ReplaceAll(o.File, PermutationPlaceholder, key)
}

// Meta is build-wide information for renderers.
type Meta struct {
	// Base is the permutation selected purely by defaults. Nil when the
	// document has no usable base permutation.
	Base resolution.Inputs
	// BaseKey is the key of Base.
	BaseKey string
	// Version is the permute version that produced the output.
	Version string
}

// Context is everything a renderer receives.
type Context struct {
	Permutations []*pipeline.Permutation
	Output       Output
	Resolver     *resolution.Document
	Meta         Meta
	BuildPath    string
}

// Base returns the base permutation's result, or the first permutation.
func (rc *Context) Base() *pipeline.Permutation {
	for _, p := range rc.Permutations {
		if rc.Meta.BaseKey != "" && p.Key == rc.Meta.BaseKey {
			return p
		}
	}
	if len(rc.Permutations) > 0 {
		return rc.Permutations[0]
	}
	return nil
}

// Registry holds renderers by name.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates a registry holding renderers.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer)}
	for _, renderer := range renderers {
		r.Register(renderer)
	}
	return r
}

// Register adds or replaces a renderer.
func (r *Registry) Register(renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[renderer.Name()] = renderer
}

// Lookup returns the renderer registered under name.
func (r *Registry) Lookup(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if renderer, ok := r.renderers[name]; ok {
		return renderer, nil
	}
	return nil, schema.NewError(schema.ErrConfiguration, "unknown renderer %q", name).
		WithSuggestions(suggest.Suggest(name, slices.Sorted(maps.Keys(r.renderers))))
}
