/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package lint

import (
	"sort"
	"strings"
	"sync"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
)

// Loader resolves a plugin source string to a plugin.
type Loader interface {
	Load(source string) (*Plugin, error)
}

// Registry is a Loader over statically linked plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewRegistry creates a registry holding plugins.
// It panics if a plugin is malformed, since built-in plugins are fixed at compile time.
func NewRegistry(plugins ...*Plugin) *Registry {
	r := &Registry{plugins: make(map[string]*Plugin)}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a plugin.
func (r *Registry) Register(p *Plugin) error {
	if err := checkPlugin(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[p.Name]; exists {
		return schema.NewError(schema.ErrConfiguration, "lint plugin %q is already registered", p.Name)
	}
	r.plugins[p.Name] = p
	return nil
}

// Load returns the plugin registered under source.
func (r *Registry) Load(source string) (*Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.plugins[source]; ok {
		return p, nil
	}
	return nil, schema.NewError(schema.ErrConfiguration, "unknown lint plugin %q", source).
		WithSuggestions(suggest.Suggest(source, r.namesLocked()))
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkPlugin(p *Plugin) error {
	if p == nil || p.Name == "" {
		return schema.NewError(schema.ErrConfiguration, "lint plugin needs a name")
	}
	if strings.Contains(p.Name, "/") {
		return schema.NewError(schema.ErrConfiguration, "lint plugin name %q must not contain \"/\"", p.Name)
	}
	for name, rule := range p.Rules {
		if rule == nil || rule.Create == nil {
			return schema.NewError(schema.ErrConfiguration, "lint rule %s/%s has no Create function", p.Name, name)
		}
	}
	return nil
}
