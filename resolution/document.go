/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package resolution turns a resolver document and a set of modifier inputs
// into one merged token document per permutation.
package resolution

import (
	"fmt"
	"path/filepath"

	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/parser"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/validator"
)

// Set is an ordered list of token sources. Later sources override earlier ones.
type Set struct {
	Name        string
	Description string
	// Sources are $ref objects or inline token trees.
	Sources []any
}

// Modifier is a variant axis. An input selects exactly one of its contexts.
type Modifier struct {
	Name        string
	Description string
	// Default is the context used when no input is given. May be empty.
	Default  string
	Contexts map[string][]any
	// ContextOrder lists context names in declaration order.
	ContextOrder []string
}

// ContextFold returns the declared spelling of context, matched case-insensitively.
func (m *Modifier) ContextFold(context string) (string, bool) {
	for _, name := range m.ContextOrder {
		if fold(name) == fold(context) {
			return name, true
		}
	}
	return "", false
}

// EntryKind discriminates resolutionOrder entries.
type EntryKind int

const (
	// EntrySet is a set, either inline or referenced by #/sets/<name>.
	EntrySet EntryKind = iota
	// EntryModifier is a modifier, either inline or referenced by #/modifiers/<name>.
	EntryModifier
)

func (k EntryKind) String() string {
	switch k {
	case EntrySet:
		return "set"
	case EntryModifier:
		return "modifier"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// OrderEntry is one step of the resolution order. Exactly one of Set and
// Modifier is non-nil, as selected by Kind.
type OrderEntry struct {
	Kind EntryKind
	// Ref is the original reference string, empty for inline entries.
	Ref      string
	Set      *Set
	Modifier *Modifier
}

// Inline reports whether the entry was declared in place rather than referenced.
func (e OrderEntry) Inline() bool {
	return e.Ref == ""
}

// Document is a parsed resolver document. It is read-only after parsing and
// shared by every permutation of a build.
type Document struct {
	Name        string
	Description string
	Version     schema.Version

	Sets      map[string]*Set
	SetOrder  []string
	Modifiers map[string]*Modifier
	// ModifierOrder lists every modifier (named and inline) in the order they
	// first appear in resolutionOrder, followed by unreferenced named modifiers
	// in declaration order.
	ModifierOrder []string

	ResolutionOrder []OrderEntry

	// Path is the file the document was read from, if any.
	Path string
	// BaseDir is the directory relative source references resolve against.
	BaseDir string
	// Raw is the decoded document, used as the target of #/ source references.
	Raw map[string]any
}

// Modifier returns the modifier with the given declared name.
func (d *Document) Modifier(name string) (*Modifier, bool) {
	m, ok := d.Modifiers[name]
	return m, ok
}

// ParseDocument validates raw and converts it to a Document. order supplies
// declaration order of object keys and may be nil, in which case keys sort
// alphabetically. path is used for error messages and as the base directory.
func ParseDocument(raw map[string]any, order parser.KeyOrder, path string) (*Document, error) {
	if err := validator.AsError(validator.ValidateDocument(raw, path), path); err != nil {
		return nil, err
	}
	if order == nil {
		order = parser.KeyOrder{}
	}

	doc := &Document{
		Sets:      make(map[string]*Set),
		Modifiers: make(map[string]*Modifier),
		Path:      path,
		Raw:       raw,
	}
	if path != "" {
		doc.BaseDir = filepath.Dir(path)
	}
	doc.Name, _ = raw["name"].(string)
	doc.Description, _ = raw["description"].(string)
	version, _ := raw["version"].(string)
	doc.Version, _ = schema.ParseVersion(version)

	sets, _ := raw["sets"].(map[string]any)
	for _, name := range order.Keys("sets", sets) {
		doc.Sets[name] = parseSet(name, sets[name].(map[string]any))
		doc.SetOrder = append(doc.SetOrder, name)
	}

	modifiers, _ := raw["modifiers"].(map[string]any)
	declared := order.Keys("modifiers", modifiers)
	for _, name := range declared {
		doc.Modifiers[name] = parseModifier(name, modifiers[name].(map[string]any), order, "modifiers/"+name)
	}

	seen := make(map[string]bool)
	entries := raw["resolutionOrder"].([]any)
	for i, rawEntry := range entries {
		m := rawEntry.(map[string]any)
		entry, err := doc.parseEntry(i, m, order)
		if err != nil {
			return nil, err
		}
		doc.ResolutionOrder = append(doc.ResolutionOrder, entry)
		if entry.Kind == EntryModifier && !seen[entry.Modifier.Name] {
			seen[entry.Modifier.Name] = true
			doc.ModifierOrder = append(doc.ModifierOrder, entry.Modifier.Name)
		}
	}
	for _, name := range declared {
		if !seen[name] {
			doc.ModifierOrder = append(doc.ModifierOrder, name)
		}
	}

	return doc, nil
}

func (d *Document) parseEntry(i int, m map[string]any, order parser.KeyOrder) (OrderEntry, error) {
	if ref, ok := m["$ref"].(string); ok {
		kind, name, _ := validator.SplitOrderRef(ref)
		if kind == "sets" {
			return OrderEntry{Kind: EntrySet, Ref: ref, Set: d.Sets[name]}, nil
		}
		return OrderEntry{Kind: EntryModifier, Ref: ref, Modifier: d.Modifiers[name]}, nil
	}

	name, _ := m["name"].(string)
	if name == "" {
		name = fmt.Sprintf("resolutionOrder[%d]", i)
	}
	if _, isSet := m["sources"]; isSet {
		return OrderEntry{Kind: EntrySet, Set: parseSet(name, m)}, nil
	}

	if _, clash := d.Modifiers[name]; clash {
		return OrderEntry{}, schema.NewError(schema.ErrConfiguration,
			"inline modifier %q shadows a named modifier", name).
			WithPath(d.Path)
	}
	mod := parseModifier(name, m, order, fmt.Sprintf("resolutionOrder/%d", i))
	d.Modifiers[name] = mod
	return OrderEntry{Kind: EntryModifier, Modifier: mod}, nil
}

func parseSet(name string, m map[string]any) *Set {
	set := &Set{Name: name}
	set.Description, _ = m["description"].(string)
	sources, _ := m["sources"].([]any)
	set.Sources = deepcopy.Copy(sources).([]any)
	return set
}

func parseModifier(name string, m map[string]any, order parser.KeyOrder, at string) *Modifier {
	mod := &Modifier{Name: name, Contexts: make(map[string][]any)}
	mod.Description, _ = m["description"].(string)
	contexts := m["contexts"].(map[string]any)
	for _, ctx := range order.Keys(at+"/contexts", contexts) {
		sources, _ := contexts[ctx].([]any)
		mod.Contexts[ctx] = deepcopy.Copy(sources).([]any)
		mod.ContextOrder = append(mod.ContextOrder, ctx)
	}
	if def, ok := m["default"].(string); ok {
		mod.Default, _ = mod.ContextFold(def)
	}
	return mod
}
