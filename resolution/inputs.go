/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package resolution

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
)

// Inputs maps modifier names to selected context names.
type Inputs map[string]string

// Clone returns a copy of in.
func (in Inputs) Clone() Inputs {
	c := make(Inputs, len(in))
	for k, v := range in {
		c[k] = v
	}
	return c
}

// String renders inputs as "a=x, b=y" with sorted keys.
func (in Inputs) String() string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + in[k]
	}
	return strings.Join(parts, ", ")
}

// PrepareOptions selects the policy for modifiers that receive no input.
type PrepareOptions struct {
	// Strict rejects a missing input for a modifier without a default.
	// Otherwise the modifier falls back to its first declared context and a
	// warning is logged.
	Strict bool
}

// PrepareInputs validates raw modifier inputs against the document and fills
// in defaults. Matching is case-insensitive.
//
// normalized holds lower-cased modifier and context names for every modifier.
// resolved holds the same selection in the casing the document declares.
func (d *Document) PrepareInputs(raw map[string]any, opts PrepareOptions) (normalized, resolved Inputs, err error) {
	normalized = make(Inputs, len(d.Modifiers))

	given := make(map[string]string, len(raw))
	for _, key := range sortedAnyKeys(raw) {
		value, ok := raw[key].(string)
		if !ok {
			return nil, nil, schema.NewError(schema.ErrConfiguration,
				"modifier input %q must be a string, got %T", key, raw[key])
		}
		folded := fold(key)
		if prev, dup := given[folded]; dup {
			return nil, nil, schema.NewError(schema.ErrConfiguration,
				"modifier inputs %q and %q name the same modifier", prev, key)
		}
		given[folded] = key
		normalized[folded] = fold(value)
	}

	byFold := make(map[string]*Modifier, len(d.Modifiers))
	for _, name := range d.ModifierOrder {
		byFold[fold(name)] = d.Modifiers[name]
	}

	for _, key := range sortedKeys(normalized) {
		mod, ok := byFold[key]
		if !ok {
			return nil, nil, schema.NewError(schema.ErrModifier, "unknown modifier %q", key).
				WithSuggestions(suggestFold(key, d.ModifierOrder))
		}
		if _, ok := mod.ContextFold(normalized[key]); !ok {
			return nil, nil, schema.NewError(schema.ErrModifier,
				"unknown context %q for modifier %q", normalized[key], mod.Name).
				WithSuggestions(suggestFold(normalized[key], mod.ContextOrder))
		}
	}

	resolved = make(Inputs, len(d.Modifiers))
	for _, name := range d.ModifierOrder {
		mod := d.Modifiers[name]
		key := fold(name)
		if value, ok := normalized[key]; ok {
			resolved[name], _ = mod.ContextFold(value)
			continue
		}
		switch {
		case mod.Default != "":
			resolved[name] = mod.Default
		case opts.Strict:
			return nil, nil, schema.NewError(schema.ErrModifier,
				"no input for modifier %q and it declares no default", name).
				WithSuggestions(mod.ContextOrder)
		default:
			resolved[name] = mod.ContextOrder[0]
			logger.Warn("modifier %q has no input and no default, using first context %q", name, resolved[name])
		}
		normalized[key] = fold(resolved[name])
	}

	return normalized, resolved, nil
}

// Key identifies a permutation: its context names joined by "-" in modifier
// order, or "default" for a document without modifiers.
func (d *Document) Key(resolved Inputs) string {
	parts := make([]string, 0, len(d.ModifierOrder))
	for _, name := range d.ModifierOrder {
		if v, ok := resolved[name]; ok {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "-")
}

// fold lower-cases s for case-insensitive matching. A Caser is stateful, so
// each call uses its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// suggestFold suggests declared names for a folded input.
func suggestFold(input string, declared []string) []string {
	folded := make([]string, len(declared))
	byFold := make(map[string]string, len(declared))
	for i, name := range declared {
		folded[i] = fold(name)
		byFold[folded[i]] = name
	}
	matches := suggest.Suggest(input, folded)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = byFold[m]
	}
	return out
}

func sortedKeys(m Inputs) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InputsFromStrings converts "key=value" pairs, as given on a command line.
func InputsFromStrings(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, schema.NewError(schema.ErrConfiguration, "modifier input %q must be key=value", p)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// ToAny converts inputs to the raw form accepted by PrepareInputs.
func (in Inputs) ToAny() map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
