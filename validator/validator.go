/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package validator checks the structure of resolver documents before they are
// parsed into typed form.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
)

// ValidationError represents one structural problem in a resolver document.
type ValidationError struct {
	// FilePath is the path to the file containing the error.
	FilePath string
	// Path is the JSON path to the problematic element.
	Path string
	// Message describes what's wrong.
	Message string
	// Suggestions are the closest valid names, if a lookup failed.
	Suggestions []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.FilePath != "" {
		sb.WriteString(e.FilePath)
		sb.WriteString(": ")
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if len(e.Suggestions) > 0 {
		sb.WriteString(" (did you mean ")
		quoted := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		sb.WriteString(strings.Join(quoted, ", "))
		sb.WriteString("?)")
	}
	return sb.String()
}

// ValidateDocument checks a decoded resolver document. It returns every
// problem found rather than stopping at the first.
//
// Checks:
//   - version is a supported resolver version
//   - every set has a sources array
//   - every modifier has a non-empty contexts object of source arrays
//   - a modifier default names one of its contexts
//   - resolutionOrder is an array of references to existing sets or
//     modifiers, inline sets, or inline modifiers
func ValidateDocument(doc map[string]any, filePath string) []ValidationError {
	v := &docValidator{filePath: filePath}

	if raw, ok := doc["version"]; !ok {
		v.add("version", "missing required field \"version\"")
	} else if s, ok := raw.(string); !ok {
		v.add("version", fmt.Sprintf("version must be a string, got %T", raw))
	} else if _, err := schema.ParseVersion(s); err != nil {
		v.add("version", fmt.Sprintf("unrecognized resolver version %q", s), schema.SupportedVersions()...)
	}

	sets := v.object(doc, "sets")
	for _, name := range sortedKeys(sets) {
		v.set(sets[name], "sets."+name)
	}

	modifiers := v.object(doc, "modifiers")
	for _, name := range sortedKeys(modifiers) {
		v.modifier(modifiers[name], "modifiers."+name)
	}

	order, ok := doc["resolutionOrder"].([]any)
	if !ok {
		v.add("resolutionOrder", "resolutionOrder must be an array")
		return v.errors
	}
	for i, entry := range order {
		v.entry(entry, fmt.Sprintf("resolutionOrder[%d]", i), sets, modifiers)
	}

	return v.errors
}

// AsError folds findings into a single Configuration error, or nil.
func AsError(findings []ValidationError, filePath string) error {
	if len(findings) == 0 {
		return nil
	}
	msgs := make([]string, len(findings))
	var suggestions []string
	for i := range findings {
		f := findings[i]
		f.FilePath = ""
		msgs[i] = f.Error()
		suggestions = append(suggestions, f.Suggestions...)
	}
	return schema.NewError(schema.ErrConfiguration, "invalid resolver document: %s", strings.Join(msgs, "; ")).
		WithPath(filePath).
		WithSuggestions(suggestions)
}

type docValidator struct {
	filePath string
	errors   []ValidationError
}

func (v *docValidator) add(path, message string, suggestions ...string) {
	v.errors = append(v.errors, ValidationError{
		FilePath:    v.filePath,
		Path:        path,
		Message:     message,
		Suggestions: suggestions,
	})
}

// object returns doc[key] as an object. Absent keys are allowed.
func (v *docValidator) object(doc map[string]any, key string) map[string]any {
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		v.add(key, fmt.Sprintf("%s must be an object, got %T", key, raw))
		return nil
	}
	return m
}

func (v *docValidator) set(raw any, path string) {
	m, ok := raw.(map[string]any)
	if !ok {
		v.add(path, "set must be an object")
		return
	}
	v.sources(m["sources"], path+".sources")
}

func (v *docValidator) modifier(raw any, path string) {
	m, ok := raw.(map[string]any)
	if !ok {
		v.add(path, "modifier must be an object")
		return
	}
	contexts, ok := m["contexts"].(map[string]any)
	if !ok || len(contexts) == 0 {
		v.add(path+".contexts", "modifier must declare at least one context")
		return
	}
	for _, name := range sortedKeys(contexts) {
		v.sources(contexts[name], path+".contexts."+name)
	}
	if raw, ok := m["default"]; ok {
		def, isString := raw.(string)
		switch {
		case !isString:
			v.add(path+".default", fmt.Sprintf("default must be a string, got %T", raw))
		case !hasKeyFold(contexts, def):
			v.add(path+".default", fmt.Sprintf("default %q is not a declared context", def),
				suggest.Suggest(def, sortedKeys(contexts))...)
		}
	}
}

func (v *docValidator) sources(raw any, path string) {
	list, ok := raw.([]any)
	if !ok {
		v.add(path, "sources must be an array")
		return
	}
	for i, src := range list {
		m, ok := src.(map[string]any)
		if !ok {
			v.add(fmt.Sprintf("%s[%d]", path, i), "source must be a $ref object or an inline token tree")
			continue
		}
		if ref, has := m["$ref"]; has {
			if _, isString := ref.(string); !isString {
				v.add(fmt.Sprintf("%s[%d].$ref", path, i), "$ref must be a string")
			}
		}
	}
}

func (v *docValidator) entry(raw any, path string, sets, modifiers map[string]any) {
	m, ok := raw.(map[string]any)
	if !ok {
		v.add(path, "entry must be an object")
		return
	}
	if ref, has := m["$ref"]; has {
		s, ok := ref.(string)
		if !ok {
			v.add(path+".$ref", "$ref must be a string")
			return
		}
		v.orderRef(s, path+".$ref", sets, modifiers)
		return
	}
	_, isSet := m["sources"]
	_, isModifier := m["contexts"]
	switch {
	case isSet && isModifier:
		v.add(path, "entry cannot have both sources and contexts")
	case isSet:
		v.set(m, path)
	case isModifier:
		v.modifier(m, path)
	default:
		v.add(path, "entry must be a $ref, an inline set (sources), or an inline modifier (contexts)")
	}
}

func (v *docValidator) orderRef(ref, path string, sets, modifiers map[string]any) {
	kind, name, ok := SplitOrderRef(ref)
	if !ok {
		v.add(path, fmt.Sprintf("reference %q must point to #/sets/<name> or #/modifiers/<name>", ref))
		return
	}
	pool := sets
	if kind == "modifiers" {
		pool = modifiers
	}
	if _, exists := pool[name]; !exists {
		v.add(path, fmt.Sprintf("reference %q names an undefined %s entry", ref, strings.TrimSuffix(kind, "s")),
			suggest.Suggest(name, sortedKeys(pool))...)
	}
}

// SplitOrderRef splits "#/sets/core" into ("sets", "core").
func SplitOrderRef(ref string) (kind, name string, ok bool) {
	rest, found := strings.CutPrefix(ref, "#/")
	if !found {
		return "", "", false
	}
	kind, name, found = strings.Cut(rest, "/")
	if !found || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	if kind != "sets" && kind != "modifiers" {
		return "", "", false
	}
	name = strings.ReplaceAll(strings.ReplaceAll(name, "~1", "/"), "~0", "~")
	return kind, name, true
}

func hasKeyFold(m map[string]any, key string) bool {
	for k := range m {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
