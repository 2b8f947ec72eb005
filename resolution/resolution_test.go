/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package resolution_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"bennypowers.dev/permute/internal/mapfs"
	"bennypowers.dev/permute/parser"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/testutil"
)

const resolverYAML = `
name: example
version: "2025.10"
sets:
  core:
    sources:
      - $ref: tokens/core.json
modifiers:
  Theme:
    default: Light
    contexts:
      Light:
        - $ref: tokens/light.json
      Dark:
        - $ref: tokens/dark.json
  density:
    contexts:
      compact:
        - spacing: { gap: { $type: dimension, $value: { value: 4, unit: px } } }
      comfortable: []
      spacious:
        - spacing: { gap: { $type: dimension, $value: { value: 16, unit: px } } }
resolutionOrder:
  - $ref: "#/sets/core"
  - $ref: "#/modifiers/Theme"
  - $ref: "#/modifiers/density"
`

var tokenFiles = map[string]string{
	"/project/resolver.yaml": resolverYAML,
	"/project/tokens/core.json": `{
	  "color": {
	    "$type": "color",
	    "bg": { "$value": "#ffffff" },
	    "fg": { "$value": "#000000" },
	    "brand": { "$ref": "palette.json#/blue" }
	  },
	  "spacing": { "gap": { "$type": "dimension", "$value": { "value": 8, "unit": "px" } } }
	}`,
	"/project/tokens/palette.json": `{ "blue": { "$value": "#0000ff", "$type": "color" } }`,
	"/project/tokens/light.json":   `{ "color": { "bg": { "$value": "#fafafa" } } }`,
	"/project/tokens/dark.json":    `{ "color": { "bg": { "$value": "#111111" }, "fg": { "$value": "#eeeeee" } } }`,
}

func loadDocument(t *testing.T, mfs *mapfs.MapFileSystem, path string) *resolution.Document {
	t.Helper()
	data, err := mfs.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := parser.DecodeObject(data)
	if err != nil {
		t.Fatal(err)
	}
	order, err := parser.DecodeKeyOrder(data)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := resolution.ParseDocument(raw, order, path)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc
}

func newEngine(t *testing.T, strict bool) (*resolution.Engine, *mapfs.MapFileSystem) {
	t.Helper()
	testutil.Quiet(t)
	mfs := testutil.NewMapFS(t, tokenFiles)
	doc := loadDocument(t, mfs, "/project/resolver.yaml")
	return resolution.NewEngine(doc, resolution.Options{FS: mfs, Strict: strict}), mfs
}

func TestParseDocument(t *testing.T) {
	mfs := testutil.NewMapFS(t, tokenFiles)
	doc := loadDocument(t, mfs, "/project/resolver.yaml")

	if doc.Name != "example" || doc.Version != schema.V2025_10 {
		t.Errorf("metadata = %q %v", doc.Name, doc.Version)
	}
	if doc.BaseDir != "/project" {
		t.Errorf("BaseDir = %q", doc.BaseDir)
	}
	if !slices.Equal(doc.ModifierOrder, []string{"Theme", "density"}) {
		t.Errorf("ModifierOrder = %v", doc.ModifierOrder)
	}
	density, _ := doc.Modifier("density")
	if !slices.Equal(density.ContextOrder, []string{"compact", "comfortable", "spacious"}) {
		t.Errorf("declared context order lost: %v", density.ContextOrder)
	}
	if len(doc.ResolutionOrder) != 3 {
		t.Fatalf("len(ResolutionOrder) = %d", len(doc.ResolutionOrder))
	}
	kinds := []resolution.EntryKind{resolution.EntrySet, resolution.EntryModifier, resolution.EntryModifier}
	for i, entry := range doc.ResolutionOrder {
		if entry.Kind != kinds[i] || entry.Inline() {
			t.Errorf("entry %d = %v inline=%v", i, entry.Kind, entry.Inline())
		}
	}
}

func TestParseDocument_Inline(t *testing.T) {
	raw := map[string]any{
		"version": "2025.10",
		"resolutionOrder": []any{
			map[string]any{"name": "base", "sources": []any{map[string]any{"a": map[string]any{"$value": 1}}}},
			map[string]any{"name": "mode", "contexts": map[string]any{"x": []any{}, "y": []any{}}},
		},
	}
	doc, err := resolution.ParseDocument(raw, nil, "")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if !doc.ResolutionOrder[0].Inline() || doc.ResolutionOrder[0].Set.Name != "base" {
		t.Errorf("inline set not parsed: %+v", doc.ResolutionOrder[0])
	}
	if mod, ok := doc.Modifier("mode"); !ok || len(mod.ContextOrder) != 2 {
		t.Errorf("inline modifier not registered: %+v", mod)
	}
}

func TestParseDocument_Invalid(t *testing.T) {
	raw := map[string]any{"version": "2025.10", "resolutionOrder": []any{map[string]any{"$ref": "#/sets/missing"}}}
	if _, err := resolution.ParseDocument(raw, nil, "r.json"); !errors.Is(err, schema.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestPrepareInputs(t *testing.T) {
	engine, _ := newEngine(t, false)
	doc := engine.Document()

	tests := []struct {
		name           string
		raw            map[string]any
		strict         bool
		wantResolved   resolution.Inputs
		wantNormalized resolution.Inputs
		wantErr        error
		wantSuggestion string
	}{
		{
			name:           "case insensitive, original casing restored",
			raw:            map[string]any{"THEME": "dark", "Density": "COMPACT"},
			wantResolved:   resolution.Inputs{"Theme": "Dark", "density": "compact"},
			wantNormalized: resolution.Inputs{"theme": "dark", "density": "compact"},
		},
		{
			name:         "default filled, no default falls back to first context",
			raw:          map[string]any{},
			wantResolved: resolution.Inputs{"Theme": "Light", "density": "compact"},
		},
		{
			name:    "strict requires input without default",
			raw:     map[string]any{"theme": "dark"},
			strict:  true,
			wantErr: schema.ErrModifier,
		},
		{
			name:    "non-string input",
			raw:     map[string]any{"theme": 1},
			wantErr: schema.ErrConfiguration,
		},
		{
			name:    "keys differing only by case",
			raw:     map[string]any{"Theme": "dark", "theme": "light"},
			wantErr: schema.ErrConfiguration,
		},
		{
			name:           "unknown modifier",
			raw:            map[string]any{"them": "dark"},
			wantErr:        schema.ErrModifier,
			wantSuggestion: "Theme",
		},
		{
			name:           "unknown context",
			raw:            map[string]any{"theme": "drak"},
			wantErr:        schema.ErrModifier,
			wantSuggestion: "Dark",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, resolved, err := doc.PrepareInputs(tt.raw, resolution.PrepareOptions{Strict: tt.strict})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.wantSuggestion != "" {
					var se *schema.Error
					if !errors.As(err, &se) || !slices.Contains(se.Suggestions, tt.wantSuggestion) {
						t.Errorf("expected suggestion %q in %v", tt.wantSuggestion, err)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("PrepareInputs() error = %v", err)
			}
			if fmt.Sprint(resolved) != fmt.Sprint(tt.wantResolved) {
				t.Errorf("resolved = %v, want %v", resolved, tt.wantResolved)
			}
			if tt.wantNormalized != nil && fmt.Sprint(normalized) != fmt.Sprint(tt.wantNormalized) {
				t.Errorf("normalized = %v, want %v", normalized, tt.wantNormalized)
			}
		})
	}
}

func TestGeneratePermutations(t *testing.T) {
	engine, _ := newEngine(t, false)

	perms := engine.GeneratePermutations()
	if len(perms) != 6 {
		t.Fatalf("expected 6 permutations, got %d: %v", len(perms), perms)
	}
	seen := make(map[string]bool)
	for _, p := range perms {
		if len(p) != 2 || p["Theme"] == "" || p["density"] == "" {
			t.Errorf("permutation does not cover every modifier: %v", p)
		}
		seen[p.String()] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct permutations, got %d", len(seen))
	}
	if perms[0]["Theme"] != "Light" || perms[0]["density"] != "compact" {
		t.Errorf("first permutation = %v, want declared order", perms[0])
	}
	if key := engine.Document().Key(perms[5]); key != "Dark-spacious" {
		t.Errorf("Key(last) = %q", key)
	}
}

func TestGeneratePermutations_UnreferencedModifierAppended(t *testing.T) {
	raw := map[string]any{
		"version": "2025.10",
		"modifiers": map[string]any{
			"a": map[string]any{"contexts": map[string]any{"x": []any{}, "y": []any{}}},
			"b": map[string]any{"contexts": map[string]any{"z": []any{}}},
		},
		"resolutionOrder": []any{map[string]any{"$ref": "#/modifiers/b"}},
	}
	doc, err := resolution.ParseDocument(raw, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(doc.ModifierOrder, []string{"b", "a"}) {
		t.Errorf("ModifierOrder = %v, want [b a]", doc.ModifierOrder)
	}
	if n := len(resolution.NewEngine(doc, resolution.Options{}).GeneratePermutations()); n != 2 {
		t.Errorf("expected 2 permutations, got %d", n)
	}
}

func TestResolveWithInputs(t *testing.T) {
	engine, _ := newEngine(t, false)

	tree, resolved, err := engine.ResolveWithInputs(t.Context(), map[string]any{"theme": "dark", "density": "spacious"})
	if err != nil {
		t.Fatalf("ResolveWithInputs() error = %v", err)
	}
	if resolved["Theme"] != "Dark" {
		t.Errorf("resolved = %v", resolved)
	}

	color := tree["color"].(map[string]any)
	bg := color["bg"].(map[string]any)
	if bg["$value"] != "#111111" {
		t.Errorf("modifier did not override set: %v", bg)
	}
	if bg["_sourceModifier"] != "Theme-Dark" {
		t.Errorf("bg provenance = %v", bg["_sourceModifier"])
	}
	if color["$type"] != "color" {
		t.Error("group merge lost the set's group $type")
	}
	brand := color["brand"].(map[string]any)
	if brand["_sourceSet"] != "core" {
		t.Errorf("brand provenance = %v", brand)
	}
	if brand["$ref"] != "tokens/palette.json#/blue" {
		t.Errorf("nested ref was not rebased to the resolver directory: %v", brand["$ref"])
	}
	gap := tree["spacing"].(map[string]any)["gap"].(map[string]any)
	if gap["$value"].(map[string]any)["value"] != 16 {
		t.Errorf("inline context source not merged: %v", gap)
	}

	deep, err := engine.NewRefResolver().ResolveDeep(t.Context(), tree)
	if err != nil {
		t.Fatalf("ResolveDeep() error = %v", err)
	}
	if v := deep["color"].(map[string]any)["brand"].(map[string]any)["$value"]; v != "#0000ff" {
		t.Errorf("brand.$value = %v", v)
	}
}

func TestResolveWithInputs_SourcesReadOnce(t *testing.T) {
	engine, mfs := newEngine(t, false)

	for _, inputs := range engine.GeneratePermutations() {
		if _, _, err := engine.ResolveWithInputs(t.Context(), inputs.ToAny()); err != nil {
			t.Fatalf("%v: %v", inputs, err)
		}
	}
	if n := mfs.ReadCount("/project/tokens/core.json"); n != 1 {
		t.Errorf("core.json read %d times", n)
	}
}

func TestResolveWithInputs_PermutationsAreIndependent(t *testing.T) {
	engine, _ := newEngine(t, false)

	light, _, err := engine.ResolveWithInputs(t.Context(), map[string]any{"theme": "light"})
	if err != nil {
		t.Fatal(err)
	}
	light["color"].(map[string]any)["fg"].(map[string]any)["$value"] = "mutated"

	again, _, err := engine.ResolveWithInputs(t.Context(), map[string]any{"theme": "light"})
	if err != nil {
		t.Fatal(err)
	}
	if v := again["color"].(map[string]any)["fg"].(map[string]any)["$value"]; v != "#000000" {
		t.Errorf("mutation leaked through the cache: %v", v)
	}
}

func TestDefaultInputs(t *testing.T) {
	engine, _ := newEngine(t, false)
	base, err := engine.DefaultInputs()
	if err != nil {
		t.Fatalf("DefaultInputs() error = %v", err)
	}
	if base["Theme"] != "Light" {
		t.Errorf("base = %v", base)
	}

	strict, _ := newEngine(t, true)
	if _, err := strict.DefaultInputs(); !errors.Is(err, schema.ErrBasePermutation) {
		t.Errorf("expected ErrBasePermutation, got %v", err)
	}
}

func TestInputsFromStrings(t *testing.T) {
	got, err := resolution.InputsFromStrings([]string{"theme=dark", " density = compact "})
	if err != nil {
		t.Fatal(err)
	}
	if got["theme"] != "dark" || got["density"] != "compact" {
		t.Errorf("InputsFromStrings() = %v", got)
	}
	if _, err := resolution.InputsFromStrings([]string{"theme"}); !errors.Is(err, schema.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
