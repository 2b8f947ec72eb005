/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package validator_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/permute/parser"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/validator"
)

func decode(t *testing.T, data string) map[string]any {
	t.Helper()
	doc, err := parser.DecodeObject([]byte(data))
	if err != nil {
		t.Fatalf("DecodeObject() error = %v", err)
	}
	return doc
}

const validResolver = `{
  "version": "2025.10",
  "sets": {
    "core": { "sources": [{ "$ref": "core.json" }] }
  },
  "modifiers": {
    "theme": {
      "default": "light",
      "contexts": {
        "light": [{ "$ref": "light.json" }],
        "dark": [{ "color": { "bg": { "$value": "#000" } } }]
      }
    }
  },
  "resolutionOrder": [
    { "$ref": "#/sets/core" },
    { "$ref": "#/modifiers/theme" },
    { "name": "overrides", "sources": [] }
  ]
}`

func TestValidateDocument_Valid(t *testing.T) {
	errs := validator.ValidateDocument(decode(t, validResolver), "resolver.json")
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateDocument_Findings(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantPath    string
		wantMessage string
		wantSuggest string
	}{
		{
			name:        "missing version",
			doc:         `{"resolutionOrder": []}`,
			wantPath:    "version",
			wantMessage: "missing required field",
		},
		{
			name:        "unsupported version",
			doc:         `{"version": "2024.1", "resolutionOrder": []}`,
			wantPath:    "version",
			wantMessage: "unrecognized resolver version",
			wantSuggest: "2025.10",
		},
		{
			name:        "set without sources",
			doc:         `{"version": "2025.10", "sets": {"core": {}}, "resolutionOrder": []}`,
			wantPath:    "sets.core.sources",
			wantMessage: "must be an array",
		},
		{
			name:        "modifier without contexts",
			doc:         `{"version": "2025.10", "modifiers": {"theme": {"contexts": {}}}, "resolutionOrder": []}`,
			wantPath:    "modifiers.theme.contexts",
			wantMessage: "at least one context",
		},
		{
			name: "bad default",
			doc: `{"version": "2025.10",
			  "modifiers": {"theme": {"default": "lihgt", "contexts": {"light": [], "dark": []}}},
			  "resolutionOrder": []}`,
			wantPath:    "modifiers.theme.default",
			wantMessage: "not a declared context",
			wantSuggest: "light",
		},
		{
			name: "undefined set reference",
			doc: `{"version": "2025.10", "sets": {"core": {"sources": []}},
			  "resolutionOrder": [{"$ref": "#/sets/cor"}]}`,
			wantPath:    "resolutionOrder[0].$ref",
			wantMessage: "undefined set",
			wantSuggest: "core",
		},
		{
			name:        "reference outside sets and modifiers",
			doc:         `{"version": "2025.10", "resolutionOrder": [{"$ref": "#/foo/bar"}]}`,
			wantPath:    "resolutionOrder[0].$ref",
			wantMessage: "must point to",
		},
		{
			name:        "shapeless entry",
			doc:         `{"version": "2025.10", "resolutionOrder": [{"name": "x"}]}`,
			wantPath:    "resolutionOrder[0]",
			wantMessage: "inline modifier",
		},
		{
			name:        "missing resolution order",
			doc:         `{"version": "2025.10"}`,
			wantPath:    "resolutionOrder",
			wantMessage: "must be an array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidateDocument(decode(t, tt.doc), "resolver.json")
			idx := slices.IndexFunc(errs, func(e validator.ValidationError) bool {
				return e.Path == tt.wantPath
			})
			if idx < 0 {
				t.Fatalf("expected finding at %q, got %v", tt.wantPath, errs)
			}
			found := errs[idx]
			if !strings.Contains(found.Message, tt.wantMessage) {
				t.Errorf("message = %q, want it to contain %q", found.Message, tt.wantMessage)
			}
			if tt.wantSuggest != "" && !slices.Contains(found.Suggestions, tt.wantSuggest) {
				t.Errorf("suggestions = %v, want %q", found.Suggestions, tt.wantSuggest)
			}
			if found.FilePath != "resolver.json" {
				t.Errorf("FilePath = %q", found.FilePath)
			}
		})
	}
}

func TestAsError(t *testing.T) {
	if err := validator.AsError(nil, "r.json"); err != nil {
		t.Errorf("AsError(nil) = %v, want nil", err)
	}

	errs := validator.ValidateDocument(decode(t, `{"resolutionOrder": [{"$ref": "#/sets/x"}]}`), "r.json")
	err := validator.AsError(errs, "r.json")
	if !errors.Is(err, schema.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "version") || !strings.Contains(err.Error(), "resolutionOrder[0]") {
		t.Errorf("expected every finding in the message, got %q", err.Error())
	}
}

func TestSplitOrderRef(t *testing.T) {
	tests := []struct {
		ref      string
		wantKind string
		wantName string
		wantOK   bool
	}{
		{"#/sets/core", "sets", "core", true},
		{"#/modifiers/theme", "modifiers", "theme", true},
		{"#/sets/a~1b", "sets", "a/b", true},
		{"#/sets/", "", "", false},
		{"#/tokens/core", "", "", false},
		{"core.json", "", "", false},
		{"#/sets/core/sources", "", "", false},
	}
	for _, tt := range tests {
		kind, name, ok := validator.SplitOrderRef(tt.ref)
		if kind != tt.wantKind || name != tt.wantName || ok != tt.wantOK {
			t.Errorf("SplitOrderRef(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.ref, kind, name, ok, tt.wantKind, tt.wantName, tt.wantOK)
		}
	}
}
