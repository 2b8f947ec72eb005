/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package transform_test

import (
	"errors"
	"slices"
	"testing"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/token"
	"bennypowers.dev/permute/transform"
)

func TestCaseHelpers(t *testing.T) {
	tests := []struct {
		input                       string
		camel, pascal, snake, kebab string
	}{
		{"color.brand.primary", "colorBrandPrimary", "ColorBrandPrimary", "color_brand_primary", "color-brand-primary"},
		{"color.brandPrimary", "colorBrandPrimary", "ColorBrandPrimary", "color_brand_primary", "color-brand-primary"},
		{"space.inline-sm", "spaceInlineSm", "SpaceInlineSm", "space_inline_sm", "space-inline-sm"},
		{"gray.100", "gray100", "Gray100", "gray_100", "gray-100"},
		{"", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := transform.ToCamelCase(tt.input); got != tt.camel {
				t.Errorf("ToCamelCase(%q) = %q, want %q", tt.input, got, tt.camel)
			}
			if got := transform.ToPascalCase(tt.input); got != tt.pascal {
				t.Errorf("ToPascalCase(%q) = %q, want %q", tt.input, got, tt.pascal)
			}
			if got := transform.ToSnakeCase(tt.input); got != tt.snake {
				t.Errorf("ToSnakeCase(%q) = %q, want %q", tt.input, got, tt.snake)
			}
			if got := transform.ToKebabCase(tt.input); got != tt.kebab {
				t.Errorf("ToKebabCase(%q) = %q, want %q", tt.input, got, tt.kebab)
			}
		})
	}
}

func fixture() token.Table {
	return token.Table{
		"color.brand": {Name: "color.brand", Path: []string{"color", "brand"}, Type: "color", Value: "rgb(255, 0, 0)"},
		"space.sm":    {Name: "space.sm", Path: []string{"space", "sm"}, Type: "dimension", Value: "4px"},
	}
}

func TestApply(t *testing.T) {
	ts, err := transform.LookupAll([]string{"color/hex", "name/kebab"})
	if err != nil {
		t.Fatal(err)
	}
	in := fixture()
	out, err := transform.Apply(in, ts...)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := out.Names(); !slices.Equal(got, []string{"color-brand", "space-sm"}) {
		t.Errorf("names = %v", got)
	}
	if got := out["color-brand"].Value; got != "#ff0000" {
		t.Errorf("color value = %v", got)
	}
	if got := out["space-sm"].Value; got != "4px" {
		t.Errorf("dimension value = %v, want untouched", got)
	}
	if !slices.Equal(out["color-brand"].Path, []string{"color", "brand"}) {
		t.Errorf("path = %v, want the original path", out["color-brand"].Path)
	}
	if in["color.brand"].Value != "rgb(255, 0, 0)" {
		t.Error("input table was modified")
	}
}

func TestApply_OkLch(t *testing.T) {
	ok, _ := transform.Lookup("color/oklch")
	out, err := transform.Apply(token.Table{
		"white": {Name: "white", Path: []string{"white"}, Type: "color", Value: "#fff"},
	}, ok)
	if err != nil {
		t.Fatal(err)
	}
	if got := out["white"].Value; got != "oklch(1 0 0)" {
		t.Errorf("oklch = %v", got)
	}
}

func TestApply_Errors(t *testing.T) {
	hex, _ := transform.Lookup("color/hex")
	_, err := transform.Apply(token.Table{
		"bad": {Name: "bad", Path: []string{"bad"}, Type: "color", Value: "nope"},
	}, hex)
	if !errors.Is(err, schema.ErrValidation) {
		t.Errorf("bad color: error = %v, want Validation", err)
	}

	kebab, _ := transform.Lookup("name/kebab")
	_, err = transform.Apply(token.Table{
		"a.b": {Name: "a.b", Path: []string{"a", "b"}, Value: 1},
		"a-b": {Name: "a-b", Path: []string{"a-b"}, Value: 2},
	}, kebab)
	if !errors.Is(err, schema.ErrValidation) {
		t.Errorf("name clash: error = %v, want Validation", err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := transform.Lookup("name/kebap")
	var serr *schema.Error
	if !errors.As(err, &serr) || !slices.Contains(serr.Suggestions, "name/kebab") {
		t.Errorf("Lookup() error = %v, want suggestion name/kebab", err)
	}
}
