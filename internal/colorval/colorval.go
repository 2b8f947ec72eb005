/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package colorval parses DTCG color values: CSS color strings and
// structured colors with a colorSpace and components.
package colorval

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

// Value is a parsed color with straight alpha.
type Value struct {
	Color colorful.Color
	Alpha float64
}

// Spaces lists the structured color spaces Parse understands.
var Spaces = []string{"srgb", "srgb-linear", "hsl", "oklab", "oklch"}

// Parse reads a color token value.
func Parse(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		c, err := csscolorparser.Parse(x)
		if err != nil {
			return Value{}, err
		}
		return Value{Color: colorful.Color{R: c.R, G: c.G, B: c.B}, Alpha: c.A}, nil
	case map[string]any:
		return parseStructured(x)
	default:
		return Value{}, fmt.Errorf("color value must be a string or object, got %T", v)
	}
}

func parseStructured(m map[string]any) (Value, error) {
	space, _ := m["colorSpace"].(string)
	raw, ok := m["components"].([]any)
	if !ok || len(raw) != 3 {
		if hex, isHex := m["hex"].(string); isHex {
			return Parse(hex)
		}
		return Value{}, fmt.Errorf("structured color needs three components")
	}
	comps := make([]float64, 3)
	for i, c := range raw {
		switch n := c.(type) {
		case float64:
			comps[i] = n
		case int:
			comps[i] = float64(n)
		case string:
			if n != "none" {
				return Value{}, fmt.Errorf("component %d: %q is not a number", i, n)
			}
		default:
			return Value{}, fmt.Errorf("component %d: %T is not a number", i, c)
		}
	}
	alpha := 1.0
	switch a := m["alpha"].(type) {
	case float64:
		alpha = a
	case int:
		alpha = float64(a)
	}
	if alpha < 0 || alpha > 1 {
		return Value{}, fmt.Errorf("alpha %v out of range [0, 1]", alpha)
	}

	var c colorful.Color
	switch strings.ToLower(space) {
	case "srgb":
		c = colorful.Color{R: comps[0], G: comps[1], B: comps[2]}
	case "srgb-linear":
		c = colorful.LinearRgb(comps[0], comps[1], comps[2])
	case "hsl":
		c = colorful.Hsl(comps[0], comps[1]/100, comps[2]/100)
	case "oklab":
		c = colorful.OkLab(comps[0], comps[1], comps[2])
	case "oklch":
		c = colorful.OkLch(comps[0], comps[1], comps[2])
	default:
		return Value{}, fmt.Errorf("unsupported colorSpace %q", space)
	}
	for _, ch := range []float64{c.R, c.G, c.B} {
		if math.IsNaN(ch) {
			return Value{}, fmt.Errorf("components %v are not a color", comps)
		}
	}
	return Value{Color: c, Alpha: alpha}, nil
}

// Hex formats v as #rrggbb, or #rrggbbaa when not opaque.
func (v Value) Hex() string {
	hex := v.Color.Clamped().Hex()
	if v.Alpha >= 1 {
		return hex
	}
	return fmt.Sprintf("%s%02x", hex, uint8(math.Round(v.Alpha*255)))
}

// OkLch formats v as a CSS oklch() color.
func (v Value) OkLch() string {
	l, c, h := v.Color.OkLch()
	// go-colorful leaves about 1e-4 of chroma on neutral colors.
	if c < 5e-4 {
		c, h = 0, 0
	}
	if v.Alpha >= 1 {
		return fmt.Sprintf("oklch(%.4g %.4g %.4g)", l, c, h)
	}
	return fmt.Sprintf("oklch(%.4g %.4g %.4g / %.4g)", l, c, h, v.Alpha)
}

// InGamut reports whether v is displayable in sRGB.
func (v Value) InGamut() bool {
	return v.Color.IsValid()
}
