/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package rules

import (
	"fmt"
	"math"

	"bennypowers.dev/permute/internal/colorval"
	"bennypowers.dev/permute/lint"
)

// ValidColor reports color tokens whose value cannot be parsed.
var ValidColor = &lint.Rule{
	Meta: lint.Meta{
		Name:        "valid-color",
		Description: "Color tokens hold parseable colors",
		Messages:    map[string]string{"invalid": "{{name}} is not a valid color: {{error}}"},
		AppliesTo:   []string{"color"},
	},
	Create: func(ctx *lint.RuleContext) error {
		for _, tok := range ctx.Tokens {
			if _, err := colorval.Parse(tok.Value); err != nil {
				ctx.Report(lint.Descriptor{
					MessageID: "invalid",
					Token:     tok,
					Data:      map[string]any{"name": tok.Name, "error": err.Error()},
				})
			}
		}
		return nil
	},
}

// NoNearDuplicateColors reports colors perceptually indistinguishable from
// an earlier color. Threshold is a CIEDE2000 delta E, where 1 is about the
// smallest difference people notice.
var NoNearDuplicateColors = &lint.Rule{
	Meta: lint.Meta{
		Name:        "no-near-duplicate-colors",
		Description: "Colors are perceptually distinct",
		Messages:    map[string]string{"near": "{{name}} is nearly identical to {{other}} (delta E {{distance}})"},
		AppliesTo:   []string{"color"},
	},
	DefaultOptions: map[string]any{"threshold": 1.0},
	Create: func(ctx *lint.RuleContext) error {
		var opts struct {
			Threshold float64 `mapstructure:"threshold"`
		}
		if err := decodeOptions(ctx, &opts); err != nil {
			return err
		}

		type parsed struct {
			name  string
			color colorval.Value
		}
		var seen []parsed
		for _, tok := range ctx.Tokens {
			if tok.IsAlias {
				continue
			}
			c, err := colorval.Parse(tok.Value)
			if err != nil {
				continue
			}
			for _, other := range seen {
				if math.Abs(other.color.Alpha-c.Alpha) > 0.01 {
					continue
				}
				// go-colorful scales L to [0, 1]; delta E is conventionally on [0, 100].
				d := other.color.Color.DistanceCIEDE2000(c.Color) * 100
				if d <= opts.Threshold {
					ctx.Report(lint.Descriptor{
						MessageID: "near",
						Token:     tok,
						Data:      map[string]any{"name": tok.Name, "other": other.name, "distance": fmt.Sprintf("%.2f", d)},
					})
					break
				}
			}
			seen = append(seen, parsed{tok.Name, c})
		}
		return nil
	},
}
