/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package rules

import (
	"encoding/json"
	"regexp"
	"strings"

	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/resolver"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/token"
)

// RequireDescription reports tokens without a $description.
var RequireDescription = &lint.Rule{
	Meta: lint.Meta{
		Name:        "require-description",
		Description: "Every token has a $description",
		Messages:    map[string]string{"missing": "{{name}} has no $description"},
	},
	Create: func(ctx *lint.RuleContext) error {
		for _, tok := range ctx.Tokens {
			if strings.TrimSpace(tok.Description) == "" {
				ctx.Report(lint.Descriptor{MessageID: "missing", Token: tok, Data: map[string]any{"name": tok.Name}})
			}
		}
		return nil
	},
}

// RequireType reports tokens with neither a declared nor an inherited $type.
var RequireType = &lint.Rule{
	Meta: lint.Meta{
		Name:        "require-type",
		Description: "Every token has a $type",
		Messages:    map[string]string{"missing": "{{name}} has no $type"},
	},
	Create: func(ctx *lint.RuleContext) error {
		for _, tok := range ctx.Tokens {
			if tok.Type == "" {
				ctx.Report(lint.Descriptor{MessageID: "missing", Token: tok, Data: map[string]any{"name": tok.Name}})
			}
		}
		return nil
	},
}

var namingStyles = map[string]*regexp.Regexp{
	"kebab-case": regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`),
	"camelCase":  regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`),
	"snake_case": regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`),
	"PascalCase": regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`),
}

var numericSegment = regexp.MustCompile(`^[0-9]+$`)

// NamingConvention checks every path segment against a case style.
var NamingConvention = &lint.Rule{
	Meta: lint.Meta{
		Name:        "naming-convention",
		Description: "Path segments use one case style",
		Messages:    map[string]string{"style": "{{name}}: segment \"{{segment}}\" is not {{style}}"},
	},
	DefaultOptions: map[string]any{"style": "kebab-case"},
	Create: func(ctx *lint.RuleContext) error {
		var opts struct {
			Style string `mapstructure:"style"`
		}
		if err := decodeOptions(ctx, &opts); err != nil {
			return err
		}
		re, ok := namingStyles[opts.Style]
		if !ok {
			return schema.NewError(schema.ErrConfiguration,
				"naming-convention style %q must be kebab-case, camelCase, snake_case or PascalCase", opts.Style)
		}
		for _, tok := range ctx.Tokens {
			for _, segment := range tok.Path {
				if numericSegment.MatchString(segment) || re.MatchString(segment) {
					continue
				}
				ctx.Report(lint.Descriptor{
					MessageID: "style",
					Token:     tok,
					Data:      map[string]any{"name": tok.Name, "segment": segment, "style": opts.Style},
				})
				break
			}
		}
		return nil
	},
}

// NoDuplicateValues reports non-alias tokens that repeat the value of an
// earlier token of the same type. Such tokens should alias the first one.
var NoDuplicateValues = &lint.Rule{
	Meta: lint.Meta{
		Name:        "no-duplicate-values",
		Description: "Tokens with identical values alias one another",
		Messages:    map[string]string{"duplicate": "{{name}} has the same value as {{original}}, consider {{alias}}"},
	},
	Create: func(ctx *lint.RuleContext) error {
		seen := make(map[string]string)
		for _, tok := range ctx.Tokens {
			if tok.IsAlias {
				continue
			}
			// json.Marshal sorts map keys, so equal composites encode equally.
			b, err := json.Marshal(tok.Value)
			if err != nil {
				continue
			}
			key := tok.Type + "\x00" + string(b)
			original, dup := seen[key]
			if !dup {
				seen[key] = tok.Name
				continue
			}
			ctx.Report(lint.Descriptor{
				MessageID: "duplicate",
				Token:     tok,
				Data:      map[string]any{"name": tok.Name, "original": original, "alias": "{" + original + "}"},
			})
		}
		return nil
	},
}

// NoDeprecatedAlias reports tokens that reference a deprecated token.
var NoDeprecatedAlias = &lint.Rule{
	Meta: lint.Meta{
		Name:        "no-deprecated-alias",
		Description: "Tokens do not reference deprecated tokens",
		Messages: map[string]string{
			"deprecated": "{{name}} references deprecated token {{target}}",
			"reason":     "{{name}} references deprecated token {{target}}: {{reason}}",
		},
	},
	Create: func(ctx *lint.RuleContext) error {
		tbl := make(token.Table, len(ctx.Tokens))
		for _, tok := range ctx.Tokens {
			tbl[tok.Name] = tok
		}
		graph := resolver.BuildDependencyGraph(tbl)
		for _, tok := range ctx.Tokens {
			if tok.Deprecated {
				continue
			}
			for _, dep := range graph.Dependencies(tok.Name) {
				target := tbl[dep]
				if !target.Deprecated {
					continue
				}
				id := "deprecated"
				if target.DeprecationMessage != "" {
					id = "reason"
				}
				ctx.Report(lint.Descriptor{
					MessageID: id,
					Token:     tok,
					Data:      map[string]any{"name": tok.Name, "target": dep, "reason": target.DeprecationMessage},
				})
			}
		}
		return nil
	},
}
