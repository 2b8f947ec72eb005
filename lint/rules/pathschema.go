/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/schema"
)

// SegmentSpec constrains a named segment.
type SegmentSpec struct {
	// Values lists the accepted segment names.
	Values []string `mapstructure:"values"`
	// Pattern is a regular expression the whole segment must match.
	Pattern string `mapstructure:"pattern"`
	// Optional lets a pattern skip the segment.
	Optional bool `mapstructure:"optional"`
}

// Transition allows or denies one segment following another.
type Transition struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	// Type is "allow" or "deny".
	Type string `mapstructure:"type"`
}

// PathSchemaOptions configures tokens/path-schema.
type PathSchemaOptions struct {
	Segments    map[string]SegmentSpec `mapstructure:"segments"`
	Patterns    []string               `mapstructure:"patterns"`
	Transitions []Transition           `mapstructure:"transitions"`
}

// PathSchema checks token paths against patterns such as
// "{category}.{component?}.{state}". A pattern part is a named segment, an
// optional named segment, a literal, "*" for exactly one segment, or "**" for
// any number of segments.
var PathSchema = &lint.Rule{
	Meta: lint.Meta{
		Name:        "path-schema",
		Description: "Token paths follow the declared segment patterns and transitions",
		Messages: map[string]string{
			"mismatch":   "{{name}} does not match any path pattern ({{patterns}})",
			"denied":     "{{name}}: \"{{to}}\" may not follow \"{{from}}\"",
			"notAllowed": "{{name}}: \"{{to}}\" may not follow \"{{from}}\" (allowed: {{allowed}})",
		},
	},
	Create: func(ctx *lint.RuleContext) error {
		var opts PathSchemaOptions
		if err := decodeOptions(ctx, &opts); err != nil {
			return err
		}
		compiled, err := CompilePathSchema(opts)
		if err != nil {
			return err
		}
		for _, tok := range ctx.Tokens {
			if len(compiled.patterns) > 0 && !compiled.Match(tok.Path) {
				ctx.Report(lint.Descriptor{
					MessageID: "mismatch",
					Token:     tok,
					Data: map[string]any{
						"name":     tok.Name,
						"patterns": strings.Join(opts.Patterns, ", "),
					},
				})
			}
			for _, v := range compiled.CheckTransitions(tok.Path) {
				id := "denied"
				if v.Allowed != nil {
					id = "notAllowed"
				}
				ctx.Report(lint.Descriptor{
					MessageID: id,
					Token:     tok,
					Data: map[string]any{
						"name":    tok.Name,
						"from":    v.From,
						"to":      v.To,
						"allowed": strings.Join(v.Allowed, ", "),
					},
				})
			}
		}
		return nil
	},
}

type partKind int

const (
	partLiteral partKind = iota
	partSegment
	partAny
	partAnyDeep
)

type part struct {
	kind     partKind
	literal  string
	optional bool
	values   []string
	re       *regexp.Regexp
}

// CompiledPathSchema is a validated PathSchemaOptions.
type CompiledPathSchema struct {
	patterns [][]part
	deny     map[string][]string
	allow    map[string][]string
}

// CompilePathSchema parses patterns and segment definitions.
func CompilePathSchema(opts PathSchemaOptions) (*CompiledPathSchema, error) {
	segments := make(map[string]part, len(opts.Segments))
	for name, spec := range opts.Segments {
		p := part{kind: partSegment, optional: spec.Optional, values: spec.Values}
		if spec.Pattern != "" {
			re, err := regexp.Compile("^(?:" + spec.Pattern + ")$")
			if err != nil {
				return nil, schema.NewError(schema.ErrConfiguration,
					"path-schema segment %q has an invalid pattern", name).WithCause(err)
			}
			p.re = re
		}
		segments[name] = p
	}

	c := &CompiledPathSchema{
		deny:  make(map[string][]string),
		allow: make(map[string][]string),
	}
	for _, pattern := range opts.Patterns {
		var parts []part
		for _, raw := range strings.Split(pattern, ".") {
			switch {
			case raw == "*":
				parts = append(parts, part{kind: partAny})
			case raw == "**":
				parts = append(parts, part{kind: partAnyDeep})
			case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
				name := strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}")
				optional := strings.HasSuffix(name, "?")
				name = strings.TrimSuffix(name, "?")
				p, ok := segments[name]
				if !ok {
					p = part{kind: partSegment}
				}
				p.optional = p.optional || optional
				parts = append(parts, p)
			case raw == "":
				return nil, schema.NewError(schema.ErrConfiguration,
					"path-schema pattern %q has an empty part", pattern)
			default:
				parts = append(parts, part{kind: partLiteral, literal: raw})
			}
		}
		c.patterns = append(c.patterns, parts)
	}

	for _, t := range opts.Transitions {
		switch t.Type {
		case "deny":
			c.deny[t.From] = append(c.deny[t.From], t.To)
		case "allow", "":
			c.allow[t.From] = append(c.allow[t.From], t.To)
		default:
			return nil, schema.NewError(schema.ErrConfiguration,
				"path-schema transition %s -> %s has type %q, expected allow or deny", t.From, t.To, t.Type)
		}
	}
	return c, nil
}

// Match reports whether path matches at least one pattern.
func (c *CompiledPathSchema) Match(path []string) bool {
	for _, parts := range c.patterns {
		if matchParts(parts, path) {
			return true
		}
	}
	return false
}

// matchParts fills dp[i][j]: the first i path segments can be matched by the
// first j pattern parts. Optional parts and "**" may match nothing.
func matchParts(parts []part, path []string) bool {
	n, m := len(path), len(parts)
	dp := make([][]bool, n+1)
	for i := range dp {
		dp[i] = make([]bool, m+1)
	}
	dp[0][0] = true
	for j := 1; j <= m; j++ {
		p := parts[j-1]
		for i := 0; i <= n; i++ {
			if (p.optional || p.kind == partAnyDeep) && dp[i][j-1] {
				dp[i][j] = true
				continue
			}
			if i == 0 {
				continue
			}
			if dp[i-1][j-1] && p.matches(path[i-1]) {
				dp[i][j] = true
			} else if p.kind == partAnyDeep && dp[i-1][j] {
				dp[i][j] = true
			}
		}
	}
	return dp[n][m]
}

func (p part) matches(segment string) bool {
	switch p.kind {
	case partLiteral:
		return p.literal == segment
	case partAny, partAnyDeep:
		return true
	}
	if len(p.values) > 0 && !slices.Contains(p.values, segment) {
		return false
	}
	if p.re != nil && !p.re.MatchString(segment) {
		return false
	}
	return true
}

// TransitionViolation is an adjacent segment pair rejected by the transitions.
type TransitionViolation struct {
	From, To string
	// Allowed lists the permitted successors when the pair failed an allow list.
	Allowed []string
}

func (v TransitionViolation) String() string {
	return fmt.Sprintf("%s -> %s", v.From, v.To)
}

// CheckTransitions returns the violations among adjacent pairs in path.
// Any matching deny rule is a violation. When allow rules exist for a
// segment, its successor must match at least one of them.
func (c *CompiledPathSchema) CheckTransitions(path []string) []TransitionViolation {
	var out []TransitionViolation
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		if matchAny(c.deny[from], to) || matchAny(c.deny["*"], to) {
			out = append(out, TransitionViolation{From: from, To: to})
			continue
		}
		if allowed, ok := c.allow[from]; ok && !matchAny(allowed, to) {
			out = append(out, TransitionViolation{From: from, To: to, Allowed: allowed})
		}
	}
	return out
}

func matchAny(candidates []string, s string) bool {
	for _, c := range candidates {
		if c == "*" || c == s {
			return true
		}
	}
	return false
}
