/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package lint

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
	"bennypowers.dev/permute/token"
)

// Config selects plugins and rules for an Engine.
type Config struct {
	// Plugins are plugin sources resolved through the Loader.
	Plugins []string
	// Inline plugins are used as given.
	Inline []*Plugin
	// Extends names plugin configs ("plugin/config") applied in order.
	Extends []string
	// Rules override the extended configs, keyed by "plugin/rule".
	Rules map[string]RuleConfig
	// Ignore holds globs over token names. Dots separate segments, so
	// "color.legacy.**" skips everything under color.legacy.
	Ignore []string
}

type configuredRule struct {
	id       string
	rule     *Rule
	severity schema.Severity
	options  map[string]any
}

// Engine runs a fixed set of configured rules.
type Engine struct {
	rules  []configuredRule
	ignore []string
}

// NewEngine loads plugins and resolves the rule configuration.
func NewEngine(cfg Config, loader Loader) (*Engine, error) {
	plugins := make(map[string]*Plugin)
	for _, source := range cfg.Plugins {
		if loader == nil {
			return nil, schema.NewError(schema.ErrConfiguration, "no loader for lint plugin %q", source)
		}
		p, err := loader.Load(source)
		if err != nil {
			return nil, err
		}
		plugins[p.Name] = p
	}
	for _, p := range cfg.Inline {
		if err := checkPlugin(p); err != nil {
			return nil, err
		}
		plugins[p.Name] = p
	}

	known := make(map[string]*Rule)
	for _, p := range plugins {
		for name, rule := range p.Rules {
			known[p.Name+"/"+name] = rule
		}
	}
	ids := slices.Sorted(maps.Keys(known))

	settings := make(map[string]RuleConfig)
	for _, ext := range cfg.Extends {
		preset, err := lookupConfig(plugins, ext)
		if err != nil {
			return nil, err
		}
		for id, rc := range preset {
			settings[id] = overlay(settings[id], rc)
		}
	}
	for id, rc := range cfg.Rules {
		settings[id] = overlay(settings[id], rc)
	}

	for _, pattern := range cfg.Ignore {
		if !doublestar.ValidatePattern(globPath(pattern)) {
			return nil, schema.NewError(schema.ErrConfiguration, "invalid lint ignore pattern %q", pattern)
		}
	}

	e := &Engine{ignore: cfg.Ignore}
	for _, id := range slices.Sorted(maps.Keys(settings)) {
		rule, ok := known[id]
		if !ok {
			return nil, schema.NewError(schema.ErrConfiguration, "unknown lint rule %q", id).
				WithSuggestions(suggest.Suggest(id, ids))
		}
		rc := settings[id]
		if rc.Severity == "" {
			rc.Severity = schema.SeverityError
		}
		if _, err := ParseSeverity(string(rc.Severity)); err != nil {
			return nil, err
		}
		if rc.Severity == schema.SeverityOff {
			continue
		}
		options := maps.Clone(rule.DefaultOptions)
		if options == nil {
			options = make(map[string]any)
		}
		maps.Copy(options, rc.Options)
		e.rules = append(e.rules, configuredRule{id: id, rule: rule, severity: rc.Severity, options: options})
	}
	return e, nil
}

// RuleIDs returns the ids of the rules that will run, sorted.
func (e *Engine) RuleIDs() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.id
	}
	return ids
}

// Run executes all configured rules concurrently. A rule that fails or
// panics contributes a lint/rule-error issue instead of aborting the run.
// Issues are grouped by rule in rule-id order.
func (e *Engine) Run(ctx context.Context, tbl token.Table) (*Result, error) {
	tokens := make([]*token.Token, 0, len(tbl))
	for _, tok := range tbl.Sorted() {
		if !e.ignored(tok.Name) {
			tokens = append(tokens, tok)
		}
	}

	perRule := make([][]Issue, len(e.rules))
	var g errgroup.Group
	for i, cr := range e.rules {
		g.Go(func() error {
			perRule[i] = runRule(ctx, cr, tokens)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Issues: []Issue{}}
	for _, issues := range perRule {
		for _, issue := range issues {
			switch issue.Severity {
			case schema.SeverityError:
				result.ErrorCount++
			case schema.SeverityWarning:
				result.WarningCount++
			}
			result.Issues = append(result.Issues, issue)
		}
	}
	return result, nil
}

func runRule(ctx context.Context, cr configuredRule, tokens []*token.Token) (issues []Issue) {
	rc := &RuleContext{
		RuleID:  cr.id,
		Tokens:  appliesTo(cr.rule.Meta.AppliesTo, tokens),
		Options: maps.Clone(cr.options),
		ctx:     ctx,
		meta:    cr.rule.Meta,
		sev:     cr.severity,
	}
	fail := func(cause any) []Issue {
		return append(rc.issues, Issue{
			RuleID:   RuleErrorID,
			Severity: schema.SeverityError,
			Message:  fmt.Sprintf("rule %s failed: %v", cr.id, cause),
		})
	}
	defer func() {
		if p := recover(); p != nil {
			issues = fail(p)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil
	}
	if err := cr.rule.Create(rc); err != nil {
		return fail(err)
	}
	return rc.issues
}

func appliesTo(types []string, tokens []*token.Token) []*token.Token {
	if len(types) == 0 {
		return tokens
	}
	var out []*token.Token
	for _, tok := range tokens {
		if slices.Contains(types, tok.Type) {
			out = append(out, tok)
		}
	}
	return out
}

func (e *Engine) ignored(name string) bool {
	path := globPath(name)
	for _, pattern := range e.ignore {
		if ok, _ := doublestar.Match(globPath(pattern), path); ok {
			return true
		}
	}
	return false
}

func globPath(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}

func lookupConfig(plugins map[string]*Plugin, ext string) (map[string]RuleConfig, error) {
	pluginName, configName, ok := strings.Cut(ext, "/")
	if !ok {
		return nil, schema.NewError(schema.ErrConfiguration,
			"lint extends %q must have the form plugin/config", ext)
	}
	p, ok := plugins[pluginName]
	if !ok {
		return nil, schema.NewError(schema.ErrConfiguration,
			"lint extends %q names a plugin that is not loaded", ext).
			WithSuggestions(suggest.Suggest(pluginName, slices.Sorted(maps.Keys(plugins))))
	}
	preset, ok := p.Configs[configName]
	if !ok {
		var names []string
		for name := range p.Configs {
			names = append(names, pluginName+"/"+name)
		}
		sort.Strings(names)
		return nil, schema.NewError(schema.ErrConfiguration, "unknown lint config %q", ext).
			WithSuggestions(suggest.Suggest(ext, names))
	}
	return preset, nil
}

// overlay applies rc on top of base. An empty severity keeps base's.
func overlay(base, rc RuleConfig) RuleConfig {
	out := RuleConfig{Severity: base.Severity, Options: maps.Clone(base.Options)}
	if rc.Severity != "" {
		out.Severity = rc.Severity
	}
	if len(rc.Options) > 0 {
		if out.Options == nil {
			out.Options = make(map[string]any)
		}
		maps.Copy(out.Options, rc.Options)
	}
	return out
}
