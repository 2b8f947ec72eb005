/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package config provides build configuration loading.
package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/schema"
)

// Config represents the build configuration.
type Config struct {
	// Resolver is the path or URL of the resolver document.
	Resolver string `yaml:"resolver" json:"resolver"`

	// BuildPath is the directory outputs are written to.
	BuildPath string `yaml:"buildPath" json:"buildPath"`

	// Strict disables first-context fallback and turns $type mismatches into errors.
	Strict bool `yaml:"strict" json:"strict"`

	// Permutations lists the modifier inputs to build. Empty builds every permutation.
	Permutations []map[string]any `yaml:"permutations" json:"permutations"`

	// Outputs are the files to render.
	Outputs []OutputSpec `yaml:"outputs" json:"outputs"`

	// Lint configures the lint stage.
	Lint LintConfig `yaml:"lint" json:"lint"`

	// Filters apply to every output, before the output's own filters.
	Filters []filter.Spec `yaml:"filters" json:"filters"`

	// Transforms apply to every output, before the output's own transforms.
	Transforms []string `yaml:"transforms" json:"transforms"`

	// MaxAliasDepth bounds alias chains (0 uses the resolver default).
	MaxAliasDepth int `yaml:"maxAliasDepth" json:"maxAliasDepth"`

	// Concurrency bounds parallel permutations (0 is unbounded).
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// OutputSpec represents one rendered output.
// It can be specified as a bare renderer name or as an object.
type OutputSpec struct {
	// Name identifies the output in results. Defaults to Renderer.
	Name string `yaml:"name" json:"name"`

	// Renderer names the renderer, e.g. "flatjson".
	Renderer string `yaml:"renderer" json:"renderer"`

	// File is the output path relative to BuildPath. "{permutation}" expands
	// to each permutation key.
	File string `yaml:"file" json:"file"`

	// Filters and Transforms apply to this output only.
	Filters    []filter.Spec `yaml:"filters" json:"filters"`
	Transforms []string      `yaml:"transforms" json:"transforms"`

	// Options are passed to the renderer.
	Options map[string]any `yaml:"options" json:"options"`
}

// UnmarshalYAML handles both string and object forms for OutputSpec.
func (o *OutputSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Renderer = node.Value
		return nil
	}

	type rawOutputSpec OutputSpec
	return node.Decode((*rawOutputSpec)(o))
}

// UnmarshalJSON handles both string and object forms for OutputSpec.
func (o *OutputSpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Renderer = s
		return nil
	}

	type rawOutputSpec OutputSpec
	return json.Unmarshal(data, (*rawOutputSpec)(o))
}

// DisplayName returns Name, falling back to Renderer.
func (o OutputSpec) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Renderer
}

// LintConfig configures the lint stage.
type LintConfig struct {
	// Enabled defaults to true when any rule or preset is configured.
	Enabled *bool `yaml:"enabled" json:"enabled"`

	// FailOnError stops the build on lint errors. Defaults to true.
	FailOnError *bool `yaml:"failOnError" json:"failOnError"`

	// Plugins are plugin names to load. The built-in "tokens" plugin is always available.
	Plugins []string `yaml:"plugins" json:"plugins"`

	// Extends names presets such as "tokens/recommended".
	Extends []string `yaml:"extends" json:"extends"`

	// Rules override preset settings, keyed by "plugin/rule".
	Rules map[string]RuleSetting `yaml:"rules" json:"rules"`

	// Ignore holds token-name globs excluded from linting.
	Ignore []string `yaml:"ignore" json:"ignore"`
}

// IsEnabled reports whether linting runs.
func (l LintConfig) IsEnabled() bool {
	if l.Enabled != nil {
		return *l.Enabled
	}
	return len(l.Extends) > 0 || len(l.Rules) > 0
}

// ShouldFailOnError reports whether lint errors stop the build.
func (l LintConfig) ShouldFailOnError() bool {
	return l.FailOnError == nil || *l.FailOnError
}

// EngineConfig converts the configuration for lint.NewEngine.
func (l LintConfig) EngineConfig() (lint.Config, error) {
	cfg := lint.Config{
		Plugins: l.Plugins,
		Extends: l.Extends,
		Ignore:  l.Ignore,
		Rules:   make(map[string]lint.RuleConfig, len(l.Rules)),
	}
	for id, setting := range l.Rules {
		var severity schema.Severity
		if setting.Severity != "" {
			s, err := lint.ParseSeverity(setting.Severity)
			if err != nil {
				return lint.Config{}, fmt.Errorf("lint rule %s: %w", id, err)
			}
			severity = s
		}
		cfg.Rules[id] = lint.RuleConfig{Severity: severity, Options: setting.Options}
	}
	return cfg, nil
}

// RuleSetting is a rule's severity and options. It can be specified as a
// bare severity ("error", "warn", "off") or as [severity, {options}].
type RuleSetting struct {
	Severity string         `yaml:"severity" json:"severity"`
	Options  map[string]any `yaml:"options" json:"options"`
}

// UnmarshalYAML handles the string, tuple and object forms for RuleSetting.
func (r *RuleSetting) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Severity = node.Value
		return nil
	case yaml.SequenceNode:
		var tuple []any
		if err := node.Decode(&tuple); err != nil {
			return err
		}
		return r.fromTuple(tuple)
	}

	type rawRuleSetting RuleSetting
	return node.Decode((*rawRuleSetting)(r))
}

// UnmarshalJSON handles the string, tuple and object forms for RuleSetting.
func (r *RuleSetting) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Severity = s
		return nil
	}
	var tuple []any
	if err := json.Unmarshal(data, &tuple); err == nil {
		return r.fromTuple(tuple)
	}

	type rawRuleSetting RuleSetting
	return json.Unmarshal(data, (*rawRuleSetting)(r))
}

func (r *RuleSetting) fromTuple(tuple []any) error {
	if len(tuple) == 0 || len(tuple) > 2 {
		return fmt.Errorf("rule setting must be [severity] or [severity, options], got %d items", len(tuple))
	}
	severity, ok := tuple[0].(string)
	if !ok {
		return fmt.Errorf("rule severity must be a string, got %T", tuple[0])
	}
	r.Severity = severity
	if len(tuple) == 2 {
		options, ok := tuple[1].(map[string]any)
		if !ok {
			return fmt.Errorf("rule options must be an object, got %T", tuple[1])
		}
		r.Options = options
	}
	return nil
}

// Default returns a config with default values.
func Default() *Config {
	return &Config{
		BuildPath: "dist",
	}
}
