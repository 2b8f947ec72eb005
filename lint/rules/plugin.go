/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package rules provides the built-in "tokens" lint plugin.
package rules

import (
	"github.com/go-viper/mapstructure/v2"

	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/schema"
)

// PluginName is the namespace of the built-in rules.
const PluginName = "tokens"

// Plugin returns the built-in plugin with its recommended and strict configs.
func Plugin() *lint.Plugin {
	return &lint.Plugin{
		Name: PluginName,
		Rules: map[string]*lint.Rule{
			"path-schema":              PathSchema,
			"require-description":      RequireDescription,
			"require-type":             RequireType,
			"naming-convention":        NamingConvention,
			"no-duplicate-values":      NoDuplicateValues,
			"valid-color":              ValidColor,
			"no-near-duplicate-colors": NoNearDuplicateColors,
			"no-deprecated-alias":      NoDeprecatedAlias,
		},
		Configs: map[string]map[string]lint.RuleConfig{
			"recommended": {
				"tokens/valid-color":         {Severity: schema.SeverityError},
				"tokens/require-type":        {Severity: schema.SeverityWarning},
				"tokens/no-duplicate-values": {Severity: schema.SeverityWarning},
				"tokens/no-deprecated-alias": {Severity: schema.SeverityWarning},
			},
			"strict": {
				"tokens/valid-color":              {Severity: schema.SeverityError},
				"tokens/require-type":             {Severity: schema.SeverityError},
				"tokens/no-duplicate-values":      {Severity: schema.SeverityError},
				"tokens/no-deprecated-alias":      {Severity: schema.SeverityError},
				"tokens/require-description":      {Severity: schema.SeverityError},
				"tokens/naming-convention":        {Severity: schema.SeverityError},
				"tokens/no-near-duplicate-colors": {Severity: schema.SeverityWarning},
			},
		},
	}
}

// decodeOptions decodes rule options into out, rejecting unknown keys.
func decodeOptions(ctx *lint.RuleContext, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(ctx.Options); err != nil {
		return schema.NewError(schema.ErrConfiguration, "invalid options for %s", ctx.RuleID).WithCause(err)
	}
	return nil
}
