/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/permute/schema"
)

func TestPathSchema_Match(t *testing.T) {
	tests := []struct {
		name    string
		opts    PathSchemaOptions
		path    string
		matches bool
	}{
		{"optional middle present", PathSchemaOptions{Patterns: []string{"{category}.{component?}.{state}"}}, "color.button.primary", true},
		{"optional middle absent", PathSchemaOptions{Patterns: []string{"{category}.{component?}.{state}"}}, "color.primary", true},
		{"too long", PathSchemaOptions{Patterns: []string{"{category}.{component?}.{state}"}}, "color.button.primary.extra", false},
		{"too short", PathSchemaOptions{Patterns: []string{"{category}.{component?}.{state}"}}, "color", false},
		{
			"two optional middles",
			PathSchemaOptions{Patterns: []string{"{category}.{component?}.{variant?}.{state}"}},
			"color.button.primary", true,
		},
		{
			"optional from segment spec",
			PathSchemaOptions{
				Segments: map[string]SegmentSpec{"scale": {Values: []string{"sm", "md"}, Optional: true}},
				Patterns: []string{"space.{scale}.{side}"},
			},
			"space.inline", true,
		},
		{
			"value set",
			PathSchemaOptions{
				Segments: map[string]SegmentSpec{"category": {Values: []string{"color", "space"}}},
				Patterns: []string{"{category}.*"},
			},
			"size.sm", false,
		},
		{
			"regex",
			PathSchemaOptions{
				Segments: map[string]SegmentSpec{"step": {Pattern: `[0-9]+`}},
				Patterns: []string{"color.gray.{step}"},
			},
			"color.gray.100", true,
		},
		{
			"regex anchored",
			PathSchemaOptions{
				Segments: map[string]SegmentSpec{"step": {Pattern: `[0-9]+`}},
				Patterns: []string{"color.gray.{step}"},
			},
			"color.gray.100a", false,
		},
		{"literal mismatch", PathSchemaOptions{Patterns: []string{"color.*"}}, "space.sm", false},
		{"double star empty", PathSchemaOptions{Patterns: []string{"color.**.base"}}, "color.base", true},
		{"double star deep", PathSchemaOptions{Patterns: []string{"color.**.base"}}, "color.a.b.c.base", true},
		{"second pattern", PathSchemaOptions{Patterns: []string{"space.*", "color.*"}}, "color.red", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CompilePathSchema(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.matches, c.Match(strings.Split(tt.path, ".")))
		})
	}
}

func TestPathSchema_Transitions(t *testing.T) {
	c, err := CompilePathSchema(PathSchemaOptions{
		Transitions: []Transition{
			{From: "color", To: "spacing", Type: "deny"},
			{From: "button", To: "primary", Type: "allow"},
			{From: "button", To: "secondary", Type: "allow"},
		},
	})
	require.NoError(t, err)

	assert.Empty(t, c.CheckTransitions([]string{"color", "button", "primary"}))
	assert.Empty(t, c.CheckTransitions([]string{"color", "button", "secondary"}), "any allow rule suffices")

	denied := c.CheckTransitions([]string{"color", "spacing"})
	require.Len(t, denied, 1)
	assert.Nil(t, denied[0].Allowed)

	notAllowed := c.CheckTransitions([]string{"color", "button", "tertiary"})
	require.Len(t, notAllowed, 1)
	assert.Equal(t, "button", notAllowed[0].From)
	assert.Equal(t, []string{"primary", "secondary"}, notAllowed[0].Allowed)
}

func TestCompilePathSchema_Errors(t *testing.T) {
	for name, opts := range map[string]PathSchemaOptions{
		"bad regex":       {Segments: map[string]SegmentSpec{"x": {Pattern: "("}}},
		"empty part":      {Patterns: []string{"color..base"}},
		"transition type": {Transitions: []Transition{{From: "a", To: "b", Type: "maybe"}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CompilePathSchema(opts)
			assert.ErrorIs(t, err, schema.ErrConfiguration)
		})
	}
}
