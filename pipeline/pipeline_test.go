/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/internal/mapfs"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/lint/rules"
	"bennypowers.dev/permute/load"
	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/testutil"
	"bennypowers.dev/permute/transform"
)

const resolverYAML = `
version: "2025.10"
sets:
  core:
    sources:
      - $ref: core.json
modifiers:
  theme:
    default: light
    contexts:
      light:
        - $ref: light.json
      dark:
        - $ref: dark.json
  density:
    default: comfortable
    contexts:
      compact:
        - space: { gap: { $type: dimension, $value: 4px } }
      comfortable: []
      spacious:
        - space: { gap: { $type: dimension, $value: 16px } }
resolutionOrder:
  - $ref: "#/sets/core"
  - $ref: "#/modifiers/theme"
  - $ref: "#/modifiers/density"
`

var files = map[string]string{
	"/p/resolver.yaml": resolverYAML,
	"/p/core.json": `{
	  "color": {
	    "$type": "color",
	    "base": { "red": { "$value": "#f00" } },
	    "action": { "brand": {
	      "$root": { "$value": "{color.base.red}" },
	      "hover": { "$value": "#c00" }
	    } },
	    "link": { "$value": "{color.action.brand.$root}" },
	    "bg": { "$value": "#fff" }
	  },
	  "space": { "gap": { "$type": "dimension", "$value": "8px" } },
	  "border": { "$value": "{space.gap} solid {color.action.brand}" },
	  "palette": {
	    "$extends": "#/color/base",
	    "accent": { "$type": "color", "$value": "#0f0" }
	  }
	}`,
	"/p/light.json": `{ "color": { "bg": { "$value": "#fafafa" } } }`,
	"/p/dark.json":  `{ "color": { "bg": { "$value": "#111" } } }`,
}

func engine(t *testing.T, fixture map[string]string, location string) (*resolution.Engine, *mapfs.MapFileSystem) {
	t.Helper()
	return engineWith(t, fixture, location, false)
}

func engineWith(t *testing.T, fixture map[string]string, location string, strict bool) (*resolution.Engine, *mapfs.MapFileSystem) {
	t.Helper()
	testutil.Quiet(t)
	mfs := testutil.NewMapFS(t, fixture)
	e, err := load.Engine(context.Background(), location, load.Options{Root: "/p", FS: mfs, Strict: strict})
	require.NoError(t, err)
	return e, mfs
}

func TestStages(t *testing.T) {
	ctx := context.Background()
	e, mfs := engine(t, files, "resolver.yaml")

	raw, err := pipeline.Load(e.Document()).Engine(resolution.Options{FS: mfs}).Resolve(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, resolution.Inputs{"theme": "light", "density": "comfortable"}, raw.Inputs())

	pre, err := raw.Preprocess(ctx)
	require.NoError(t, err)
	resolved, err := pre.ResolveReferences(ctx)
	require.NoError(t, err)

	flat := resolved.Flatten()
	assert.Contains(t, flat.Tokens, "color.action.brand.$root", "$root stays keyed by full path until stripped")

	stripped := flat.ResolveAliases(0).StripRoot()
	tokens := stripped.Tokens
	for name := range tokens {
		assert.NotContains(t, name, "$root")
	}

	brand := tokens["color.action.brand"]
	require.NotNil(t, brand)
	assert.Equal(t, "#f00", brand.Value)
	assert.Equal(t, []string{"color", "action", "brand"}, brand.Path)
	assert.Equal(t, "color", brand.Type)
	assert.Contains(t, tokens, "color.action.brand.hover")

	link := tokens["color.link"]
	assert.Equal(t, "#f00", link.Value)
	assert.Equal(t, "{color.action.brand}", link.OriginalValue)

	assert.Equal(t, "8px solid #f00", tokens["border"].Value)
	assert.Equal(t, "#f00", tokens["palette.red"].Value, "$extends copies the base group")
	assert.Equal(t, "#0f0", tokens["palette.accent"].Value)

	assert.Equal(t, "#fafafa", tokens["color.bg"].Value)
	assert.Equal(t, "theme-light", tokens["color.bg"].SourceModifier)
	assert.Equal(t, "core", tokens["color.link"].SourceSet)

	linted, err := stripped.Lint(ctx, nil, true)
	require.NoError(t, err)
	assert.Nil(t, linted.Lint)

	final, err := linted.Filter(filter.ByType("color")).Transform()
	require.NoError(t, err)
	p := final.Permutation()
	assert.Equal(t, "light-comfortable", p.Key)
	assert.NotContains(t, p.Tokens, "space.gap")
	assert.Empty(t, p.Issues)
}

func TestRunner_RunAll(t *testing.T) {
	e, mfs := engine(t, files, "resolver.yaml")
	r := pipeline.NewRunner(e, pipeline.Options{Concurrency: 2})

	perms := e.GeneratePermutations()
	require.Len(t, perms, 6)

	results, err := r.RunAll(context.Background(), perms)
	require.NoError(t, err)
	require.Len(t, results, len(perms))

	for i, p := range results {
		assert.Equal(t, perms[i], p.Inputs, "results keep permutation order")
	}

	last := results[len(results)-1]
	assert.Equal(t, "dark-spacious", last.Key)
	assert.Equal(t, "#111", last.Tokens["color.bg"].Value)
	assert.Equal(t, "16px", last.Tokens["space.gap"].Value)
	assert.Equal(t, "16px solid #f00", last.Tokens["border"].Value)

	first := results[0]
	assert.Equal(t, "light-compact", first.Key)
	assert.Equal(t, "4px", first.Tokens["space.gap"].Value)

	assert.Equal(t, 1, mfs.ReadCount("/p/core.json"), "sources are read once across permutations")
	assert.Equal(t, 1, mfs.ReadCount("/p/dark.json"))
}

func TestRunner_FiltersAndTransforms(t *testing.T) {
	e, _ := engine(t, files, "resolver.yaml")
	ts, err := transform.LookupAll([]string{"name/kebab", "color/hex"})
	require.NoError(t, err)

	r := pipeline.NewRunner(e, pipeline.Options{
		Filters:    []filter.Filter{filter.ByType("color")},
		Transforms: ts,
	})
	p, err := r.Run(context.Background(), map[string]any{"theme": "dark"})
	require.NoError(t, err)

	assert.Equal(t, "dark-comfortable", p.Key)
	require.Contains(t, p.Tokens, "color-bg")
	assert.Equal(t, "#111111", p.Tokens["color-bg"].Value)
	assert.Equal(t, "#ff0000", p.Tokens["color-action-brand"].Value)
	assert.NotContains(t, p.Tokens, "border")
}

func TestRunner_UnknownInput(t *testing.T) {
	e, _ := engine(t, files, "resolver.yaml")
	_, err := pipeline.NewRunner(e, pipeline.Options{}).Run(context.Background(), map[string]any{"theme": "drak"})
	require.ErrorIs(t, err, schema.ErrModifier)
}

func TestPreprocess(t *testing.T) {
	e, _ := engine(t, files, "resolver.yaml")

	add := pipeline.PreprocessFunc(func(_ context.Context, tree map[string]any) (map[string]any, error) {
		tree["extra"] = map[string]any{"$type": "number", "$value": 1}
		return tree, nil
	})
	p, err := pipeline.NewRunner(e, pipeline.Options{Preprocessors: []pipeline.Preprocessor{add}}).
		Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, p.Tokens, "extra")

	broken := pipeline.PreprocessFunc(func(context.Context, map[string]any) (map[string]any, error) {
		return nil, errors.New("nope")
	})
	_, err = pipeline.NewRunner(e, pipeline.Options{Preprocessors: []pipeline.Preprocessor{broken}}).
		Run(context.Background(), nil)
	require.ErrorIs(t, err, schema.ErrValidation)
}

func TestResolveReferences_Downgraded(t *testing.T) {
	fixture := map[string]string{
		"/p/resolver.yaml": `
version: "2025.10"
resolutionOrder:
  - name: base
    sources:
      - $ref: tokens.json
`,
		"/p/tokens.json": `{
		  "a": { "$value": 1 },
		  "b": { "$ref": "missing.json#/x" }
		}`,
	}
	e, _ := engine(t, fixture, "resolver.yaml")

	p, err := pipeline.NewRunner(e, pipeline.Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "default", p.Key)
	assert.Equal(t, float64(1), p.Tokens["a"].Value)

	require.NotEmpty(t, p.Issues)
	var found bool
	for _, issue := range p.Issues {
		if errors.Is(issue, schema.ErrFileOperation) {
			found = true
			assert.True(t, issue.IsWarning())
		}
	}
	assert.True(t, found, "missing file becomes a warning, got %v", p.Issues)
}

func TestFlatten_BrokenExtends(t *testing.T) {
	fixture := map[string]string{
		"/p/resolver.yaml": `
version: "2025.10"
resolutionOrder:
  - name: base
    sources:
      - a: { $extends: "#/nowhere", x: { $value: 1 } }
`,
	}
	e, _ := engine(t, fixture, "resolver.yaml")
	logs := testutil.CaptureLogs(t)

	p, err := pipeline.NewRunner(e, pipeline.Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, p.Tokens, "a.x")
	require.Len(t, p.Issues, 1)
	assert.ErrorIs(t, p.Issues[0], schema.ErrTokenReference)
	assert.True(t, p.Issues[0].IsWarning())
	assert.Contains(t, logs.String(), "skipping $extends")
}

func TestLint(t *testing.T) {
	fixture := map[string]string{
		"/p/resolver.yaml": `
version: "2025.10"
resolutionOrder:
  - name: base
    sources:
      - color:
          $type: color
          ok: { $value: "#fff" }
          bad: { $value: "not-a-color" }
`,
	}
	e, _ := engine(t, fixture, "resolver.yaml")

	linter, err := lint.NewEngine(lint.Config{
		Plugins: []string{rules.PluginName},
		Extends: []string{rules.PluginName + "/recommended"},
	}, lint.NewRegistry(rules.Plugin()))
	require.NoError(t, err)

	_, err = pipeline.NewRunner(e, pipeline.Options{Lint: linter, FailOnError: true}).Run(context.Background(), nil)
	require.ErrorIs(t, err, schema.ErrLint)
	assert.Contains(t, err.Error(), "lint error")

	p, err := pipeline.NewRunner(e, pipeline.Options{Lint: linter}).Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, p.Lint)
	assert.Equal(t, 1, p.Lint.ErrorCount)
	assert.Equal(t, "color.bad", p.Lint.Issues[0].TokenName)
	assert.True(t, strings.HasPrefix(p.Lint.Issues[0].RuleID, rules.PluginName+"/"))
}

func TestRunAll_CycleStaysInItsPermutation(t *testing.T) {
	fixture := map[string]string{
		"/p/resolver.yaml": `
version: "2025.10"
sets:
  core:
    sources:
      - $ref: shared.json
modifiers:
  theme:
    contexts:
      light: []
      dark:
        - $ref: loop.json
resolutionOrder:
  - $ref: "#/sets/core"
  - $ref: "#/modifiers/theme"
`,
		"/p/shared.json": `{ "size": { "$value": "1rem" }, "gap": { "$ref": "#/size" } }`,
		"/p/loop.json":   `{ "loop": { "a": { "$ref": "#/loop/b" }, "b": { "$ref": "#/loop/a" } } }`,
	}
	e, mfs := engine(t, fixture, "resolver.yaml")

	var perms []resolution.Inputs
	for range 4 {
		perms = append(perms, e.GeneratePermutations()...)
	}
	results, err := pipeline.NewRunner(e, pipeline.Options{}).RunAll(context.Background(), perms)
	require.NoError(t, err)

	for _, p := range results {
		var cycles int
		for _, issue := range p.Issues {
			if errors.Is(issue, schema.ErrCircularReference) {
				cycles++
			}
		}
		if p.Key == "dark" {
			assert.Equal(t, 1, cycles, "dark: %v", p.Issues)
			continue
		}
		assert.Zero(t, cycles, "light must not see dark's cycle: %v", p.Issues)
		assert.Equal(t, "1rem", p.Tokens["gap"].Value, "a revisited $ref is not a cycle")
	}
	assert.Equal(t, 1, mfs.ReadCount("/p/shared.json"))
}

func TestResolveReferences_Strict(t *testing.T) {
	mismatch := map[string]string{
		"/p/resolver.yaml": `
version: "2025.10"
resolutionOrder:
  - name: base
    sources:
      - $ref: tokens.json
`,
		"/p/tokens.json": `{
		  "size": { "$type": "dimension", "$value": "4px" },
		  "base": { "$type": "color", "$value": "#fff" },
		  "ok": { "$ref": "#/size" },
		  "bad": { "$ref": "#/base", "$type": "dimension" }
		}`,
	}

	t.Run("type mismatch warns outside strict mode", func(t *testing.T) {
		e, _ := engineWith(t, mismatch, "resolver.yaml", false)
		p, err := pipeline.NewRunner(e, pipeline.Options{}).Run(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "4px", p.Tokens["ok"].Value)
		require.Len(t, p.Issues, 1)
		assert.ErrorIs(t, p.Issues[0], schema.ErrValidation)
		assert.True(t, p.Issues[0].IsWarning())
	})

	t.Run("type mismatch fails in strict mode", func(t *testing.T) {
		e, _ := engineWith(t, mismatch, "resolver.yaml", true)
		_, err := pipeline.NewRunner(e, pipeline.Options{}).Run(context.Background(), nil)
		require.ErrorIs(t, err, schema.ErrValidation)
		assert.Contains(t, err.Error(), "bad")
	})

	t.Run("cycle fails in strict mode", func(t *testing.T) {
		e, _ := engineWith(t, map[string]string{
			"/p/resolver.yaml": mismatch["/p/resolver.yaml"],
			"/p/tokens.json":   `{ "a": { "$ref": "#/b" }, "b": { "$ref": "#/a" } }`,
		}, "resolver.yaml", true)
		_, err := pipeline.NewRunner(e, pipeline.Options{}).Run(context.Background(), nil)
		require.ErrorIs(t, err, schema.ErrCircularReference)
	})
}
