/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package build_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/permute/build"
	"bennypowers.dev/permute/config"
	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/internal/mapfs"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/lint/rules"
	"bennypowers.dev/permute/load"
	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/render"
	"bennypowers.dev/permute/render/flatjson"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/testutil"
)

var files = map[string]string{
	"/p/resolver.json": `{
	  "version": "2025.10",
	  "sets": { "core": { "sources": [ { "$ref": "core.json" } ] } },
	  "modifiers": {
	    "theme": {
	      "default": "light",
	      "contexts": {
	        "light": [],
	        "dark": [ { "color": { "bg": { "$value": "#000" } } } ]
	      }
	    }
	  },
	  "resolutionOrder": [ { "$ref": "#/sets/core" }, { "$ref": "#/modifiers/theme" } ]
	}`,
	"/p/core.json": `{
	  "color": {
	    "$type": "color",
	    "bg": { "$value": "#fff" },
	    "fg": { "$value": "{color.bg}" }
	  },
	  "space": { "sm": { "$type": "dimension", "$value": "4px" } }
	}`,
}

// stub renders a fixed file, or fails the way it is told to.
type stub struct {
	name   string
	err    error
	panics bool
}

func (s stub) Name() string { return s.name }

func (s stub) Render(_ context.Context, rc *render.Context) ([]render.File, error) {
	if s.panics {
		panic("renderer bug")
	}
	if s.err != nil {
		return nil, s.err
	}
	return []render.File{{Path: rc.Output.Name + ".txt", Content: []byte(rc.Base().Key)}}, nil
}

func builder(t *testing.T, outputs ...build.Output) (*build.Builder, *mapfs.MapFileSystem) {
	t.Helper()
	testutil.Quiet(t)
	mfs := testutil.NewMapFS(t, files)
	engine, err := load.Engine(context.Background(), "resolver.json", load.Options{Root: "/p", FS: mfs})
	require.NoError(t, err)

	return &build.Builder{
		Runner: pipeline.NewRunner(engine, pipeline.Options{}),
		Renderers: render.NewRegistry(
			flatjson.New(),
			stub{name: "ok"},
			stub{name: "broken", err: errors.New("cannot render")},
			stub{name: "panics", panics: true},
		),
		Outputs:   outputs,
		FS:        mfs,
		BuildPath: "/p/dist",
	}, mfs
}

func output(name, renderer string) build.Output {
	return build.Output{Output: render.Output{Name: name, Renderer: renderer}}
}

func TestBuild(t *testing.T) {
	b, fsys := builder(t, build.Output{Output: render.Output{
		Name:     "json",
		Renderer: "flatjson",
		File:     "tokens-{permutation}.json",
	}})

	result := b.Build(context.Background())
	require.True(t, result.Success, "errors: %v", result.Errors)
	require.Len(t, result.Permutations, 2)
	require.Len(t, result.Outputs, 1)

	var paths []string
	for _, f := range result.Outputs[0].Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"tokens-light.json", "tokens-dark.json"}, paths)

	var dark map[string]any
	require.NoError(t, json.Unmarshal([]byte(fsys.Content("/p/dist/tokens-dark.json")), &dark))
	assert.Equal(t, "#000", dark["color.bg"])
	assert.Equal(t, "#000", dark["color.fg"])
	assert.Equal(t, "4px", dark["space.sm"])
}

func TestBuild_PartialFailure(t *testing.T) {
	for _, failing := range []string{"broken", "panics"} {
		t.Run(failing, func(t *testing.T) {
			b, fsys := builder(t,
				output("first", "ok"),
				output("second", failing),
				output("third", "ok"),
			)

			result := b.Build(context.Background())
			assert.False(t, result.Success)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0].Message, "output second")

			require.Len(t, result.Outputs, 2)
			assert.Equal(t, "first", result.Outputs[0].Name)
			assert.Equal(t, "third", result.Outputs[1].Name)
			assert.Equal(t, "light", fsys.Content("/p/dist/first.txt"), "the base permutation is the default one")
			assert.True(t, fsys.Exists("/p/dist/third.txt"))
			assert.False(t, fsys.Exists("/p/dist/second.txt"))
		})
	}
}

func TestBuild_UnknownRenderer(t *testing.T) {
	b, _ := builder(t, output("x", "flatjsn"))

	result := b.Build(context.Background())
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], schema.ErrConfiguration)
	assert.Contains(t, result.Errors[0].Suggestions, "flatjson")
}

func TestBuild_OutputFilters(t *testing.T) {
	colors := build.Output{
		Output:  render.Output{Name: "colors", Renderer: "flatjson", File: "colors.json"},
		Filters: []filter.Filter{filter.ByType("color")},
	}
	b, fsys := builder(t, colors, output("all", "flatjson"))
	b.DryRun = true

	result := b.Build(context.Background())
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.False(t, fsys.Exists("/p/dist/colors.json"), "dry run writes nothing")

	var onlyColors, all map[string]map[string]any
	require.NoError(t, json.Unmarshal(result.Outputs[0].Files[0].Content, &onlyColors))
	assert.NotContains(t, onlyColors["light"], "space.sm")

	require.NoError(t, json.Unmarshal(result.Outputs[1].Files[0].Content, &all))
	assert.Contains(t, all["light"], "space.sm", "filters on one output do not affect another")
	assert.Equal(t, flatjson.DefaultFile, result.Outputs[1].Files[0].Path)
}

func TestBuild_SelectedPermutations(t *testing.T) {
	b, _ := builder(t, output("json", "flatjson"))
	inputs, err := b.Inputs(map[string]any{"theme": "DARK"})
	require.NoError(t, err)
	b.Permutations = append(b.Permutations, inputs)

	result := b.Build(context.Background())
	require.True(t, result.Success)
	require.Len(t, result.Permutations, 1)
	assert.Equal(t, "dark", result.Permutations[0].Key)
}

func TestFromConfig(t *testing.T) {
	testutil.Quiet(t)
	mfs := testutil.NewMapFS(t, files)
	mfs.AddFile("/p/.config/permute.yaml", `
resolver: resolver.json
buildPath: out
permutations:
  - theme: dark
lint:
  extends: [tokens/recommended]
outputs:
  - flatjson
  - name: kebab
    renderer: flatjson
    file: kebab.json
    transforms: [name/kebab]
    filters:
      - types: [color]
`)
	cfg, err := config.Load(mfs, "/p")
	require.NoError(t, err)

	env := build.Env{
		FS:        mfs,
		Root:      "/p",
		Renderers: render.NewRegistry(flatjson.New()),
		Plugins:   lint.NewRegistry(rules.Plugin()),
	}
	b, err := build.FromConfig(context.Background(), cfg, env)
	require.NoError(t, err)
	assert.Equal(t, "/p/out", b.BuildPath)
	require.Len(t, b.Outputs, 2)
	assert.Equal(t, "flatjson", b.Outputs[0].Name)

	result := b.Build(context.Background())
	require.True(t, result.Success, "errors: %v", result.Errors)
	require.NotNil(t, result.Permutations[0].Lint)

	var kebab map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(mfs.Content("/p/out/kebab.json")), &kebab))
	assert.Equal(t, map[string]any{"color-bg": "#000", "color-fg": "#000"}, kebab["dark"])
	assert.True(t, mfs.Exists("/p/out/tokens.json"))
}

func TestFromConfig_Errors(t *testing.T) {
	testutil.Quiet(t)
	env := build.Env{
		FS:        testutil.NewMapFS(t, files),
		Root:      "/p",
		Renderers: render.NewRegistry(flatjson.New()),
		Plugins:   lint.NewRegistry(rules.Plugin()),
	}

	tests := []struct {
		name string
		cfg  config.Config
		want error
	}{
		{"no resolver", config.Config{}, schema.ErrConfiguration},
		{"missing resolver", config.Config{Resolver: "nope.json"}, schema.ErrFileOperation},
		{"unknown renderer", config.Config{
			Resolver: "resolver.json",
			Outputs:  []config.OutputSpec{{Renderer: "scss"}},
		}, schema.ErrConfiguration},
		{"unknown transform", config.Config{
			Resolver:   "resolver.json",
			Transforms: []string{"name/shouty"},
		}, schema.ErrConfiguration},
		{"unknown modifier input", config.Config{
			Resolver:     "resolver.json",
			Permutations: []map[string]any{{"mode": "dark"}},
		}, schema.ErrModifier},
		{"unknown lint preset", config.Config{
			Resolver: "resolver.json",
			Lint:     config.LintConfig{Extends: []string{"tokens/strcit"}},
		}, schema.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build.FromConfig(context.Background(), &tt.cfg, env)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
