/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package build

import (
	"context"
	"path/filepath"
	"slices"

	"bennypowers.dev/permute/config"
	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/lint/rules"
	"bennypowers.dev/permute/load"
	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/ref"
	"bennypowers.dev/permute/render"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/transform"
)

// Env supplies what a configuration cannot: I/O and the available plugins.
type Env struct {
	FS fs.FileSystem
	// Root is the directory relative paths in the configuration resolve against.
	Root      string
	Fetcher   ref.Fetcher
	Renderers *render.Registry
	Plugins   lint.Loader
}

// FromConfig loads the resolver document and assembles a Builder.
func FromConfig(ctx context.Context, cfg *config.Config, env Env) (*Builder, error) {
	if cfg.Resolver == "" {
		return nil, schema.NewError(schema.ErrConfiguration, "no resolver document configured")
	}
	engine, err := load.Engine(ctx, cfg.Resolver, load.Options{
		Root:    env.Root,
		FS:      env.FS,
		Fetcher: env.Fetcher,
		Strict:  cfg.Strict,
	})
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		FailOnError:   cfg.Lint.ShouldFailOnError(),
		MaxAliasDepth: cfg.MaxAliasDepth,
		Concurrency:   cfg.Concurrency,
	}
	if cfg.Lint.IsEnabled() {
		lintCfg, err := cfg.Lint.EngineConfig()
		if err != nil {
			return nil, err
		}
		lintCfg.Plugins = withBuiltin(lintCfg.Plugins, env.Plugins)
		if opts.Lint, err = lint.NewEngine(lintCfg, env.Plugins); err != nil {
			return nil, err
		}
	}
	if opts.Filters, err = filters(cfg.Filters); err != nil {
		return nil, err
	}
	if opts.Transforms, err = transform.LookupAll(cfg.Transforms); err != nil {
		return nil, err
	}

	b := &Builder{
		Runner:    pipeline.NewRunner(engine, opts),
		Renderers: env.Renderers,
		FS:        env.FS,
		BuildPath: cfg.BuildPath,
	}
	if b.BuildPath != "" && !filepath.IsAbs(b.BuildPath) && env.Root != "" {
		b.BuildPath = filepath.Join(env.Root, b.BuildPath)
	}

	for _, spec := range cfg.Outputs {
		out := Output{Output: render.Output{
			Name:     spec.DisplayName(),
			Renderer: spec.Renderer,
			File:     spec.File,
			Options:  spec.Options,
		}}
		if out.Filters, err = filters(spec.Filters); err != nil {
			return nil, err
		}
		if out.Transforms, err = transform.LookupAll(spec.Transforms); err != nil {
			return nil, err
		}
		if env.Renderers != nil {
			if _, err := env.Renderers.Lookup(spec.Renderer); err != nil {
				return nil, err
			}
		}
		b.Outputs = append(b.Outputs, out)
	}

	for _, raw := range cfg.Permutations {
		_, inputs, err := engine.PrepareInputs(raw)
		if err != nil {
			return nil, err
		}
		b.Permutations = append(b.Permutations, inputs)
	}
	return b, nil
}

// Inputs validates raw modifier inputs against the builder's document.
func (b *Builder) Inputs(raw map[string]any) (resolution.Inputs, error) {
	_, inputs, err := b.Runner.Engine().PrepareInputs(raw)
	return inputs, err
}

func filters(specs []filter.Spec) ([]filter.Filter, error) {
	out := make([]filter.Filter, 0, len(specs))
	for _, spec := range specs {
		f, err := filter.FromSpec(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// withBuiltin adds the built-in plugin when the loader provides it and the
// configuration does not name it.
func withBuiltin(plugins []string, loader lint.Loader) []string {
	if loader == nil || slices.Contains(plugins, rules.PluginName) {
		return plugins
	}
	if _, err := loader.Load(rules.PluginName); err != nil {
		return plugins
	}
	return append(slices.Clone(plugins), rules.PluginName)
}
