/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/transform"
)

// Options configures a Runner.
type Options struct {
	Preprocessors []Preprocessor
	// Lint runs after root stripping. Nil disables linting.
	Lint *lint.Engine
	// FailOnError turns lint errors into a pipeline failure.
	FailOnError bool
	Filters     []filter.Filter
	Transforms  []transform.Transform
	// MaxAliasDepth bounds alias chains. Zero uses the resolver default.
	MaxAliasDepth int
	// Concurrency bounds how many permutations run at once. Zero or less is unbounded.
	Concurrency int
}

// Runner drives permutations through every stage.
type Runner struct {
	ready EngineReady
	opts  Options
}

// NewRunner creates a runner over engine.
func NewRunner(engine *resolution.Engine, opts Options) *Runner {
	return &Runner{ready: EngineReady{Engine: engine}, opts: opts}
}

// Engine returns the runner's resolution engine.
func (r *Runner) Engine() *resolution.Engine {
	return r.ready.Engine
}

// Run resolves one permutation.
func (r *Runner) Run(ctx context.Context, inputs map[string]any) (*Permutation, error) {
	raw, err := r.ready.Resolve(ctx, inputs)
	if err != nil {
		return nil, err
	}
	pre, err := raw.Preprocess(ctx, r.opts.Preprocessors...)
	if err != nil {
		return nil, err
	}
	resolved, err := pre.ResolveReferences(ctx)
	if err != nil {
		return nil, err
	}
	stripped := resolved.Flatten().ResolveAliases(r.opts.MaxAliasDepth).StripRoot()
	linted, err := stripped.Lint(ctx, r.opts.Lint, r.opts.FailOnError)
	if err != nil {
		return nil, err
	}
	final, err := linted.Filter(r.opts.Filters...).Transform(r.opts.Transforms...)
	if err != nil {
		return nil, err
	}
	return final.Permutation(), nil
}

// RunAll resolves permutations concurrently. Results are in the order of
// perms. The first failure cancels the remaining permutations.
func (r *Runner) RunAll(ctx context.Context, perms []resolution.Inputs) ([]*Permutation, error) {
	out := make([]*Permutation, len(perms))
	g, ctx := errgroup.WithContext(ctx)
	if r.opts.Concurrency > 0 {
		g.SetLimit(r.opts.Concurrency)
	}
	for i, inputs := range perms {
		g.Go(func() error {
			p, err := r.Run(ctx, inputs.ToAny())
			if err != nil {
				return fmt.Errorf("permutation %s: %w", inputs, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
