/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package build resolves permutations and renders every configured output.
package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/internal/version"
	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/render"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/transform"
)

// Output is one configured output.
type Output struct {
	render.Output
	Filters    []filter.Filter
	Transforms []transform.Transform
}

// OutputResult is a successfully rendered output.
type OutputResult struct {
	Name  string        `json:"name"`
	Files []render.File `json:"files"`
}

// Result is the outcome of a build.
type Result struct {
	// Success is false when any error was recorded.
	Success bool `json:"success"`
	// Outputs holds every output that rendered, in configuration order.
	Outputs []OutputResult `json:"outputs"`
	// Errors holds pipeline failures and one entry per failed output.
	Errors []*schema.Error `json:"errors"`
	// Permutations are the resolved permutations, before per-output filters.
	Permutations []*pipeline.Permutation `json:"-"`
}

// Builder runs a build.
type Builder struct {
	Runner    *pipeline.Runner
	Renderers *render.Registry
	Outputs   []Output
	// Permutations to build. Nil builds every permutation.
	Permutations []resolution.Inputs
	// FS receives the rendered files.
	FS        fs.FileSystem
	BuildPath string
	// DryRun renders without writing.
	DryRun bool
}

// Build resolves the permutations and renders each output independently:
// a failing output is recorded in Errors and does not affect the others.
func (b *Builder) Build(ctx context.Context) *Result {
	result := &Result{Outputs: []OutputResult{}, Errors: []*schema.Error{}}
	engine := b.Runner.Engine()

	perms := b.Permutations
	if perms == nil {
		perms = engine.GeneratePermutations()
	}
	resolved, err := b.Runner.RunAll(ctx, perms)
	if err != nil {
		result.Errors = append(result.Errors, asSchemaError(err, schema.ErrValidation))
		return result
	}
	result.Permutations = resolved

	meta := render.Meta{Version: version.Get()}
	if base, err := engine.DefaultInputs(); err == nil {
		meta.Base = base
		meta.BaseKey = engine.Document().Key(base)
	} else {
		logger.Debug("no base permutation: %v", err)
	}

	rendered := make([]*OutputResult, len(b.Outputs))
	failures := make([]*schema.Error, len(b.Outputs))
	var wg sync.WaitGroup
	for i, out := range b.Outputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			files, err := b.renderOutput(ctx, out, resolved, meta)
			if err != nil {
				failure := asSchemaError(err, schema.ErrValidation)
				failure.Message = fmt.Sprintf("output %s: %s", out.Name, failure.Message)
				failures[i] = failure
				return
			}
			rendered[i] = &OutputResult{Name: out.Name, Files: files}
		}()
	}
	wg.Wait()

	for i := range b.Outputs {
		if failures[i] != nil {
			logger.Error("%v", failures[i])
			result.Errors = append(result.Errors, failures[i])
			continue
		}
		result.Outputs = append(result.Outputs, *rendered[i])
	}
	result.Success = len(result.Errors) == 0
	return result
}

// renderOutput renders and writes one output. Panics in the renderer are
// returned as errors.
func (b *Builder) renderOutput(ctx context.Context, out Output, perms []*pipeline.Permutation, meta render.Meta) (files []render.File, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer %s panicked: %v", out.Renderer, p)
		}
	}()

	renderer, err := b.Renderers.Lookup(out.Renderer)
	if err != nil {
		return nil, err
	}

	selected := make([]*pipeline.Permutation, len(perms))
	for i, p := range perms {
		tokens := filter.Apply(p.Tokens, out.Filters...)
		tokens, err = transform.Apply(tokens, out.Transforms...)
		if err != nil {
			return nil, err
		}
		c := *p
		c.Tokens = tokens
		selected[i] = &c
	}

	files, err = renderer.Render(ctx, &render.Context{
		Permutations: selected,
		Output:       out.Output,
		Resolver:     b.Runner.Engine().Document(),
		Meta:         meta,
		BuildPath:    b.BuildPath,
	})
	if err != nil {
		return nil, err
	}

	if b.DryRun || b.FS == nil {
		return files, nil
	}
	for _, f := range files {
		path := filepath.Join(b.BuildPath, filepath.FromSlash(f.Path))
		if err := b.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, schema.NewError(schema.ErrFileOperation, "failed to create output directory").WithPath(path).WithCause(err)
		}
		if err := b.FS.WriteFile(path, f.Content, 0o644); err != nil {
			return nil, schema.NewError(schema.ErrFileOperation, "failed to write output").WithPath(path).WithCause(err)
		}
		logger.Info("wrote %s", path)
	}
	return files, nil
}

// asSchemaError returns the *schema.Error in err's chain, or wraps err as kind.
func asSchemaError(err error, kind error) *schema.Error {
	var se *schema.Error
	if errors.As(err, &se) {
		c := *se
		return &c
	}
	return schema.NewError(kind, "%s", err.Error())
}
