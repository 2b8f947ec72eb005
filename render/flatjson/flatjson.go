/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package flatjson renders permutations as flat key-value JSON.
package flatjson

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"bennypowers.dev/permute/pipeline"
	"bennypowers.dev/permute/render"
	"bennypowers.dev/permute/schema"
)

// DefaultFile is used when the output names no file.
const DefaultFile = "tokens.json"

// Options configures the renderer.
type Options struct {
	// Delimiter joins path segments into keys. Empty keeps token names as they are.
	Delimiter string `mapstructure:"delimiter"`
	// Prefix is prepended to every key, followed by the delimiter.
	Prefix string `mapstructure:"prefix"`
}

// Renderer outputs flat key-value JSON. A file name containing
// "{permutation}" yields one {name: value} file per permutation; otherwise
// one file maps each permutation key to its tokens.
type Renderer struct{}

// New creates a new flat JSON renderer.
func New() *Renderer {
	return &Renderer{}
}

// Name implements render.Renderer.
func (r *Renderer) Name() string {
	return "flatjson"
}

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, rc *render.Context) ([]render.File, error) {
	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &opts, ErrorUnused: true})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(rc.Output.Options); err != nil {
		return nil, schema.NewError(schema.ErrConfiguration, "invalid flatjson options").WithCause(err)
	}

	output := rc.Output
	if output.File == "" {
		output.File = DefaultFile
	}

	if output.PerPermutation() {
		files := make([]render.File, 0, len(rc.Permutations))
		for _, p := range rc.Permutations {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			content, err := marshal(flatten(p, opts))
			if err != nil {
				return nil, err
			}
			files = append(files, render.File{Path: output.FileFor(p.Key), Content: content})
		}
		return files, nil
	}

	all := make(map[string]map[string]any, len(rc.Permutations))
	for _, p := range rc.Permutations {
		all[p.Key] = flatten(p, opts)
	}
	content, err := marshal(all)
	if err != nil {
		return nil, err
	}
	return []render.File{{Path: output.File, Content: content}}, nil
}

func flatten(p *pipeline.Permutation, opts Options) map[string]any {
	result := make(map[string]any, len(p.Tokens))
	for _, tok := range p.Tokens.Sorted() {
		key := tok.Name
		if opts.Delimiter != "" {
			key = strings.Join(tok.Path, opts.Delimiter)
		}
		if opts.Prefix != "" {
			delimiter := opts.Delimiter
			if delimiter == "" {
				delimiter = "-"
			}
			key = opts.Prefix + delimiter + key
		}
		result[key] = tok.Value
	}
	return result
}

func marshal(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
