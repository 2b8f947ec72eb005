/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package pipeline turns one permutation's modifier inputs into a final
// token table. Each stage is a method on the previous stage's type, so
// stages can only run in order:
//
//	LoadedResolver -> EngineReady -> RawTokens -> Preprocessed ->
//	ReferenceResolved -> Flattened -> AliasResolved -> RootStripped ->
//	Linted -> Filtered -> Transformed
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/filter"
	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/lint"
	"bennypowers.dev/permute/parser"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/resolver"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/token"
	"bennypowers.dev/permute/transform"
)

// Preprocessor rewrites the raw token document before references resolve.
type Preprocessor interface {
	Preprocess(ctx context.Context, tree map[string]any) (map[string]any, error)
}

// PreprocessFunc adapts a function to Preprocessor.
type PreprocessFunc func(ctx context.Context, tree map[string]any) (map[string]any, error)

// Preprocess implements Preprocessor.
func (f PreprocessFunc) Preprocess(ctx context.Context, tree map[string]any) (map[string]any, error) {
	return f(ctx, tree)
}

// LoadedResolver holds a parsed resolver document.
type LoadedResolver struct {
	Document *resolution.Document
}

// Load starts a pipeline from a parsed document.
func Load(doc *resolution.Document) LoadedResolver {
	return LoadedResolver{Document: doc}
}

// Engine creates the resolution engine.
func (s LoadedResolver) Engine(opts resolution.Options) EngineReady {
	return EngineReady{Engine: resolution.NewEngine(s.Document, opts)}
}

// EngineReady holds an engine that can resolve any permutation.
type EngineReady struct {
	Engine *resolution.Engine
}

// state is what every stage after EngineReady carries forward.
type state struct {
	engine *resolution.Engine
	inputs resolution.Inputs
	issues []*schema.Error
}

// Inputs returns the permutation's resolved modifier inputs.
func (s state) Inputs() resolution.Inputs {
	return s.inputs
}

// Issues returns the warnings and per-token errors collected so far.
func (s state) Issues() []*schema.Error {
	return s.issues
}

func (s state) with(issues ...*schema.Error) state {
	if len(issues) == 0 {
		return s
	}
	s.issues = append(append([]*schema.Error(nil), s.issues...), issues...)
	return s
}

// RawTokens is the merged token document of one permutation.
type RawTokens struct {
	state
	Tree map[string]any
}

// Resolve merges the document's sources for raw modifier inputs.
func (s EngineReady) Resolve(ctx context.Context, inputs map[string]any) (RawTokens, error) {
	tree, resolved, err := s.Engine.ResolveWithInputs(ctx, inputs)
	if err != nil {
		return RawTokens{}, err
	}
	return RawTokens{state: state{engine: s.Engine, inputs: resolved}, Tree: tree}, nil
}

// Preprocessed is the token document after preprocessors ran.
type Preprocessed struct {
	state
	Tree map[string]any
}

// Preprocess applies preprocessors in order. Each receives its own copy.
func (s RawTokens) Preprocess(ctx context.Context, pres ...Preprocessor) (Preprocessed, error) {
	tree := s.Tree
	for _, p := range pres {
		out, err := p.Preprocess(ctx, deepcopy.Copy(tree).(map[string]any))
		if err != nil {
			return Preprocessed{}, schema.NewError(schema.ErrValidation, "preprocessor failed").WithCause(err)
		}
		tree = out
	}
	return Preprocessed{state: s.state, Tree: tree}, nil
}

// ReferenceResolved is the token document with every $ref replaced.
type ReferenceResolved struct {
	state
	Tree map[string]any
}

// ResolveReferences replaces $refs in the document. Outside strict mode a
// failure does not stop the pipeline: the unresolved document is kept and the
// failure becomes a warning. In strict mode the failure is returned.
func (s Preprocessed) ResolveReferences(ctx context.Context) (ReferenceResolved, error) {
	refs := s.engine.NewRefResolver()
	tree, err := refs.ResolveDeep(ctx, s.Tree)
	next := s.with(refs.Issues()...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ReferenceResolved{}, ctxErr
		}
		if s.engine.Strict() {
			return ReferenceResolved{}, err
		}
		logger.Warn("%s: skipping reference resolution: %v", s.inputs, err)
		return ReferenceResolved{state: next.with(downgrade(err)), Tree: s.Tree}, nil
	}
	return ReferenceResolved{state: next, Tree: tree}, nil
}

// Flattened is the flat token table, $root entries still keyed by full path.
type Flattened struct {
	state
	Tokens token.Table
}

// Flatten applies group $extends and flattens the document. A broken
// $extends is reported and the document is flattened without extensions.
func (s ReferenceResolved) Flatten() Flattened {
	tree, err := resolver.ResolveGroupExtensions(s.Tree)
	next := s.state
	if err != nil {
		logger.Warn("%s: skipping $extends: %v", s.inputs, err)
		next = next.with(downgrade(err))
		tree = s.Tree
	}
	return Flattened{state: next, Tokens: parser.Flatten(tree)}
}

// AliasResolved is the table with curly-brace aliases replaced.
type AliasResolved struct {
	state
	Tokens token.Table
}

// ResolveAliases resolves aliases. Failures are per token and recorded as issues.
func (s Flattened) ResolveAliases(maxDepth int) AliasResolved {
	tbl, issues := resolver.ResolveAliases(s.Tokens, resolver.Options{
		MaxDepth: maxDepth,
		Strict:   s.engine.Strict(),
	})
	return AliasResolved{state: s.with(issues...), Tokens: tbl}
}

// RootStripped is the table with $root made invisible.
type RootStripped struct {
	state
	Tokens token.Table
}

// StripRoot re-keys "x.$root" entries as "x" and rewrites {x.$root} to {x}
// in original values.
func (s AliasResolved) StripRoot() RootStripped {
	out := make(token.Table, len(s.Tokens))
	var moved []*token.Token
	for _, tok := range s.Tokens.Sorted() {
		c := tok.Clone()
		c.OriginalValue = token.StripRootRefs(c.OriginalValue)
		if n := len(c.Path); n > 1 && c.Path[n-1] == token.RootKey {
			c.Path = c.Path[:n-1]
			c.Name = token.JoinPath(c.Path)
			moved = append(moved, c)
			continue
		}
		out[c.Name] = c
	}
	var issues []*schema.Error
	for _, c := range moved {
		if _, taken := out[c.Name]; taken {
			issues = append(issues, schema.NewError(schema.ErrValidation,
				"%s.%s is shadowed by token %s", c.Name, token.RootKey, c.Name).
				WithToken(c.Name).
				AsWarning())
			continue
		}
		out[c.Name] = c
	}
	return RootStripped{state: s.with(issues...), Tokens: out}
}

// Linted carries the lint result alongside the complete table.
type Linted struct {
	state
	Tokens token.Table
	Lint   *lint.Result
}

// Lint runs engine over the table. A nil engine skips linting. With
// failOnError, lint errors stop the pipeline with a Lint error.
func (s RootStripped) Lint(ctx context.Context, engine *lint.Engine, failOnError bool) (Linted, error) {
	if engine == nil {
		return Linted{state: s.state, Tokens: s.Tokens}, nil
	}
	result, err := engine.Run(ctx, s.Tokens)
	if err != nil {
		return Linted{}, err
	}
	if failOnError && result.HasErrors() {
		return Linted{}, schema.NewError(schema.ErrLint, "%s: %d lint error(s)", s.inputs, result.ErrorCount).
			WithCause(summarize(result))
	}
	return Linted{state: s.state, Tokens: s.Tokens, Lint: result}, nil
}

// Filtered holds only the tokens selected for output.
type Filtered struct {
	state
	Tokens token.Table
	Lint   *lint.Result
}

// Filter keeps the tokens every filter keeps.
func (s Linted) Filter(filters ...filter.Filter) Filtered {
	return Filtered{state: s.state, Tokens: filter.Apply(s.Tokens, filters...), Lint: s.Lint}
}

// Transformed is the final table of one permutation.
type Transformed struct {
	state
	Tokens token.Table
	Lint   *lint.Result
}

// Transform applies transforms in order.
func (s Filtered) Transform(transforms ...transform.Transform) (Transformed, error) {
	tbl, err := transform.Apply(s.Tokens, transforms...)
	if err != nil {
		return Transformed{}, err
	}
	return Transformed{state: s.state, Tokens: tbl, Lint: s.Lint}, nil
}

// Permutation packages the final stage for renderers.
func (s Transformed) Permutation() *Permutation {
	return &Permutation{
		Inputs: s.inputs,
		Key:    s.engine.Document().Key(s.inputs),
		Tokens: s.Tokens,
		Issues: s.issues,
		Lint:   s.Lint,
	}
}

// Permutation is one fully resolved combination of modifier inputs.
type Permutation struct {
	Inputs resolution.Inputs
	// Key joins the input values with "-", e.g. "dark-compact".
	Key    string
	Tokens token.Table
	Issues []*schema.Error
	Lint   *lint.Result
}

// downgrade turns a stage failure into a warning issue.
func downgrade(err error) *schema.Error {
	var se *schema.Error
	if errors.As(err, &se) {
		c := *se
		return c.AsWarning()
	}
	return schema.NewError(schema.ErrValidation, "%s", err.Error()).AsWarning()
}

func summarize(result *lint.Result) error {
	var lines []string
	for _, issue := range result.Issues {
		if issue.Severity != schema.SeverityError {
			continue
		}
		lines = append(lines, issue.RuleID+": "+issue.Message)
	}
	return errors.New(strings.Join(lines, "\n"))
}
