/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
	"bennypowers.dev/permute/token"
)

// DefaultMaxDepth caps alias chains that are long but not circular.
const DefaultMaxDepth = 32

// Options configures ResolveAliases.
type Options struct {
	// MaxDepth is the longest alias chain followed. Zero means DefaultMaxDepth.
	MaxDepth int
	// Strict reports $type mismatches on pure aliases as errors instead of warnings.
	Strict bool
}

// ResolveAliases returns a copy of tbl in which every {alias} is replaced by
// the value it names.
//
// A pure alias ("{a.b}") takes the referenced token's value and, when the
// aliasing token declares none, its $type. An alias embedded in a larger
// string is interpolated. Failures are per token: the token keeps its
// literal value and an issue is returned, while other tokens still resolve.
func ResolveAliases(tbl token.Table, opts Options) (token.Table, []*schema.Error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	r := &aliasResolver{
		src:    tbl,
		out:    tbl.Clone(),
		opts:   opts,
		done:   make(map[string]error),
		names:  tbl.Names(),
		issued: make(map[string]bool),
	}

	for _, name := range r.names {
		// Each top-level resolution gets its own in-flight set.
		err := r.resolve(name, make(map[string]bool), 0)
		var depthErr *depthError
		if errors.As(err, &depthErr) {
			r.report(name, schema.NewError(schema.ErrValidation,
				"alias chain exceeds maximum depth of %d", opts.MaxDepth).WithToken(name))
			r.done[name] = err
		}
	}

	return r.out, r.issues
}

type aliasResolver struct {
	src    token.Table
	out    token.Table
	opts   Options
	names  []string
	done   map[string]error
	issued map[string]bool
	issues []*schema.Error
}

// cycleError travels up the call chain from the token that closed a cycle.
// Tokens on the way up belong to the cycle until start is reached.
type cycleError struct {
	start string
	path  []string
}

func (e *cycleError) Error() string {
	return "alias cycle " + strings.Join(e.path, " -> ")
}

// depthError is not cached, so tokens in the middle of an over-long chain can
// still resolve on their own.
type depthError struct{}

func (*depthError) Error() string { return "maximum alias depth exceeded" }

// errUnresolved marks a token whose value still holds an alias.
var errUnresolved = errors.New("unresolved alias")

func (r *aliasResolver) report(name string, issue *schema.Error) {
	if r.issued[name] {
		return
	}
	r.issued[name] = true
	if issue.IsWarning() {
		logger.Warn("%s", issue.Error())
	}
	r.issues = append(r.issues, issue)
}

func (r *aliasResolver) resolve(name string, resolving map[string]bool, depth int) error {
	if err, ok := r.done[name]; ok {
		return err
	}
	if resolving[name] {
		return &cycleError{start: name, path: []string{name}}
	}
	if depth > r.opts.MaxDepth {
		return &depthError{}
	}
	resolving[name] = true
	defer delete(resolving, name)

	tok := r.out[name]
	value, err := r.resolveValue(name, tok, resolving, depth)

	var cycle *cycleError
	switch {
	case errors.As(err, &cycle):
		cycle.path = append([]string{name}, cycle.path...)
		r.report(name, schema.NewError(schema.ErrCircularReference,
			"circular alias %s", strings.Join(cycle.path, " -> ")).WithToken(name))
		r.done[name] = errUnresolved
		if name == cycle.start {
			// Tokens further up the chain only depend on the cycle.
			return errUnresolved
		}
		return cycle
	case errors.As(err, new(*depthError)):
		return err
	case err != nil:
		r.done[name] = err
		return err
	}

	tok.Value = value
	r.done[name] = nil
	return nil
}

// resolveValue returns tok's value with every alias replaced.
func (r *aliasResolver) resolveValue(name string, tok *token.Token, resolving map[string]bool, depth int) (any, error) {
	if target, ok := token.ParsePureAlias(tok.Value); ok {
		dep, err := r.dependency(name, target, resolving, depth)
		if err != nil {
			return nil, err
		}
		ref := r.out[dep]
		tok.IsAlias = true
		switch {
		case tok.Type == "":
			tok.Type = ref.Type
		case ref.Type != "" && ref.Type != tok.Type:
			issue := schema.NewError(schema.ErrValidation,
				"$type %q does not match aliased token %s of type %q", tok.Type, dep, ref.Type).
				WithToken(name)
			if !r.opts.Strict {
				issue.AsWarning()
			}
			r.report(name, issue)
		}
		return deepcopy.Copy(ref.Value), nil
	}
	return r.interpolate(name, tok.Value, resolving, depth)
}

// interpolate resolves aliases nested in composite values and strings.
// A string that is exactly one alias takes the referenced value unchanged;
// otherwise references are stringified into the surrounding text.
func (r *aliasResolver) interpolate(name string, value any, resolving map[string]bool, depth int) (any, error) {
	switch v := value.(type) {
	case string:
		if target, ok := token.ParsePureAlias(v); ok {
			dep, err := r.dependency(name, target, resolving, depth)
			if err != nil {
				return nil, err
			}
			return deepcopy.Copy(r.out[dep].Value), nil
		}
		if !token.IsCurlyBraceRef(v) {
			return v, nil
		}
		var firstErr error
		out := token.ReplaceRefs(v, func(target string) (string, bool) {
			if firstErr != nil {
				return "", false
			}
			dep, err := r.dependency(name, target, resolving, depth)
			if err != nil {
				firstErr = err
				return "", false
			}
			return stringify(r.out[dep].Value), true
		})
		if firstErr != nil {
			return nil, firstErr
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.interpolate(name, item, resolving, depth)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := r.interpolate(name, item, resolving, depth)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// dependency resolves the token an alias in name refers to and returns its
// table key.
func (r *aliasResolver) dependency(name, target string, resolving map[string]bool, depth int) (string, error) {
	dep, ok := lookup(r.src, target)
	if !ok {
		r.report(name, r.unknownTarget(name, target))
		return "", errUnresolved
	}
	if err := r.resolve(dep, resolving, depth+1); err != nil {
		if errors.Is(err, errUnresolved) {
			r.report(name, schema.NewError(schema.ErrTokenReference,
				"alias {%s} refers to a token that could not be resolved", target).
				WithToken(name).
				AsWarning())
		}
		return "", err
	}
	return dep, nil
}

func (r *aliasResolver) unknownTarget(name, target string) *schema.Error {
	issue := schema.NewError(schema.ErrTokenReference, "unknown alias target {%s}", target).
		WithToken(name).
		WithSuggestions(suggest.Suggest(target, r.names)).
		AsWarning()
	segments := token.SplitPath(target)
	for i := len(segments) - 1; i > 0; i-- {
		prefix := token.JoinPath(segments[:i])
		if _, ok := lookup(r.src, prefix); ok {
			issue.Message = fmt.Sprintf(
				"unknown alias target {%s}: aliases reference whole tokens, use a $ref JSON pointer to reach into {%s}",
				target, prefix)
			break
		}
	}
	return issue
}

// stringify renders a value for string interpolation. Numbers never use
// exponent notation. Composite values are written as JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
