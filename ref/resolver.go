/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package ref resolves $ref reference objects: JSON pointers into the current
// document, external files, and files with a pointer fragment.
package ref

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/parser"
	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
	"bennypowers.dev/permute/token"
)

// Fetcher fetches remote documents for http(s) references.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options configures a Resolver.
type Options struct {
	// FS reads external files. Defaults to the OS filesystem.
	FS fs.FileSystem

	// BaseDir is the directory relative file references resolve against.
	BaseDir string

	// Cache is shared between resolvers. A private cache is created when nil.
	Cache *Cache

	// Fetcher enables http(s) references. Nil rejects them.
	Fetcher Fetcher

	// Strict turns token-level $type mismatches into errors.
	Strict bool
}

// Resolver resolves $ref objects.
//
// A Resolver tracks in-flight references for cycle detection and is therefore
// not safe for concurrent use: create one per permutation and share the Cache.
type Resolver struct {
	opts    Options
	cache   *Cache
	visited map[string]bool
	issues  []*schema.Error
}

// New creates a resolver with its own cycle-detection state.
func New(opts Options) *Resolver {
	if opts.FS == nil {
		opts.FS = fs.NewOSFileSystem()
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{
		opts:    opts,
		cache:   cache,
		visited: make(map[string]bool),
	}
}

// Issues returns the non-fatal problems found so far, such as $type mismatches.
func (r *Resolver) Issues() []*schema.Error {
	return r.issues
}

// scope is the document a reference is evaluated in.
type scope struct {
	file    string
	baseDir string
	doc     any
}

// position distinguishes references standing for a whole token (or group)
// from references inside a token's $value.
type position int

const (
	posNode position = iota
	posValue
)

// IsRef reports whether node is a reference object and returns its target.
func IsRef(node any) (string, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m["$ref"].(string)
	return s, ok
}

// Load returns the target of ref without resolving references nested inside it.
// Relative file references in an external target are rewritten to stay valid
// against BaseDir; pointer-only references are left for the merged document.
func (r *Resolver) Load(ctx context.Context, ref string, current any) (any, error) {
	value, target, err := r.target(ctx, ref, r.rootScope(current))
	if err != nil {
		return nil, err
	}
	out := deepcopy.Copy(value)
	if target.file != "" && target.baseDir != r.opts.BaseDir {
		r.rebase(out, target.baseDir)
	}
	return out, nil
}

func (r *Resolver) rebase(node any, fromDir string) {
	switch v := node.(type) {
	case map[string]any:
		if s, ok := v["$ref"].(string); ok {
			file, pointer, hasPointer := strings.Cut(s, "#")
			if file != "" && !isURL(file) && !filepath.IsAbs(file) {
				file = r.relocate(file, fromDir)
				if hasPointer {
					file += "#" + pointer
				}
				v["$ref"] = file
			}
		}
		for _, child := range v {
			r.rebase(child, fromDir)
		}
	case []any:
		for _, child := range v {
			r.rebase(child, fromDir)
		}
	}
}

func (r *Resolver) relocate(file, fromDir string) string {
	location := r.locate(file, scope{baseDir: fromDir})
	if isURL(location) || isURL(r.opts.BaseDir) {
		return location
	}
	base := r.opts.BaseDir
	if base == "" {
		base = "."
	}
	if rel, err := filepath.Rel(base, location); err == nil {
		return filepath.ToSlash(rel)
	}
	return location
}

// Resolve returns the target of ref with every nested reference resolved.
func (r *Resolver) Resolve(ctx context.Context, ref string, current any) (any, error) {
	return r.resolveRef(ctx, ref, r.rootScope(current))
}

// ResolveDeep resolves every $ref in a token document. References in node
// position resolve to whole tokens or groups, with sibling keys applied as
// shallow overrides; references inside $value resolve to plain values.
func (r *Resolver) ResolveDeep(ctx context.Context, tree map[string]any) (map[string]any, error) {
	out, err := r.walk(ctx, tree, r.rootScope(tree), posNode, "")
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, schema.NewError(schema.ErrValidation, "document root resolved to %T, want object", out)
	}
	return m, nil
}

func (r *Resolver) rootScope(doc any) scope {
	return scope{baseDir: r.opts.BaseDir, doc: doc}
}

func (r *Resolver) resolveRef(ctx context.Context, ref string, sc scope) (any, error) {
	key := r.identity(ref, sc)
	if r.visited[key] {
		return nil, schema.NewError(schema.ErrCircularReference, "circular $ref %q", ref).WithPath(sc.file)
	}
	r.visited[key] = true
	defer delete(r.visited, key)

	value, target, err := r.target(ctx, ref, sc)
	if err != nil {
		return nil, err
	}
	return r.walk(ctx, deepcopy.Copy(value), target, posNode, "")
}

// target loads the document ref points into and evaluates its fragment.
func (r *Resolver) target(ctx context.Context, ref string, sc scope) (any, scope, error) {
	file, pointer := splitRef(ref)
	target := sc
	if file != "" {
		location := r.locate(file, sc)
		doc, err := r.loadDocument(ctx, location)
		if err != nil {
			return nil, scope{}, err
		}
		target = scope{file: location, baseDir: dirOf(location), doc: doc}
	}

	value, err := evalPointer(target.doc, pointer)
	if err != nil {
		return nil, scope{}, schema.NewError(schema.ErrValidation, "cannot resolve $ref %q", ref).
			WithPath(target.file).
			WithCause(err).
			WithSuggestions(pointerSuggestions(target.doc, pointer))
	}
	return value, target, nil
}

func (r *Resolver) walk(ctx context.Context, node any, sc scope, pos position, at string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			return r.resolveRefNode(ctx, v, ref, sc, pos, at)
		}
		out := make(map[string]any, len(v))
		for k, child := range v {
			childPos := pos
			if pos == posNode {
				switch {
				case k == "$value":
					childPos = posValue
				case strings.HasPrefix(k, "$") && k != token.RootKey:
					out[k] = child
					continue
				}
			}
			resolved, err := r.walk(ctx, child, sc, childPos, joinAt(at, k))
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			resolved, err := r.walk(ctx, child, sc, pos, joinAt(at, fmt.Sprint(i)))
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Resolver) resolveRefNode(ctx context.Context, node map[string]any, ref string, sc scope, pos position, at string) (any, error) {
	resolved, err := r.resolveRef(ctx, ref, sc)
	if err != nil {
		// Errors from the shared cache reach every resolver that missed the
		// same file, so annotate a copy.
		var se *schema.Error
		if errors.As(err, &se) && se.TokenPath == "" {
			annotated := *se
			annotated.TokenPath = at
			return nil, &annotated
		}
		return nil, err
	}

	siblings := make(map[string]any, len(node))
	for k, v := range node {
		if k != "$ref" {
			siblings[k] = v
		}
	}

	if pos == posValue {
		if m, ok := resolved.(map[string]any); ok {
			if inner, isToken := m["$value"]; isToken {
				resolved = inner
			}
		}
		return overlay(resolved, siblings), nil
	}

	target, ok := resolved.(map[string]any)
	if !ok {
		// A pointer to a bare value still yields a token in node position.
		target = map[string]any{"$value": resolved}
	}

	if declared, ok := siblings["$type"].(string); ok {
		if referenced, ok := target["$type"].(string); ok && referenced != declared {
			issue := schema.NewError(schema.ErrValidation,
				"$type %q does not match referenced token type %q", declared, referenced).
				WithToken(at)
			if r.opts.Strict {
				return nil, issue
			}
			logger.Warn("%s", issue.Error())
			r.issues = append(r.issues, issue.AsWarning())
		}
	}

	out := overlay(target, siblings).(map[string]any)
	if _, isToken := out["$value"]; !isToken {
		propagateProvenance(out, siblings)
	}
	return out, nil
}

// overlay applies sibling keys as shallow overrides: objects and arrays are
// replaced, never merged.
func overlay(value any, siblings map[string]any) any {
	if len(siblings) == 0 {
		return value
	}
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(m)+len(siblings))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range siblings {
		out[k] = v
	}
	return out
}

// propagateProvenance copies provenance tags set on a group-level reference
// down to the tokens it brought in.
func propagateProvenance(group map[string]any, siblings map[string]any) {
	tags := map[string]any{}
	for _, key := range []string{token.SourceSetKey, token.SourceModifierKey} {
		if v, ok := siblings[key]; ok {
			tags[key] = v
			delete(group, key)
		}
	}
	if len(tags) == 0 {
		return
	}
	var tag func(node map[string]any)
	tag = func(node map[string]any) {
		for k, child := range node {
			childMap, ok := child.(map[string]any)
			if !ok || (strings.HasPrefix(k, "$") && k != token.RootKey) {
				continue
			}
			if _, isToken := childMap["$value"]; isToken {
				for key, v := range tags {
					if _, exists := childMap[key]; !exists {
						childMap[key] = v
					}
				}
				continue
			}
			tag(childMap)
		}
	}
	tag(group)
}

func (r *Resolver) loadDocument(ctx context.Context, location string) (any, error) {
	return r.cache.load(location, func() (any, error) {
		var data []byte
		var err error
		if isURL(location) {
			if r.opts.Fetcher == nil {
				return nil, schema.NewError(schema.ErrConfiguration, "remote reference %s requires a fetcher", location)
			}
			data, err = r.opts.Fetcher.Fetch(ctx, location)
		} else {
			data, err = r.opts.FS.ReadFile(location)
		}
		if err != nil {
			return nil, schema.NewError(schema.ErrFileOperation, "failed to read referenced file").
				WithPath(location).
				WithCause(err)
		}
		doc, err := parser.Decode(data)
		if err != nil {
			return nil, schema.NewError(schema.ErrFileOperation, "failed to parse referenced file").
				WithPath(location).
				WithCause(err)
		}
		logger.Debug("loaded %s", location)
		return doc, nil
	})
}

// locate turns a file reference into a cache key: a URL or a clean path.
func (r *Resolver) locate(file string, sc scope) string {
	switch {
	case isURL(file):
		return file
	case isURL(sc.baseDir):
		return strings.TrimSuffix(sc.baseDir, "/") + "/" + path.Clean(file)
	case filepath.IsAbs(file):
		return filepath.Clean(file)
	default:
		return filepath.Clean(filepath.Join(sc.baseDir, file))
	}
}

func (r *Resolver) identity(ref string, sc scope) string {
	file, pointer := splitRef(ref)
	if file != "" {
		return r.locate(file, sc) + "#" + pointer
	}
	return sc.file + "#" + pointer
}

// splitRef splits "file.json#/a/b" into its file and pointer parts.
func splitRef(ref string) (file, pointer string) {
	file, pointer, _ = strings.Cut(ref, "#")
	return file, pointer
}

func evalPointer(doc any, pointer string) (any, error) {
	if pointer == "" {
		return doc, nil
	}
	p, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, err
	}
	value, _, err := p.Get(doc)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// pointerSuggestions walks pointer until the first missing key and suggests
// siblings of that key.
func pointerSuggestions(doc any, pointer string) []string {
	p, err := jsonpointer.New(pointer)
	if err != nil {
		return nil
	}
	current := doc
	for _, segment := range p.DecodedTokens() {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := m[segment]
		if !ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return suggest.Suggest(segment, keys)
		}
		current = next
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func dirOf(location string) string {
	if isURL(location) {
		if i := strings.LastIndex(location, "/"); i > len("https://") {
			return location[:i]
		}
		return location
	}
	return filepath.Dir(location)
}

func joinAt(at, key string) string {
	if at == "" {
		return key
	}
	return at + "." + key
}
