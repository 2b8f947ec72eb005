/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package load provides a high-level API for loading resolver documents.
package load

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"bennypowers.dev/permute/fs"
	"bennypowers.dev/permute/parser"
	"bennypowers.dev/permute/ref"
	"bennypowers.dev/permute/resolution"
	"bennypowers.dev/permute/schema"
)

// Options configures how a resolver document is loaded.
type Options struct {
	// Root is the directory relative locations resolve against.
	// Defaults to the working directory.
	Root string

	// FS is the filesystem to use. Defaults to OS filesystem if nil.
	FS fs.FileSystem

	// Fetcher enables http(s) resolver documents, sources and references.
	// Nil means local files only (default).
	Fetcher ref.Fetcher

	// FetchTimeout is the maximum time to wait for the resolver document
	// itself. Defaults to DefaultTimeout when zero. Has no effect if Fetcher is nil.
	FetchTimeout time.Duration

	// Cache is shared by every permutation. A new one is created when nil.
	Cache *ref.Cache

	// Strict disables first-context fallback and turns $type mismatches into errors.
	Strict bool
}

// Document reads and parses a resolver document from a file path or an
// http(s) URL.
//
// The loading process:
//  1. Reads the document through the filesystem, or the Fetcher for URLs
//  2. Decodes JSON, JSONC or YAML, keeping declared key order
//  3. Validates the structure, reporting every problem at once
//  4. Builds the resolution order
func Document(ctx context.Context, location string, opts Options) (*resolution.Document, error) {
	filesystem := opts.FS
	if filesystem == nil {
		filesystem = fs.NewOSFileSystem()
	}

	path, err := locate(location, opts.Root)
	if err != nil {
		return nil, err
	}

	var content []byte
	if isURL(path) {
		content, err = fetch(ctx, path, opts)
	} else {
		content, err = filesystem.ReadFile(path)
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrFileOperation, "failed to read resolver document").
			WithPath(path).
			WithCause(err)
	}

	raw, err := parser.DecodeObject(content)
	if err != nil {
		return nil, schema.NewError(schema.ErrFileOperation, "failed to parse resolver document").
			WithPath(path).
			WithCause(err)
	}
	order, err := parser.DecodeKeyOrder(content)
	if err != nil {
		return nil, schema.NewError(schema.ErrFileOperation, "failed to parse resolver document").
			WithPath(path).
			WithCause(err)
	}

	doc, err := resolution.ParseDocument(raw, order, path)
	if err != nil {
		return nil, err
	}
	if isURL(path) {
		doc.BaseDir = path[:strings.LastIndex(path, "/")]
	}
	return doc, nil
}

// Engine loads a resolver document and creates its resolution engine.
func Engine(ctx context.Context, location string, opts Options) (*resolution.Engine, error) {
	doc, err := Document(ctx, location, opts)
	if err != nil {
		return nil, err
	}
	return resolution.NewEngine(doc, resolution.Options{
		FS:      opts.FS,
		Fetcher: opts.Fetcher,
		Cache:   opts.Cache,
		Strict:  opts.Strict,
	}), nil
}

func locate(location, root string) (string, error) {
	if location == "" {
		return "", schema.NewError(schema.ErrConfiguration, "no resolver document given")
	}
	if isURL(location) || filepath.IsAbs(location) {
		return location, nil
	}
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root path: %w", err)
		}
		root = absRoot
	}
	return filepath.Join(root, location), nil
}

func fetch(ctx context.Context, url string, opts Options) ([]byte, error) {
	if opts.Fetcher == nil {
		return nil, schema.NewError(schema.ErrConfiguration, "loading %s requires a fetcher", url)
	}
	timeout := opts.FetchTimeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return opts.Fetcher.Fetch(ctx, url)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
