/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package mapfs provides an in-memory filesystem for tests, with per-file read
// accounting so cache behaviour can be asserted.
package mapfs

import (
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// MapFileSystem implements fs.FileSystem over fstest.MapFS.
type MapFileSystem struct {
	mu      sync.RWMutex
	mapFS   fstest.MapFS
	reads   map[string]int
	modTime time.Time
}

// New creates a new in-memory filesystem.
func New() *MapFileSystem {
	return &MapFileSystem{
		mapFS:   make(fstest.MapFS),
		reads:   make(map[string]int),
		modTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile adds a file.
func (mfs *MapFileSystem) AddFile(p string, content string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.mapFS[cleanPath(p)] = &fstest.MapFile{
		Data:    []byte(content),
		Mode:    0o644,
		ModTime: mfs.modTime,
	}
}

// ReadCount returns how many times ReadFile was called for p.
func (mfs *MapFileSystem) ReadCount(p string) int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.reads[cleanPath(p)]
}

// Content returns a file's content, or "" when absent. Reads are not counted.
func (mfs *MapFileSystem) Content(p string) string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	if f, ok := mfs.mapFS[cleanPath(p)]; ok {
		return string(f.Data)
	}
	return ""
}

func (mfs *MapFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.Lock()
	name = cleanPath(name)
	mfs.reads[name]++
	mfs.mu.Unlock()

	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return fs.ReadFile(mfs.mapFS, name)
}

func (mfs *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.mapFS[cleanPath(name)] = &fstest.MapFile{
		Data:    append([]byte(nil), data...),
		Mode:    perm,
		ModTime: mfs.modTime,
	}
	return nil
}

// MkdirAll is a no-op; directories exist implicitly in a MapFS.
func (mfs *MapFileSystem) MkdirAll(string, fs.FileMode) error {
	return nil
}

func (mfs *MapFileSystem) Exists(p string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	p = cleanPath(p)
	if _, exists := mfs.mapFS[p]; exists {
		return true
	}
	prefix := p + "/"
	for filePath := range mfs.mapFS {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	cleaned := path.Clean(p)
	if !path.IsAbs(cleaned) {
		cleaned = "/" + cleaned
	}
	return strings.TrimPrefix(cleaned, "/")
}
