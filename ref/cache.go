/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package ref

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds parsed documents keyed by file path or URL.
//
// A Cache is safe for concurrent use and is meant to be shared by every
// Resolver of a build. Entries are write-once and must be treated as
// read-only; resolvers copy values out before modifying them.
type Cache struct {
	mu    sync.RWMutex
	docs  map[string]any
	group singleflight.Group
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{docs: make(map[string]any)}
}

// Get returns the cached document for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[key]
	return doc, ok
}

// Store injects a parsed document, e.g. one already read by the caller.
func (c *Cache) Store(key string, doc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = doc
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// load returns the cached document for key, calling read at most once per key
// even when many resolvers miss concurrently.
func (c *Cache) load(key string, read func() (any, error)) (any, error) {
	if doc, ok := c.Get(key); ok {
		return doc, nil
	}
	doc, err, _ := c.group.Do(key, func() (any, error) {
		if doc, ok := c.Get(key); ok {
			return doc, nil
		}
		doc, err := read()
		if err != nil {
			return nil, err
		}
		c.Store(key, doc)
		return doc, nil
	})
	return doc, err
}
