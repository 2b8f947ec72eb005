/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package resolver

import (
	"slices"
	"sort"
	"strings"

	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/suggest"
)

// groupExtension represents a group that extends another group.
type groupExtension struct {
	// path is the JSON path to this group (e.g., ["theme"])
	path []string
	// extendsPath is the JSON path to the extended group (e.g., ["base"])
	extendsPath []string
}

// ResolveGroupExtensions resolves $extends in a token document. Each extending
// group receives a deep copy of the extended group's children; children the
// extending group declares itself win, and nested groups merge. The result is
// a new document; tree is not modified.
//
// Call it after reference resolution and before flattening.
func ResolveGroupExtensions(tree map[string]any) (map[string]any, error) {
	extensions, err := findExtensions(tree, nil)
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		return tree, nil
	}

	if cycle := findExtensionCycle(extensions); cycle != nil {
		return nil, schema.NewError(schema.ErrCircularReference,
			"circular $extends: %s", strings.Join(cycle, " -> "))
	}

	out := deepcopy.Copy(tree).(map[string]any)
	for _, ext := range topologicalSortExtensions(extensions) {
		base, err := groupAt(out, ext.extendsPath)
		if err != nil {
			return nil, err
		}
		group, err := groupAt(out, ext.path)
		if err != nil {
			return nil, err
		}
		inherit(group, base)
		delete(group, "$extends")
	}

	return out, nil
}

// findExtensions recursively finds all groups with $extends.
func findExtensions(data map[string]any, currentPath []string) ([]groupExtension, error) {
	var extensions []groupExtension

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.HasPrefix(key, "$") {
			continue
		}

		valueMap, ok := data[key].(map[string]any)
		if !ok {
			continue
		}
		if _, isToken := valueMap["$value"]; isToken {
			continue
		}

		childPath := append(slices.Clone(currentPath), key)

		if raw, ok := valueMap["$extends"]; ok {
			extendsRef, _ := raw.(string)
			extendsPath := parseJSONPointer(extendsRef)
			if extendsPath == nil {
				return nil, schema.NewError(schema.ErrValidation,
					"$extends must be a JSON pointer like \"#/group\", got %v", raw).
					WithToken(strings.Join(childPath, "."))
			}
			extensions = append(extensions, groupExtension{
				path:        childPath,
				extendsPath: extendsPath,
			})
		}

		childExtensions, err := findExtensions(valueMap, childPath)
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, childExtensions...)
	}

	return extensions, nil
}

// parseJSONPointer parses a JSON Pointer reference (e.g., "#/base/colors") into path segments.
func parseJSONPointer(ref string) []string {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	path := strings.TrimPrefix(ref, "#/")
	if path == "" {
		return nil
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
	}
	return segments
}

// findExtensionCycle detects circular $extends references.
// Returns the cycle path if found, nil otherwise.
func findExtensionCycle(extensions []groupExtension) []string {
	// Build adjacency map: extending group -> extended group
	extendsMap := make(map[string]string)
	for _, ext := range extensions {
		from := strings.Join(ext.path, "/")
		to := strings.Join(ext.extendsPath, "/")
		extendsMap[from] = to
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var findCycleDFS func(node string, path []string) []string
	findCycleDFS = func(node string, path []string) []string {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		if next, ok := extendsMap[node]; ok {
			if recStack[next] {
				cycleStart := slices.Index(path, next)
				if cycleStart >= 0 {
					return append(path[cycleStart:], next)
				}
				return append(path, next)
			}
			if !visited[next] {
				if cycle := findCycleDFS(next, path); cycle != nil {
					return cycle
				}
			}
		}

		recStack[node] = false
		return nil
	}

	for _, ext := range extensions {
		node := strings.Join(ext.path, "/")
		if !visited[node] {
			if cycle := findCycleDFS(node, nil); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// topologicalSortExtensions sorts extensions so that base groups come first.
func topologicalSortExtensions(extensions []groupExtension) []groupExtension {
	extendsMap := make(map[string]string)
	for _, ext := range extensions {
		from := strings.Join(ext.path, "/")
		to := strings.Join(ext.extendsPath, "/")
		extendsMap[from] = to
	}

	// Depth is the length of the extends chain above each group.
	depths := make(map[string]int)
	var getDepth func(path string) int
	getDepth = func(path string) int {
		if d, ok := depths[path]; ok {
			return d
		}
		if next, ok := extendsMap[path]; ok {
			depths[path] = getDepth(next) + 1
		} else {
			depths[path] = 0
		}
		return depths[path]
	}

	for _, ext := range extensions {
		getDepth(strings.Join(ext.path, "/"))
	}

	result := slices.Clone(extensions)
	sort.SliceStable(result, func(i, j int) bool {
		pathI := strings.Join(result[i].path, "/")
		pathJ := strings.Join(result[j].path, "/")
		return depths[pathI] < depths[pathJ]
	})

	return result
}

// groupAt returns the group at path.
func groupAt(tree map[string]any, path []string) (map[string]any, error) {
	current := tree
	for i, segment := range path {
		next, ok := current[segment].(map[string]any)
		if !ok {
			var candidates []string
			for k := range current {
				if !strings.HasPrefix(k, "$") {
					candidates = append(candidates, k)
				}
			}
			sort.Strings(candidates)
			return nil, schema.NewError(schema.ErrTokenReference,
				"$extends target #/%s not found", strings.Join(path, "/")).
				WithToken(strings.Join(path[:i+1], ".")).
				WithSuggestions(suggest.Suggest(segment, candidates))
		}
		current = next
	}
	if _, isToken := current["$value"]; isToken {
		return nil, schema.NewError(schema.ErrValidation,
			"$extends target #/%s is a token, not a group", strings.Join(path, "/"))
	}
	return current, nil
}

// inherit copies base's children into group. Children group declares win;
// nested groups merge recursively.
func inherit(group, base map[string]any) {
	for key, baseChild := range base {
		if key == "$extends" {
			continue
		}
		own, exists := group[key]
		if !exists {
			group[key] = deepcopy.Copy(baseChild)
			continue
		}
		ownGroup, ownIsGroup := asGroup(own)
		baseGroup, baseIsGroup := asGroup(baseChild)
		if ownIsGroup && baseIsGroup {
			inherit(ownGroup, baseGroup)
		}
	}
}

// asGroup reports whether v is a group node.
func asGroup(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, isToken := m["$value"]; isToken {
		return nil, false
	}
	return m, true
}
