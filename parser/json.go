/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package parser

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Decode parses JSON (comments and trailing commas allowed) or YAML into a generic value.
func Decode(data []byte) (any, error) {
	if isLikelyJSON(data) {
		var raw any
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return raw, nil
	}

	var yamlRaw any
	if err := yaml.Unmarshal(data, &yamlRaw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return normalizeMap(yamlRaw), nil
}

// DecodeObject is Decode for documents whose root must be an object.
func DecodeObject(data []byte) (map[string]any, error) {
	raw, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object")
	}
	return obj, nil
}

// isLikelyJSON checks if data appears to be JSON rather than YAML.
// JSON typically starts with '{' or '[' (optionally preceded by whitespace/BOM).
func isLikelyJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case 0xEF, 0xBB, 0xBF: // UTF-8 BOM
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

// normalizeMap recursively converts map[interface{}]interface{} to map[string]any.
// YAML with numeric keys (like "10:") creates map[interface{}]interface{},
// which must be normalized for our string-keyed processing.
func normalizeMap(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = normalizeMap(val)
		}
		return x
	case map[any]any:
		result := make(map[string]any, len(x))
		for k, val := range x {
			result[fmt.Sprintf("%v", k)] = normalizeMap(val)
		}
		return result
	case []any:
		for i, val := range x {
			x[i] = normalizeMap(val)
		}
		return x
	default:
		return v
	}
}

// KeyOrder records the declaration order of object keys, keyed by the
// slash-joined path of the object ("" for the root).
type KeyOrder map[string][]string

// Keys returns the declared key order of the object at path, falling back to
// sorted keys of obj when the order is unknown.
func (o KeyOrder) Keys(path string, obj map[string]any) []string {
	if declared, ok := o[path]; ok && len(declared) == len(obj) {
		return declared
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeKeyOrder walks the document with yaml.v3 to recover the source order
// of every object's keys, which Go maps do not keep.
func DecodeKeyOrder(data []byte) (KeyOrder, error) {
	if isLikelyJSON(data) {
		data = jsonc.ToJSON(data)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse for key order: %w", err)
	}
	order := make(KeyOrder)
	if len(root.Content) > 0 {
		walkKeyOrder(root.Content[0], "", order)
	}
	return order, nil
}

func walkKeyOrder(node *yaml.Node, path string, order KeyOrder) {
	switch node.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			keys = append(keys, key)
			walkKeyOrder(node.Content[i+1], joinPointer(path, key), order)
		}
		order[path] = keys
	case yaml.SequenceNode:
		for i, child := range node.Content {
			walkKeyOrder(child, joinPointer(path, fmt.Sprint(i)), order)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walkKeyOrder(node.Alias, path, order)
		}
	}
}

func joinPointer(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}
