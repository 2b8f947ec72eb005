/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package parser decodes token documents and flattens them into token tables.
package parser

import (
	"slices"
	"strings"

	"github.com/mohae/deepcopy"

	"bennypowers.dev/permute/token"
)

// Flatten walks a nested token document depth-first and returns one entry per
// token, keyed by dot-path. Group $type is inherited by descendants that do not
// declare their own. $root children are kept as "group.$root" entries.
func Flatten(tree map[string]any) token.Table {
	result := make(token.Table)
	extractTokens(tree, nil, "", result)
	return result
}

// extractTokens recursively extracts tokens from a parsed map.
// inheritedType is passed down from parent groups for $type inheritance.
func extractTokens(data map[string]any, path []string, inheritedType string, result token.Table) {
	currentType := inheritedType
	if groupType, ok := data["$type"].(string); ok {
		currentType = groupType
	}

	for key, v := range data {
		if strings.HasPrefix(key, "$") && key != token.RootKey {
			continue
		}
		if strings.HasPrefix(key, "_") {
			continue
		}

		valueMap, ok := v.(map[string]any)
		if !ok {
			continue
		}

		currentPath := slices.Clip(append(path, key))

		_, hasValue := valueMap["$value"]
		_, hasRef := valueMap["$ref"]
		if hasValue || hasRef {
			t := createToken(valueMap, currentPath, currentType)
			result[t.Name] = t
			continue
		}

		extractTokens(valueMap, currentPath, currentType, result)
	}
}

// createToken creates a Token from map data.
// inheritedType is the $type from parent groups for inheritance.
func createToken(valueMap map[string]any, path []string, inheritedType string) *token.Token {
	value, hasValue := valueMap["$value"]
	if !hasValue {
		// An unresolved $ref stays visible as its reference object.
		value = map[string]any{"$ref": valueMap["$ref"]}
	}

	t := &token.Token{
		Name:          token.JoinPath(path),
		Path:          path,
		Value:         value,
		OriginalValue: deepcopy.Copy(value),
	}

	if typeStr, ok := valueMap["$type"].(string); ok {
		t.Type = typeStr
	} else if inheritedType != "" {
		t.Type = inheritedType
	}
	if descStr, ok := valueMap["$description"].(string); ok {
		t.Description = descStr
	}
	if deprecated, ok := valueMap["$deprecated"]; ok {
		if depBool, ok := deprecated.(bool); ok {
			t.Deprecated = depBool
		} else if depStr, ok := deprecated.(string); ok {
			t.Deprecated = true
			t.DeprecationMessage = depStr
		}
	}
	if extensions, ok := valueMap["$extensions"].(map[string]any); ok {
		t.Extensions = extensions
	}
	if set, ok := valueMap[token.SourceSetKey].(string); ok {
		t.SourceSet = set
	}
	if mod, ok := valueMap[token.SourceModifierKey].(string); ok {
		t.SourceModifier = mod
	}

	return t
}
