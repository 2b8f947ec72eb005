/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package token

import (
	"regexp"
	"strings"
)

var (
	// curlyBracePattern matches {token.path} references anywhere in a string.
	curlyBracePattern = regexp.MustCompile(`\{([^{}]+)\}`)

	// pureAliasPattern matches a string that is exactly one {token.path} reference.
	pureAliasPattern = regexp.MustCompile(`^\{([^{}]+)\}$`)

	// rootRefPattern matches {group.$root} references.
	rootRefPattern = regexp.MustCompile(`\{([^{}]+)\.\$root\}`)
)

// ParsePureAlias returns the referenced name when value is exactly "{name}".
func ParsePureAlias(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	matches := pureAliasPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(matches) != 2 {
		return "", false
	}
	return strings.TrimSpace(matches[1]), true
}

// IsCurlyBraceRef returns true if the value contains a curly brace reference.
func IsCurlyBraceRef(value string) bool {
	return curlyBracePattern.MatchString(value)
}

// ExtractAllRefs extracts all curly brace references from a string.
func ExtractAllRefs(value string) []string {
	matches := curlyBracePattern.FindAllStringSubmatch(value, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) >= 2 {
			refs = append(refs, strings.TrimSpace(m[1]))
		}
	}
	return refs
}

// ExtractRefsFromValue walks strings, arrays, and objects collecting every
// curly brace reference.
func ExtractRefsFromValue(value any) []string {
	switch v := value.(type) {
	case string:
		return ExtractAllRefs(v)
	case []any:
		var refs []string
		for _, item := range v {
			refs = append(refs, ExtractRefsFromValue(item)...)
		}
		return refs
	case map[string]any:
		var refs []string
		for _, item := range v {
			refs = append(refs, ExtractRefsFromValue(item)...)
		}
		return refs
	default:
		return nil
	}
}

// ReplaceRefs calls replace for every {name} in s and splices in the result.
// When replace returns false the reference is left as written.
func ReplaceRefs(s string, replace func(name string) (string, bool)) string {
	return curlyBracePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[1 : len(match)-1])
		if out, ok := replace(name); ok {
			return out
		}
		return match
	})
}

// StripRootRefs rewrites {group.$root} to {group} in strings, arrays, and objects.
func StripRootRefs(value any) any {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, RootKey) {
			return v
		}
		return rootRefPattern.ReplaceAllString(v, "{${1}}")
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = StripRootRefs(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = StripRootRefs(item)
		}
		return out
	default:
		return v
	}
}

// SplitPath splits a dot-path into segments.
func SplitPath(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

// JoinPath joins segments into a dot-path.
func JoinPath(path []string) string {
	return strings.Join(path, ".")
}
