/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package transform

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ToCamelCase converts a string to camelCase.
func ToCamelCase(s string) string {
	words := SplitIntoWords(s)
	if len(words) == 0 {
		return ""
	}
	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)
	var sb strings.Builder
	sb.WriteString(lower.String(words[0]))
	for _, word := range words[1:] {
		sb.WriteString(title.String(word))
	}
	return sb.String()
}

// ToPascalCase converts a string to PascalCase.
func ToPascalCase(s string) string {
	title := cases.Title(language.Und)
	var sb strings.Builder
	for _, word := range SplitIntoWords(s) {
		sb.WriteString(title.String(word))
	}
	return sb.String()
}

// ToSnakeCase converts a string to snake_case.
func ToSnakeCase(s string) string {
	return cases.Lower(language.Und).String(strings.Join(SplitIntoWords(s), "_"))
}

// ToKebabCase converts a string to kebab-case.
func ToKebabCase(s string) string {
	return cases.Lower(language.Und).String(strings.Join(SplitIntoWords(s), "-"))
}

// SplitIntoWords splits a string on hyphens, underscores, dots, spaces, and
// camelCase boundaries.
func SplitIntoWords(s string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for i, r := range s {
		switch {
		case r == '-' || r == '_' || r == '.' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0:
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}
