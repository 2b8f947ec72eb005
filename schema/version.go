/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package schema holds the resolver-document versions permute understands and
// the error taxonomy every package reports through.
package schema

import (
	"strings"
)

// Version is a resolver document format version.
type Version int

const (
	// Unknown is the zero Version.
	Unknown Version = iota

	// V2025_10 is the 2025.10 resolver module.
	V2025_10
)

// Latest is the version new documents should declare.
const Latest = V2025_10

var versionNames = []struct {
	version Version
	name    string
}{
	{V2025_10, "2025.10"},
}

func (v Version) String() string {
	for _, vn := range versionNames {
		if vn.version == v {
			return vn.name
		}
	}
	return "unknown"
}

// SupportedVersions lists the accepted values of a document's version field.
func SupportedVersions() []string {
	names := make([]string, len(versionNames))
	for i, vn := range versionNames {
		names[i] = vn.name
	}
	return names
}

// ParseVersion reads a document's version field. A leading "v" and "_" in
// place of "." are tolerated. Anything else is an ErrValidation error.
func ParseVersion(s string) (Version, error) {
	norm := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "v"), "_", ".")
	for _, vn := range versionNames {
		if vn.name == norm {
			return vn.version, nil
		}
	}
	return Unknown, NewError(ErrValidation, "unrecognized resolver version %q", s).
		WithSuggestions(SupportedVersions())
}
