/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package suggest finds the closest valid names for a failed lookup.
package suggest

import (
	"sort"

	"github.com/agext/levenshtein"
)

const (
	// DefaultMaxDistance is the largest edit distance still considered a typo.
	DefaultMaxDistance = 3

	// DefaultMaxSuggestions caps the number of returned candidates.
	DefaultMaxSuggestions = 3
)

// Options tunes Suggest.
type Options struct {
	MaxDistance    int
	MaxSuggestions int
}

// Suggest returns up to MaxSuggestions candidates within MaxDistance edits
// of input, closest first. Ties keep the order of candidates.
func Suggest(input string, candidates []string, opts ...Options) []string {
	o := Options{MaxDistance: DefaultMaxDistance, MaxSuggestions: DefaultMaxSuggestions}
	if len(opts) > 0 {
		if opts[0].MaxDistance > 0 {
			o.MaxDistance = opts[0].MaxDistance
		}
		if opts[0].MaxSuggestions > 0 {
			o.MaxSuggestions = opts[0].MaxSuggestions
		}
	}

	type scored struct {
		name     string
		distance int
	}
	var matches []scored
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] || c == input {
			continue
		}
		seen[c] = true
		d := levenshtein.Distance(input, c, nil)
		if d <= o.MaxDistance {
			matches = append(matches, scored{c, d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	if len(matches) > o.MaxSuggestions {
		matches = matches[:o.MaxSuggestions]
	}
	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = m.name
	}
	return result
}
