// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"path"
	"strings"

	"github.com/deppth/deppth/lib/asset"
)

// Filter selects entries by name. Patterns use [path.Match] syntax and
// are tried against both the full entry name and its short name (the
// segment after the last backslash), so "*Nova02" selects
// `Fx\Nova02`. A backslash in a pattern is a name separator, not an
// escape.
//
// Filters never match subtexture names inside manifest records. An
// atlas is selected only by its own entry name, even when one of its
// sprites would match.
//
// The zero Filter matches every entry.
type Filter struct {
	patterns []string
}

// NewFilter compiles patterns into a filter. No patterns means match
// everything. A malformed pattern is an error.
func NewFilter(patterns ...string) (Filter, error) {
	normalized := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern == "" {
			return Filter{}, fmt.Errorf("empty filter pattern")
		}
		candidate := toSlashes(pattern)
		if _, err := path.Match(candidate, ""); err != nil {
			return Filter{}, fmt.Errorf("filter pattern %q: %w", pattern, err)
		}
		normalized = append(normalized, candidate)
	}
	return Filter{patterns: normalized}, nil
}

// Match reports whether the entry named name passes the filter.
func (f Filter) Match(name string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	full := toSlashes(name)
	short := asset.ShortName(name)
	for _, pattern := range f.patterns {
		if matched, _ := path.Match(pattern, full); matched {
			return true
		}
		if matched, _ := path.Match(pattern, short); matched {
			return true
		}
	}
	return false
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return len(f.patterns) == 0
}

func toSlashes(name string) string {
	return strings.ReplaceAll(name, asset.NameSeparator, "/")
}
