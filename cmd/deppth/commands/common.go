// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/deppth/deppth/lib/container"
)

// filterParams is embedded by commands that select entries by name.
type filterParams struct {
	Filters []string `json:"filters" flag:"filter,f" desc:"entry name pattern; full name or last segment, '*' and '?' wildcards (repeatable)"`
}

func (p *filterParams) filter() (container.Filter, error) {
	return container.NewFilter(p.Filters...)
}

// requireArgs checks the number of positional arguments.
func requireArgs(args []string, minimum, maximum int, usage string) error {
	if len(args) < minimum || (maximum >= 0 && len(args) > maximum) {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// openPackage opens a package file with its manifest.
func openPackage(path string) (*container.Package, error) {
	return container.OpenFile(path, container.ModeWithManifest, container.Options{})
}
