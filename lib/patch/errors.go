// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package patch

import (
	"fmt"

	"github.com/deppth/deppth/lib/compress"
)

// IncompatibleKindError reports a patch whose compression kind differs
// from the base package's.
type IncompatibleKindError struct {
	// Path is the offending patch.
	Path string

	Base  compress.Kind
	Patch compress.Kind
}

func (e *IncompatibleKindError) Error() string {
	path := e.Path
	if path == "" {
		path = "(unnamed)"
	}
	return fmt.Sprintf("patch %s uses compression kind %s, base package uses %s", path, e.Patch, e.Base)
}
