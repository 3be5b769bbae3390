// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package pkgops

import (
	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/container"
)

// Extracted is one materialized entry. Err is set when the payload
// could not be read or decoded; the other entries of the same
// extraction are unaffected.
type Extracted struct {
	// Entry carries the payload when Err is nil.
	Entry asset.Entry

	// Record is a copy of the entry's manifest record, or nil.
	Record *asset.ManifestRecord

	// Omitted counts the subtexture rectangles left out of Record.
	Omitted int

	Err error
}

// Extract materializes every entry passing filter. With subtextures
// false, manifest records are returned without their subtexture
// rectangles (reference fields are kept); with subtextures true they
// are returned whole.
//
// Per-entry read and decode failures are reported in the results. The
// returned error is for the package itself, such as a closed package.
func Extract(pkg *container.Package, filter container.Filter, subtextures bool) ([]Extracted, error) {
	var results []Extracted
	for handle, err := range pkg.Entries(filter) {
		if err != nil {
			return nil, err
		}
		record, err := handle.Manifest()
		if err != nil {
			return nil, err
		}
		result := Extracted{Entry: handle.Entry(), Record: record.Clone()}
		if result.Record != nil && !subtextures {
			result.Omitted = len(result.Record.Subtextures)
			result.Record.Subtextures = nil
		}
		result.Entry.Payload, result.Err = handle.Payload()
		results = append(results, result)
	}
	return results, nil
}

// Failed returns the extractions that carry an error.
func Failed(results []Extracted) []Extracted {
	var failed []Extracted
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}
