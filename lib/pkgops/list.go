// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package pkgops

import (
	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/container"
)

// Listing describes one entry without reading its payload.
type Listing struct {
	Name       string
	Type       asset.Type
	Compressed bool
	RawSize    uint32
	StoredSize uint32

	// Subtextures are the names of the entry's atlas sub-rectangles,
	// when the package was opened with its manifest.
	Subtextures []string
}

// List returns the entries passing filter, in package order. The
// filter applies to entry names only; subtexture names are reported
// under their atlas but never matched.
func List(pkg *container.Package, filter container.Filter) ([]Listing, error) {
	var listings []Listing
	for handle, err := range pkg.Entries(filter) {
		if err != nil {
			return nil, err
		}
		record, err := handle.Manifest()
		if err != nil {
			return nil, err
		}
		listings = append(listings, Listing{
			Name:        handle.Name(),
			Type:        handle.Type(),
			Compressed:  handle.Compressed(),
			RawSize:     handle.RawSize(),
			StoredSize:  handle.StoredSize(),
			Subtextures: record.SubtextureNames(),
		})
	}
	return listings, nil
}

// ListNames returns entry names passing filter, each followed by its
// subtexture names.
func ListNames(pkg *container.Package, filter container.Filter) ([]string, error) {
	listings, err := List(pkg, filter)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, listing := range listings {
		names = append(names, listing.Name)
		names = append(names, listing.Subtextures...)
	}
	return names, nil
}
