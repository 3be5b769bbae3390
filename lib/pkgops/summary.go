// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package pkgops

import (
	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/container"
)

// Summary describes a package as a whole.
type Summary struct {
	Kind    compress.Kind
	Version uint8

	Entries    int
	Compressed int

	RawBytes    uint64
	StoredBytes uint64
	TotalSize   uint64

	// Manifest is "inline", "sidecar" or "none".
	Manifest        string
	ManifestRecords int
	Subtextures     int

	// Types counts entries per type.
	Types map[asset.Type]int

	// CodecAvailable is false when compressed entries cannot be
	// decoded by this binary.
	CodecAvailable bool
}

// Summarize computes a summary without reading any payload.
func Summarize(pkg *container.Package) (Summary, error) {
	header := pkg.Header()
	summary := Summary{
		Kind:           header.Kind,
		Version:        header.Version,
		TotalSize:      header.TotalSize,
		Manifest:       "none",
		Types:          make(map[asset.Type]int),
		CodecAvailable: pkg.Registry().Available(header.Kind) == nil,
	}
	switch {
	case header.InlineManifest:
		summary.Manifest = "inline"
	case pkg.HasManifest():
		summary.Manifest = "sidecar"
	}

	for handle, err := range pkg.Entries(container.Filter{}) {
		if err != nil {
			return Summary{}, err
		}
		summary.Entries++
		if handle.Compressed() {
			summary.Compressed++
		}
		summary.RawBytes += uint64(handle.RawSize())
		summary.StoredBytes += uint64(handle.StoredSize())
		summary.Types[handle.Type()]++
		record, err := handle.Manifest()
		if err != nil {
			return Summary{}, err
		}
		if record != nil {
			summary.ManifestRecords++
			summary.Subtextures += len(record.Subtextures)
		}
	}
	return summary, nil
}
