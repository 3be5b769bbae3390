// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package patch

import (
	"fmt"
	"io"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/container"
)

// Options configures a merge.
type Options struct {
	// Observer receives merge events. Nil means [NopObserver].
	Observer Observer

	// Registry is passed to the output writer. Merging copies stored
	// blocks, so it is only consulted if the writer has to encode.
	Registry *compress.Registry

	// Manifest selects where the merged manifest goes. [MergeFiles]
	// chooses it from the inputs and ignores this field.
	Manifest container.ManifestMode

	// ManifestSink receives the sidecar for
	// [container.ManifestSidecar].
	ManifestSink io.Writer
}

// Result summarizes a completed merge. Kept, Replaced and Appended
// partition Names.
type Result struct {
	// Kept counts base entries no patch replaced.
	Kept int

	// Replaced counts base entries replaced by at least one patch.
	Replaced int

	// Appended counts entries no base entry had.
	Appended int

	// Names is the merged entry order.
	Names []string

	// Written is the size of the emitted package.
	Written int64

	// Digest identifies the emitted package bytes.
	Digest container.Digest
}

// slot is one position in the merged entry list.
type slot struct {
	handle *container.Handle
	record *asset.ManifestRecord

	// fromBase is true while the base entry has not been replaced.
	fromBase bool
	// inBase is true for names the base package had.
	inBase bool
}

// CheckCompatible returns an [*IncompatibleKindError] for the first
// patch whose compression kind differs from base's.
func CheckCompatible(base *container.Package, patches []*container.Package) error {
	for _, patch := range patches {
		if patch.Kind() != base.Kind() {
			return &IncompatibleKindError{Path: patch.Path(), Base: base.Kind(), Patch: patch.Kind()}
		}
	}
	return nil
}

// Merge writes base with patches applied to sink. Packages should be
// opened with [container.ModeWithManifest] for records to carry over;
// a package without a manifest contributes entries without records.
//
// The output has the base package's kind and version. Nothing is
// written to sink if a patch is incompatible.
func Merge(base *container.Package, patches []*container.Package, sink io.Writer, options Options) (*Result, error) {
	if err := CheckCompatible(base, patches); err != nil {
		return nil, err
	}
	observer := options.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	slots, err := plan(base, patches, observer)
	if err != nil {
		return nil, err
	}

	writer, err := container.Create(sink, base.Kind(), container.WriterOptions{
		Version:      base.Version(),
		Manifest:     options.Manifest,
		ManifestSink: options.ManifestSink,
		Registry:     options.Registry,
	})
	if err != nil {
		return nil, fmt.Errorf("creating merged package: %w", err)
	}

	result := &Result{Names: make([]string, len(slots))}
	for i, entry := range slots {
		record := entry.record
		if options.Manifest == container.ManifestNone {
			record = nil
		}
		if err := writer.AppendFrom(entry.handle, record); err != nil {
			return nil, fmt.Errorf("merging entry %q: %w", entry.handle.Name(), err)
		}
		result.Names[i] = entry.handle.Name()
		switch {
		case entry.fromBase:
			result.Kept++
		case entry.inBase:
			result.Replaced++
		default:
			result.Appended++
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	result.Written = writer.Written()
	result.Digest = writer.Digest()
	return result, nil
}

// plan computes the merged entry list: base order with replacements in
// place, then new names in first-seen order.
func plan(base *container.Package, patches []*container.Package, observer Observer) ([]*slot, error) {
	var slots []*slot
	byName := make(map[string]*slot, base.Len())

	for handle, err := range base.Entries(container.Filter{}) {
		if err != nil {
			return nil, err
		}
		record, err := handle.Manifest()
		if err != nil {
			return nil, err
		}
		entry := &slot{handle: handle, record: record, fromBase: true, inBase: true}
		slots = append(slots, entry)
		byName[handle.Name()] = entry
	}

	for _, patch := range patches {
		for handle, err := range patch.Entries(container.Filter{}) {
			if err != nil {
				return nil, fmt.Errorf("reading patch %s: %w", patch.Path(), err)
			}
			record, err := handle.Manifest()
			if err != nil {
				return nil, fmt.Errorf("reading patch %s: %w", patch.Path(), err)
			}
			if existing, ok := byName[handle.Name()]; ok {
				existing.handle = handle
				existing.record = record
				existing.fromBase = false
				observer.EntryReplaced(handle.Name(), patch.Path())
				continue
			}
			entry := &slot{handle: handle, record: record}
			slots = append(slots, entry)
			byName[handle.Name()] = entry
			observer.EntryAppended(handle.Name(), patch.Path())
		}
	}

	for _, entry := range slots {
		if entry.fromBase {
			observer.EntryKept(entry.handle.Name())
		}
	}
	return slots, nil
}

// ManifestModeFor picks the manifest placement for merging base with
// patches: the base package's placement when it has a manifest,
// otherwise that of the first patch with one, otherwise none.
func ManifestModeFor(base *container.Package, patches []*container.Package) container.ManifestMode {
	for _, pkg := range append([]*container.Package{base}, patches...) {
		if !pkg.HasManifest() {
			continue
		}
		if pkg.Header().InlineManifest {
			return container.ManifestInline
		}
		return container.ManifestSidecar
	}
	return container.ManifestNone
}
