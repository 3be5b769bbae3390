// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package pkgops

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/container"
)

// PackResult describes a packed package.
type PackResult struct {
	Entries int
	Records int
	Written int64
	Digest  container.Digest
}

// Pack writes entries, in order, as a package of the given kind to
// sink. Each record is attached to the entry of the same name; a
// record naming no entry is an error, and nothing is written.
func Pack(sink io.Writer, kind compress.Kind, entries []asset.Entry, records []asset.ManifestRecord, options container.WriterOptions) (*PackResult, error) {
	recordFor, err := matchRecords(entries, records)
	if err != nil {
		return nil, err
	}
	writer, err := container.Create(sink, kind, options)
	if err != nil {
		return nil, err
	}
	return pack(writer, entries, recordFor)
}

// PackFile is Pack to a file at path, with the sidecar manifest at
// [container.SidecarPath] when options select one. On failure the
// files are removed.
func PackFile(path string, kind compress.Kind, entries []asset.Entry, records []asset.ManifestRecord, options container.WriterOptions) (*PackResult, error) {
	recordFor, err := matchRecords(entries, records)
	if err != nil {
		return nil, err
	}
	writer, err := container.CreateFile(path, kind, options)
	if err != nil {
		return nil, err
	}
	result, err := pack(writer, entries, recordFor)
	if err != nil {
		writer.Close()
		removeErr := os.Remove(path)
		if options.Manifest == container.ManifestSidecar && options.ManifestSink == nil {
			removeErr = errors.Join(removeErr, os.Remove(container.SidecarPath(path)))
		}
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, errors.Join(err, removeErr)
		}
		return nil, err
	}
	return result, nil
}

// matchRecords indexes records by entry name, refusing duplicates and
// records whose entry is not being packed.
func matchRecords(entries []asset.Entry, records []asset.ManifestRecord) (map[string]*asset.ManifestRecord, error) {
	recordFor := make(map[string]*asset.ManifestRecord, len(records))
	for i := range records {
		if _, duplicate := recordFor[records[i].Name]; duplicate {
			return nil, fmt.Errorf("packing: two manifest records for %q", records[i].Name)
		}
		recordFor[records[i].Name] = &records[i]
	}
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name] = struct{}{}
	}
	for _, record := range records {
		if _, ok := names[record.Name]; !ok {
			return nil, fmt.Errorf("packing: manifest record %q names no entry", record.Name)
		}
	}
	return recordFor, nil
}

func pack(writer *container.Writer, entries []asset.Entry, recordFor map[string]*asset.ManifestRecord) (*PackResult, error) {
	for _, entry := range entries {
		if err := writer.Append(entry, recordFor[entry.Name]); err != nil {
			return nil, fmt.Errorf("packing: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return &PackResult{
		Entries: len(entries),
		Records: len(recordFor),
		Written: writer.Written(),
		Digest:  writer.Digest(),
	}, nil
}
