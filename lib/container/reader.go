// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
)

// Source is random-access package bytes: an open file, a
// [bytes.Reader], or an [io.SectionReader] over a larger image.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Mode selects how much of a package Open parses.
type Mode int

const (
	// ModeRead parses the header and entry table. Manifest records
	// are not loaded.
	ModeRead Mode = iota

	// ModeWithManifest additionally loads manifest records, from the
	// inline table when present and otherwise from the sidecar.
	ModeWithManifest
)

// Options configures Open.
type Options struct {
	// Mode selects manifest loading. OpenFile overrides it with its
	// mode argument.
	Mode Mode

	// Registry supplies codecs. Nil means [compress.Default].
	Registry *compress.Registry

	// ManifestSource is the sidecar manifest for a package without
	// an inline table. OpenFile fills it from [SidecarPath] when the
	// file exists. Ignored when the package has an inline table.
	ManifestSource Source

	// RequireCodec makes Open fail with a [compress.UnavailableError]
	// when the package's compression kind has no registered codec.
	// Without it, such a package opens normally: entries can be
	// listed and raw-stored entries read, and only decoding a
	// compressed entry fails.
	RequireCodec bool

	// Path labels the package in errors.
	Path string
}

// Package is an open package. Header, entry table and manifest are
// parsed when it is opened; payloads are read and decoded only when a
// [Handle] asks for them.
//
// A Package is not safe for concurrent use.
type Package struct {
	path      string
	header    Header
	source    Source
	closer    io.Closer
	registry  *compress.Registry
	handles   []*Handle
	byName    map[string]*Handle
	manifests map[string]*asset.ManifestRecord

	// hasManifest is true when manifest records were loaded, even if
	// there were none.
	hasManifest bool
	closed      bool
}

// Open parses a package from source. Any structural problem is
// returned as a [*FormatError] and no Package is produced. The caller
// keeps ownership of source.
func Open(source Source, options Options) (*Package, error) {
	pkg, err := open(source, options)
	if err != nil {
		return nil, withPath(err, options.Path)
	}
	return pkg, nil
}

// OpenFile opens the package at path. With [ModeWithManifest] and no
// inline table, the sidecar at [SidecarPath] is loaded if it exists.
// The returned package owns the file and closes it on Close.
func OpenFile(path string, mode Mode, options Options) (*Package, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening package: %w", err)
	}

	options.Path = path
	options.Mode = mode
	if mode == ModeWithManifest && options.ManifestSource == nil {
		sidecar, err := os.ReadFile(SidecarPath(path))
		switch {
		case err == nil:
			options.ManifestSource = bytes.NewReader(sidecar)
		case errors.Is(err, fs.ErrNotExist):
		default:
			file.Close()
			return nil, fmt.Errorf("reading sidecar manifest: %w", err)
		}
	}

	pkg, err := Open(io.NewSectionReader(file, 0, info.Size()), options)
	if err != nil {
		file.Close()
		return nil, err
	}
	pkg.closer = file
	return pkg, nil
}

func open(source Source, options Options) (*Package, error) {
	registry := options.Registry
	if registry == nil {
		registry = compress.Default()
	}

	size := source.Size()
	if size < HeaderSize {
		return nil, formatErrorf("file is %d bytes, shorter than the %d-byte header", size, HeaderSize)
	}
	headerBytes, err := readAt(source, 0, HeaderSize)
	if err != nil {
		return nil, &FormatError{Reason: "reading header", Err: err}
	}
	header, err := ParseHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	if header.TotalSize != uint64(size) {
		return nil, formatErrorf("header records %d bytes, file holds %d", header.TotalSize, size)
	}
	if options.RequireCodec {
		if err := registry.Available(header.Kind); err != nil {
			return nil, err
		}
	}

	tableRegion := size - HeaderSize
	if int64(header.EntryCount)*minEntryRecordSize > tableRegion {
		return nil, formatErrorf("header declares %d entries, more than %d bytes can hold", header.EntryCount, tableRegion)
	}
	records, tableSize, err := ParseEntryTable(bufio.NewReader(io.NewSectionReader(source, HeaderSize, tableRegion)), header.EntryCount)
	if err != nil {
		return nil, err
	}
	if err := ValidateLayout(header, records, HeaderSize+tableSize); err != nil {
		return nil, err
	}

	pkg := &Package{
		path:     options.Path,
		header:   header,
		source:   source,
		registry: registry,
		handles:  make([]*Handle, len(records)),
		byName:   make(map[string]*Handle, len(records)),
	}
	for i, record := range records {
		handle := &Handle{pkg: pkg, record: record, index: i}
		pkg.handles[i] = handle
		pkg.byName[record.Name] = handle
	}

	if options.Mode == ModeWithManifest {
		manifests, loaded, err := loadManifest(source, header, records, options.ManifestSource)
		if err != nil {
			return nil, err
		}
		pkg.hasManifest = loaded
		pkg.manifests = make(map[string]*asset.ManifestRecord, len(manifests))
		for i := range manifests {
			pkg.manifests[manifests[i].Name] = &manifests[i]
		}
	}
	return pkg, nil
}

// loadManifest reads the inline manifest table, or the sidecar when
// there is none. loaded is false when neither exists.
func loadManifest(source Source, header Header, records []EntryRecord, sidecar Source) (manifests []asset.ManifestRecord, loaded bool, err error) {
	if header.InlineManifest {
		table, err := readAt(source, int64(header.ManifestOffset), int64(header.ManifestSize))
		if err != nil {
			return nil, false, &FormatError{Reason: "reading manifest table", Err: err}
		}
		manifests, err := ParseManifest(table, header.ManifestCount, records)
		if err != nil {
			return nil, false, err
		}
		return manifests, true, nil
	}
	if sidecar == nil {
		return nil, false, nil
	}
	data, err := readAt(sidecar, 0, sidecar.Size())
	if err != nil {
		return nil, false, &FormatError{Reason: "reading sidecar manifest", Err: err}
	}
	manifests, err = ParseSidecar(data, records)
	if err != nil {
		return nil, false, err
	}
	return manifests, true, nil
}

// Path returns the path the package was opened from, if any.
func (p *Package) Path() string {
	return p.path
}

// Header returns the parsed header.
func (p *Package) Header() Header {
	return p.header
}

// Kind returns the package's compression kind.
func (p *Package) Kind() compress.Kind {
	return p.header.Kind
}

// Version returns the package's layout revision.
func (p *Package) Version() uint8 {
	return p.header.Version
}

// Len returns the number of entries.
func (p *Package) Len() int {
	return len(p.handles)
}

// HasManifest reports whether manifest records were loaded, from an
// inline table or a sidecar.
func (p *Package) HasManifest() bool {
	return p.hasManifest
}

// Registry returns the codec registry the package decodes with.
func (p *Package) Registry() *compress.Registry {
	return p.registry
}

// Entries returns the entries passing filter, in table order.
// Iterating never reads or decodes payloads, and the sequence can be
// iterated any number of times. On a closed package the sequence
// yields a single [*UseAfterCloseError] and stops.
//
//	for handle, err := range pkg.Entries(filter) {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (p *Package) Entries(filter Filter) iter.Seq2[*Handle, error] {
	return func(yield func(*Handle, error) bool) {
		if p.closed {
			yield(nil, &UseAfterCloseError{Op: "entries"})
			return
		}
		for _, handle := range p.handles {
			if p.closed {
				yield(nil, &UseAfterCloseError{Op: "entries"})
				return
			}
			if !filter.Match(handle.record.Name) {
				continue
			}
			if !yield(handle, nil) {
				return
			}
		}
	}
}

// Lookup returns the entry named name. A name the package does not
// hold is an [*EntryError] wrapping [ErrNoEntry].
func (p *Package) Lookup(name string) (*Handle, error) {
	if p.closed {
		return nil, &UseAfterCloseError{Op: "lookup"}
	}
	handle, ok := p.byName[name]
	if !ok {
		return nil, &EntryError{Path: p.path, Entry: name, Err: ErrNoEntry}
	}
	return handle, nil
}

// Manifest returns the manifest record for the named entry, or nil
// when it has none. The record is shared; callers that modify it must
// Clone it first.
func (p *Package) Manifest(name string) (*asset.ManifestRecord, error) {
	if p.closed {
		return nil, &UseAfterCloseError{Op: "manifest"}
	}
	return p.manifests[name], nil
}

// Close releases memoized payloads and, for packages from OpenFile,
// the underlying file. Afterwards Entries, Lookup, Manifest and the
// handles' Payload, Stored and Manifest fail with a
// [*UseAfterCloseError].
func (p *Package) Close() error {
	if p.closed {
		return &UseAfterCloseError{Op: "close"}
	}
	p.closed = true
	for _, handle := range p.handles {
		handle.payload = nil
		handle.err = nil
	}
	p.manifests = nil
	if p.closer != nil {
		if err := p.closer.Close(); err != nil {
			return fmt.Errorf("closing package: %w", err)
		}
	}
	return nil
}

// readStored reads an entry's data block.
func (p *Package) readStored(record EntryRecord) ([]byte, error) {
	return readAt(p.source, int64(record.DataOffset), int64(record.StoredSize))
}

// Handle is a lazy reference to one entry of an open package.
type Handle struct {
	pkg    *Package
	record EntryRecord
	index  int

	loaded  bool
	payload []byte
	err     error
}

// Name returns the entry name.
func (h *Handle) Name() string { return h.record.Name }

// ShortName returns the last backslash-separated segment of the name.
func (h *Handle) ShortName() string { return asset.ShortName(h.record.Name) }

// Type returns the entry type.
func (h *Handle) Type() asset.Type { return h.record.Type }

// Compressed reports whether the stored bytes are codec-encoded.
func (h *Handle) Compressed() bool { return h.record.Compressed }

// RawSize returns the decoded payload length.
func (h *Handle) RawSize() uint32 { return h.record.RawSize }

// StoredSize returns the on-disk data block length.
func (h *Handle) StoredSize() uint32 { return h.record.StoredSize }

// Index returns the entry's position in the entry table.
func (h *Handle) Index() int { return h.index }

// Record returns the entry table row.
func (h *Handle) Record() EntryRecord { return h.record }

// Package returns the package the entry belongs to.
func (h *Handle) Package() *Package { return h.pkg }

// Manifest returns the entry's manifest record, or nil.
func (h *Handle) Manifest() (*asset.ManifestRecord, error) {
	return h.pkg.Manifest(h.record.Name)
}

// Entry returns the entry's metadata. Payload is left nil.
func (h *Handle) Entry() asset.Entry {
	return asset.Entry{
		Name:       h.record.Name,
		Type:       h.record.Type,
		Compressed: h.record.Compressed,
		RawSize:    h.record.RawSize,
		StoredSize: h.record.StoredSize,
	}
}

// Payload reads and decodes the entry. The first call does the work;
// later calls return the same bytes or the same error. Failures are
// [*EntryError] values wrapping a [*compress.CodecError],
// [*compress.UnavailableError] or read error.
func (h *Handle) Payload() ([]byte, error) {
	if h.pkg.closed {
		return nil, &UseAfterCloseError{Op: "payload"}
	}
	if !h.loaded {
		h.payload, h.err = h.decode()
		h.loaded = true
	}
	return h.payload, h.err
}

func (h *Handle) decode() ([]byte, error) {
	stored, err := h.pkg.readStored(h.record)
	if err != nil {
		return nil, h.entryError(fmt.Errorf("reading data block: %w", err))
	}
	if !h.record.Compressed {
		return stored, nil
	}
	payload, err := h.pkg.registry.Decode(h.pkg.header.Kind, stored, int(h.record.RawSize))
	if err != nil {
		return nil, h.entryError(err)
	}
	return payload, nil
}

// Stored returns the entry's data block exactly as stored, without
// decoding. Each call reads the block again.
func (h *Handle) Stored() ([]byte, error) {
	if h.pkg.closed {
		return nil, &UseAfterCloseError{Op: "stored"}
	}
	stored, err := h.pkg.readStored(h.record)
	if err != nil {
		return nil, h.entryError(fmt.Errorf("reading data block: %w", err))
	}
	return stored, nil
}

func (h *Handle) entryError(err error) error {
	return &EntryError{Path: h.pkg.path, Entry: h.record.Name, Err: err}
}

// readAt reads exactly length bytes at offset.
func readAt(source io.ReaderAt, offset, length int64) ([]byte, error) {
	data := make([]byte, length)
	n, err := source.ReadAt(data, offset)
	if n == len(data) {
		return data, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("reading %d bytes at offset %d: %w", length, offset, err)
}
