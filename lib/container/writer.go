// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
)

// ManifestMode selects where a writer puts manifest records.
type ManifestMode int

const (
	// ManifestNone writes no manifest. Appending a record is an
	// error.
	ManifestNone ManifestMode = iota

	// ManifestInline writes the manifest table after the data
	// region.
	ManifestInline

	// ManifestSidecar writes the manifest table to a separate sink
	// in the sidecar format.
	ManifestSidecar
)

// String returns the configuration name of the mode.
func (m ManifestMode) String() string {
	switch m {
	case ManifestNone:
		return "none"
	case ManifestInline:
		return "inline"
	case ManifestSidecar:
		return "sidecar"
	default:
		return fmt.Sprintf("ManifestMode(%d)", int(m))
	}
}

// ParseManifestMode parses "none", "inline" or "sidecar".
func ParseManifestMode(name string) (ManifestMode, error) {
	switch name {
	case "none":
		return ManifestNone, nil
	case "inline":
		return ManifestInline, nil
	case "sidecar":
		return ManifestSidecar, nil
	default:
		return 0, fmt.Errorf("unknown manifest mode %q (expected none, inline or sidecar)", name)
	}
}

// WriterOptions configures Create.
type WriterOptions struct {
	// Version is the layout revision. Zero means [DefaultVersion].
	Version uint8

	// Manifest selects where manifest records go.
	Manifest ManifestMode

	// ManifestSink receives the sidecar file for [ManifestSidecar].
	// CreateFile opens [SidecarPath] when it is nil.
	ManifestSink io.Writer

	// Registry supplies codecs. Nil means [compress.Default].
	Registry *compress.Registry
}

// Writer builds a package. The entry table precedes the data, so the
// writer stages every entry and produces the whole image on Flush:
// encode each payload in append order, lay the blocks out
// contiguously, then write header, table, data and manifest in one
// write.
//
// Typical usage:
//
//	writer, err := container.Create(sink, compress.KindLZ4, container.WriterOptions{})
//	err = writer.Append(entry, record)
//	// ... append more entries ...
//	err = writer.Close()
//
// A Writer is not safe for concurrent use.
type Writer struct {
	sink     io.Writer
	kind     compress.Kind
	options  WriterOptions
	registry *compress.Registry

	// closers are sinks the writer opened itself.
	closers []io.Closer

	staged []stagedEntry
	names  map[string]struct{}

	flushed  bool
	flushErr error
	closed   bool
	written  int64
	digest   Digest
}

type stagedEntry struct {
	entry  asset.Entry
	record *asset.ManifestRecord

	// stored holds already-encoded bytes copied from another package
	// of the same kind; nil means entry.Payload is encoded on Flush.
	stored []byte
}

// Create returns a writer that emits a package of the given kind to
// sink on Flush. The caller keeps ownership of sink.
func Create(sink io.Writer, kind compress.Kind, options WriterOptions) (*Writer, error) {
	options, err := checkOptions(kind, options)
	if err != nil {
		return nil, err
	}
	if options.Manifest == ManifestSidecar && options.ManifestSink == nil {
		return nil, fmt.Errorf("creating package: sidecar manifest requested without a manifest sink")
	}
	registry := options.Registry
	if registry == nil {
		registry = compress.Default()
	}
	return &Writer{
		sink:     sink,
		kind:     kind,
		options:  options,
		registry: registry,
		names:    make(map[string]struct{}),
	}, nil
}

func checkOptions(kind compress.Kind, options WriterOptions) (WriterOptions, error) {
	if !kind.Known() {
		return options, fmt.Errorf("creating package: unknown compression kind 0x%02x", uint8(kind))
	}
	if options.Version == 0 {
		options.Version = DefaultVersion
	}
	if !SupportedVersion(options.Version) {
		return options, fmt.Errorf("creating package: version %d is not supported (supported: %d, %d)",
			options.Version, VersionTransistor, VersionHades)
	}
	return options, nil
}

// CreateFile creates (or truncates) the package at path, and for
// [ManifestSidecar] without a ManifestSink, its sidecar. The writer
// owns both files and closes them on Close.
func CreateFile(path string, kind compress.Kind, options WriterOptions) (*Writer, error) {
	if _, err := checkOptions(kind, options); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating package: %w", err)
	}
	closers := []io.Closer{file}
	if options.Manifest == ManifestSidecar && options.ManifestSink == nil {
		sidecar, err := os.Create(SidecarPath(path))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("creating sidecar manifest: %w", err)
		}
		options.ManifestSink = sidecar
		closers = append(closers, sidecar)
	}

	writer, err := Create(file, kind, options)
	if err != nil {
		for _, closer := range closers {
			closer.Close()
		}
		return nil, err
	}
	writer.closers = closers
	return writer, nil
}

// Kind returns the compression kind the writer encodes with.
func (w *Writer) Kind() compress.Kind { return w.kind }

// Version returns the layout revision the writer emits.
func (w *Writer) Version() uint8 { return w.options.Version }

// Len returns the number of staged entries.
func (w *Writer) Len() int { return len(w.staged) }

// Append stages an entry and its optional manifest record. Only Name,
// Type and Payload of entry are used; the payload is retained, not
// copied, until Flush. A record must carry the entry's name.
func (w *Writer) Append(entry asset.Entry, record *asset.ManifestRecord) error {
	if err := w.checkAppend(entry, record); err != nil {
		return err
	}
	if uint64(len(entry.Payload)) > math.MaxUint32 {
		return fmt.Errorf("entry %q: payload of %d bytes exceeds the format limit", entry.Name, len(entry.Payload))
	}
	w.stage(stagedEntry{
		entry:  asset.Entry{Name: entry.Name, Type: entry.Type, Payload: entry.Payload, RawSize: uint32(len(entry.Payload))},
		record: record.Clone(),
	})
	return nil
}

// AppendFrom stages an entry of an open package. When the source
// package has the writer's compression kind, the stored bytes are
// copied without decoding; otherwise the payload is decoded and
// re-encoded on Flush. A nil record means no manifest record, even if
// the source entry has one.
func (w *Writer) AppendFrom(handle *Handle, record *asset.ManifestRecord) error {
	entry := handle.Entry()
	if handle.Package().Kind() != w.kind {
		payload, err := handle.Payload()
		if err != nil {
			return err
		}
		entry.Payload = payload
		return w.Append(entry, record)
	}

	if err := w.checkAppend(entry, record); err != nil {
		return err
	}
	stored, err := handle.Stored()
	if err != nil {
		return err
	}
	w.stage(stagedEntry{entry: entry, record: record.Clone(), stored: stored})
	return nil
}

func (w *Writer) checkAppend(entry asset.Entry, record *asset.ManifestRecord) error {
	if w.closed {
		return &UseAfterCloseError{Op: "append"}
	}
	if w.flushed {
		return ErrFlushed
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if _, exists := w.names[entry.Name]; exists {
		return &DuplicateEntryError{Name: entry.Name}
	}
	if record != nil {
		if w.options.Manifest == ManifestNone {
			return fmt.Errorf("entry %q: manifest record given but the writer has no manifest", entry.Name)
		}
		if record.Name != entry.Name {
			return fmt.Errorf("entry %q: manifest record is named %q", entry.Name, record.Name)
		}
		if err := record.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) stage(staged stagedEntry) {
	w.names[staged.entry.Name] = struct{}{}
	w.staged = append(w.staged, staged)
}

// Flush encodes every staged entry and writes the package. It runs at
// most once; later calls return the first call's result. Any failure
// is an [*IncompleteWriteError].
func (w *Writer) Flush() error {
	if w.closed {
		return &UseAfterCloseError{Op: "flush"}
	}
	if w.flushed {
		return w.flushErr
	}
	w.flushed = true
	w.flushErr = w.flush()
	return w.flushErr
}

func (w *Writer) flush() error {
	image, sidecar, err := w.build()
	if err != nil {
		return &IncompleteWriteError{Err: err}
	}

	n, err := w.sink.Write(image)
	w.written = int64(n)
	if err == nil && n < len(image) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &IncompleteWriteError{Written: w.written, Err: fmt.Errorf("writing package: %w", err)}
	}
	if sidecar != nil {
		if _, err := w.options.ManifestSink.Write(sidecar); err != nil {
			return &IncompleteWriteError{Written: w.written, Err: fmt.Errorf("writing sidecar manifest: %w", err)}
		}
	}
	w.digest = SumDigest(image)
	return nil
}

// build produces the package image and, for sidecar mode, the
// sidecar file.
func (w *Writer) build() (image, sidecar []byte, err error) {
	records := make([]EntryRecord, len(w.staged))
	blocks := make([][]byte, len(w.staged))
	var manifests []asset.ManifestRecord

	var tableSize int64
	for i, staged := range w.staged {
		stored, compressed, err := w.encode(staged)
		if err != nil {
			return nil, nil, err
		}
		records[i] = EntryRecord{
			Name:       staged.entry.Name,
			Type:       staged.entry.Type,
			Compressed: compressed,
			StoredSize: uint32(len(stored)),
			RawSize:    staged.entry.RawSize,
		}
		blocks[i] = stored
		tableSize += records[i].encodedSize()
		if staged.record != nil {
			manifests = append(manifests, *staged.record)
		}
	}

	offset := uint64(HeaderSize + tableSize)
	for i := range records {
		records[i].DataOffset = offset
		offset += uint64(records[i].StoredSize)
	}

	header := Header{
		Kind:       w.kind,
		Version:    w.options.Version,
		EntryCount: uint32(len(records)),
		TotalSize:  offset,
	}

	var table []byte
	switch w.options.Manifest {
	case ManifestInline:
		table, err = EncodeManifest(manifests)
		if err != nil {
			return nil, nil, err
		}
		header.InlineManifest = true
		header.ManifestCount = uint32(len(manifests))
		header.ManifestOffset = offset
		header.ManifestSize = uint32(len(table))
		header.TotalSize = offset + uint64(len(table))
	case ManifestSidecar:
		sidecar, err = EncodeSidecar(manifests)
		if err != nil {
			return nil, nil, err
		}
	}

	image = make([]byte, 0, header.TotalSize)
	image = header.AppendBinary(image)
	for _, record := range records {
		image = record.AppendBinary(image)
	}
	for _, block := range blocks {
		image = append(image, block...)
	}
	image = append(image, table...)
	return image, sidecar, nil
}

// encode returns the stored bytes for an entry and whether they are
// compressed. Payloads the codec cannot shrink are stored raw.
func (w *Writer) encode(staged stagedEntry) ([]byte, bool, error) {
	if staged.stored != nil {
		return staged.stored, staged.entry.Compressed, nil
	}
	payload := staged.entry.Payload
	if w.kind == compress.KindNone || len(payload) == 0 {
		return payload, false, nil
	}
	encoded, err := w.registry.Encode(w.kind, payload)
	if compress.IsIncompressible(err) {
		return payload, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("encoding entry %q: %w", staged.entry.Name, err)
	}
	if uint64(len(encoded)) > math.MaxUint32 {
		return nil, false, fmt.Errorf("encoding entry %q: %d encoded bytes exceed the format limit", staged.entry.Name, len(encoded))
	}
	return encoded, true, nil
}

// Written returns the number of package bytes the sink accepted.
func (w *Writer) Written() int64 {
	return w.written
}

// Digest returns the digest of the emitted package. It is the zero
// Digest until a Flush succeeds.
func (w *Writer) Digest() Digest {
	return w.digest
}

// Close flushes if that has not happened yet, then closes any files
// the writer opened. A failed flush is returned (as an
// [*IncompleteWriteError]) even though the files are still closed.
// The writer never removes a partially written destination.
func (w *Writer) Close() error {
	if w.closed {
		return &UseAfterCloseError{Op: "close"}
	}
	flushErr := w.Flush()
	w.closed = true
	w.staged = nil

	var closeErrors []error
	for _, closer := range w.closers {
		if err := closer.Close(); err != nil {
			closeErrors = append(closeErrors, err)
		}
	}
	if flushErr != nil {
		return flushErr
	}
	if len(closeErrors) > 0 {
		return fmt.Errorf("closing package: %w", errors.Join(closeErrors...))
	}
	return nil
}
