// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
)

// Package format constants. All integers are big-endian.
const (
	// HeaderSize is the fixed header: 4-byte magic + 1-byte kind
	// + 2 reserved bytes + 1-byte version + 4-byte flags + 4-byte entry
	// count + 4-byte manifest count + 8-byte manifest offset + 4-byte
	// manifest size + 4 reserved bytes + 8-byte total size.
	HeaderSize = 44

	// VersionTransistor is the layout revision used by Transistor and
	// Pyre.
	VersionTransistor uint8 = 5

	// VersionHades is the layout revision used by Hades.
	VersionHades uint8 = 7

	// DefaultVersion is written when no version is requested.
	DefaultVersion = VersionHades

	// entryRecordFixedSize is every entry table field except the
	// name: 1-byte name length + 1-byte type + 1-byte flags + 4-byte
	// stored size + 4-byte raw size + 8-byte data offset.
	entryRecordFixedSize = 19

	// minEntryRecordSize is the smallest possible entry record, with
	// a one-byte name.
	minEntryRecordSize = entryRecordFixedSize + 1
)

// Header flag bits.
const (
	flagInlineManifest uint32 = 1 << 0

	knownHeaderFlags = flagInlineManifest
)

// Entry flag bits.
const (
	entryFlagCompressed uint8 = 1 << 0

	knownEntryFlags = entryFlagCompressed
)

// packageMagic is the 4-byte package file signature.
var packageMagic = [4]byte{'S', 'G', 'P', 'K'}

// SupportedVersion reports whether version is a layout revision this
// package reads and writes.
func SupportedVersion(version uint8) bool {
	return version == VersionTransistor || version == VersionHades
}

// Header is the fixed-size package header.
type Header struct {
	// Kind is the compression family for every compressed entry.
	Kind compress.Kind

	// Version is the layout revision (5 or 7).
	Version uint8

	// InlineManifest is set when a manifest table follows the data
	// region.
	InlineManifest bool

	EntryCount    uint32
	ManifestCount uint32

	// ManifestOffset and ManifestSize locate the inline manifest
	// table. Both are zero when InlineManifest is false.
	ManifestOffset uint64
	ManifestSize   uint32

	// TotalSize is the length of the whole package file.
	TotalSize uint64
}

// ParseHeader decodes the header from the first [HeaderSize] bytes of
// data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, formatErrorf("header is %d bytes, need %d", len(data), HeaderSize)
	}
	if [4]byte(data[0:4]) != packageMagic {
		return Header{}, formatErrorf("not a deppth package (invalid magic bytes %q)", data[0:4])
	}

	header := Header{
		Kind:           compress.Kind(data[4]),
		Version:        data[7],
		EntryCount:     binary.BigEndian.Uint32(data[12:16]),
		ManifestCount:  binary.BigEndian.Uint32(data[16:20]),
		ManifestOffset: binary.BigEndian.Uint64(data[20:28]),
		ManifestSize:   binary.BigEndian.Uint32(data[28:32]),
		TotalSize:      binary.BigEndian.Uint64(data[36:44]),
	}

	if !header.Kind.Known() {
		return Header{}, formatErrorf("unknown compression kind 0x%02x", uint8(header.Kind))
	}
	if data[5] != 0 || data[6] != 0 {
		return Header{}, formatErrorf("non-zero reserved bytes after kind: %x", data[5:7])
	}
	if !SupportedVersion(header.Version) {
		return Header{}, formatErrorf("package version %d is not supported (supported: %d, %d)",
			header.Version, VersionTransistor, VersionHades)
	}
	flags := binary.BigEndian.Uint32(data[8:12])
	if flags&^knownHeaderFlags != 0 {
		return Header{}, formatErrorf("unknown header flags 0x%08x", flags&^knownHeaderFlags)
	}
	header.InlineManifest = flags&flagInlineManifest != 0
	if [4]byte(data[32:36]) != [4]byte{} {
		return Header{}, formatErrorf("non-zero reserved bytes after manifest size: %x", data[32:36])
	}
	if !header.InlineManifest && (header.ManifestCount != 0 || header.ManifestOffset != 0 || header.ManifestSize != 0) {
		return Header{}, formatErrorf("manifest fields set without the inline manifest flag")
	}
	return header, nil
}

// AppendBinary appends the encoded header to b.
func (h Header) AppendBinary(b []byte) []byte {
	var flags uint32
	if h.InlineManifest {
		flags |= flagInlineManifest
	}
	b = append(b, packageMagic[:]...)
	b = append(b, byte(h.Kind), 0, 0, h.Version)
	b = binary.BigEndian.AppendUint32(b, flags)
	b = binary.BigEndian.AppendUint32(b, h.EntryCount)
	b = binary.BigEndian.AppendUint32(b, h.ManifestCount)
	b = binary.BigEndian.AppendUint64(b, h.ManifestOffset)
	b = binary.BigEndian.AppendUint32(b, h.ManifestSize)
	b = append(b, 0, 0, 0, 0)
	b = binary.BigEndian.AppendUint64(b, h.TotalSize)
	return b
}

// EntryRecord is one row of the entry table.
type EntryRecord struct {
	Name       string
	Type       asset.Type
	Compressed bool
	StoredSize uint32
	RawSize    uint32

	// DataOffset is the absolute file offset of the entry's data
	// block.
	DataOffset uint64
}

// encodedSize is the record's length in the entry table.
func (r EntryRecord) encodedSize() int64 {
	return entryRecordFixedSize + int64(len(r.Name))
}

// AppendBinary appends the encoded record to b. The name must already
// be valid.
func (r EntryRecord) AppendBinary(b []byte) []byte {
	var flags uint8
	if r.Compressed {
		flags |= entryFlagCompressed
	}
	b = append(b, byte(len(r.Name)))
	b = append(b, r.Name...)
	b = append(b, byte(r.Type), flags)
	b = binary.BigEndian.AppendUint32(b, r.StoredSize)
	b = binary.BigEndian.AppendUint32(b, r.RawSize)
	b = binary.BigEndian.AppendUint64(b, r.DataOffset)
	return b
}

// ParseEntryTable reads count entry records from r, which must be
// positioned immediately after the header. It returns the records in
// table order and the number of bytes the table occupies.
//
// Names are checked for validity and uniqueness here; offsets are
// checked against the header by [ValidateLayout].
func ParseEntryTable(r io.Reader, count uint32) ([]EntryRecord, int64, error) {
	records := make([]EntryRecord, 0, min(count, 4096))
	seen := make(map[string]struct{}, min(count, 4096))
	var tableSize int64

	var fixed [entryRecordFixedSize - 1]byte
	for i := uint32(0); i < count; i++ {
		var nameLength [1]byte
		if _, err := io.ReadFull(r, nameLength[:]); err != nil {
			return nil, 0, &FormatError{Reason: fmt.Sprintf("reading entry %d name length", i), Err: unexpectedEOF(err)}
		}
		if nameLength[0] == 0 {
			return nil, 0, formatErrorf("entry %d has an empty name", i)
		}
		name := make([]byte, nameLength[0])
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, 0, &FormatError{Reason: fmt.Sprintf("reading entry %d name", i), Err: unexpectedEOF(err)}
		}
		if _, err := io.ReadFull(r, fixed[:]); err != nil {
			return nil, 0, &FormatError{Entry: string(name), Reason: "reading entry record", Err: unexpectedEOF(err)}
		}

		record := EntryRecord{
			Name:       string(name),
			Type:       asset.Type(fixed[0]),
			Compressed: fixed[1]&entryFlagCompressed != 0,
			StoredSize: binary.BigEndian.Uint32(fixed[2:6]),
			RawSize:    binary.BigEndian.Uint32(fixed[6:10]),
			DataOffset: binary.BigEndian.Uint64(fixed[10:18]),
		}
		if err := asset.ValidateName(record.Name); err != nil {
			return nil, 0, &FormatError{Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		if fixed[1]&^knownEntryFlags != 0 {
			return nil, 0, &FormatError{Entry: record.Name, Reason: fmt.Sprintf("unknown entry flags 0x%02x", fixed[1]&^knownEntryFlags)}
		}
		if _, duplicate := seen[record.Name]; duplicate {
			return nil, 0, &FormatError{Entry: record.Name, Reason: "duplicate entry name"}
		}
		seen[record.Name] = struct{}{}

		records = append(records, record)
		tableSize += record.encodedSize()
	}
	return records, tableSize, nil
}

// ValidateLayout checks that the data blocks described by records
// tile the data region exactly: the first block starts at dataStart,
// each block starts where the previous one ended, and the last block
// ends where the manifest table (or the file) begins. It also checks
// the per-entry size rules for the header's compression kind.
func ValidateLayout(header Header, records []EntryRecord, dataStart int64) error {
	dataEnd := header.TotalSize
	if header.InlineManifest {
		if header.ManifestOffset+uint64(header.ManifestSize) != header.TotalSize {
			return formatErrorf("manifest table [%d, +%d) does not end at total size %d",
				header.ManifestOffset, header.ManifestSize, header.TotalSize)
		}
		dataEnd = header.ManifestOffset
	}
	if uint64(dataStart) > dataEnd {
		return formatErrorf("entry table ends at %d, past the end of the data region at %d", dataStart, dataEnd)
	}

	expected := uint64(dataStart)
	for _, record := range records {
		if record.DataOffset != expected {
			return &FormatError{
				Entry:  record.Name,
				Reason: fmt.Sprintf("data block at offset %d, expected %d", record.DataOffset, expected),
			}
		}
		expected += uint64(record.StoredSize)
		if expected > dataEnd {
			return &FormatError{
				Entry:  record.Name,
				Reason: fmt.Sprintf("data block ends at %d, past the end of the data region at %d", expected, dataEnd),
			}
		}
		if !record.Compressed && record.StoredSize != record.RawSize {
			return &FormatError{
				Entry:  record.Name,
				Reason: fmt.Sprintf("uncompressed entry stores %d bytes but records raw size %d", record.StoredSize, record.RawSize),
			}
		}
		if record.Compressed && header.Kind == compress.KindNone {
			return &FormatError{Entry: record.Name, Reason: "compressed entry in an uncompressed package"}
		}
	}
	if expected != dataEnd {
		return formatErrorf("%d unaccounted bytes after the last data block", dataEnd-expected)
	}
	return nil
}

// unexpectedEOF converts io.EOF to io.ErrUnexpectedEOF: running out of
// bytes inside a table is always truncation.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
