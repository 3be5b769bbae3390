// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/binary"
	"fmt"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/codec"
)

// Sidecar manifest file constants. A sidecar holds the manifest table
// of a package that was written without an inline one, in a file named
// by [SidecarPath].
const (
	// sidecarHeaderSize is the fixed sidecar header: 4-byte magic
	// + 1-byte version + 3 reserved bytes + 4-byte record count
	// + 4-byte table size.
	sidecarHeaderSize = 16

	sidecarVersion uint8 = 1

	// sidecarSuffix is appended to the package path to name its
	// sidecar.
	sidecarSuffix = "_manifest"
)

var sidecarMagic = [4]byte{'S', 'G', 'P', 'M'}

// SidecarPath returns the sidecar manifest path for a package path.
func SidecarPath(packagePath string) string {
	return packagePath + sidecarSuffix
}

// EncodeManifest encodes records as a manifest table: a deterministic
// CBOR array in the given order. A nil slice encodes as an empty
// array.
func EncodeManifest(records []asset.ManifestRecord) ([]byte, error) {
	if records == nil {
		records = []asset.ManifestRecord{}
	}
	data, err := codec.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest table: %w", err)
	}
	return data, nil
}

// ParseManifest decodes a manifest table and checks it against the
// entry table: exactly count records, unique names, and every record
// naming an entry in entries.
func ParseManifest(data []byte, count uint32, entries []EntryRecord) ([]asset.ManifestRecord, error) {
	var records []asset.ManifestRecord
	if err := codec.Unmarshal(data, &records); err != nil {
		return nil, &FormatError{Reason: "malformed manifest table", Err: err}
	}
	if uint32(len(records)) != count {
		return nil, formatErrorf("manifest table holds %d records, header declares %d", len(records), count)
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[entry.Name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		record := &records[i]
		if err := record.Validate(); err != nil {
			return nil, &FormatError{Entry: record.Name, Reason: fmt.Sprintf("manifest record %d", i), Err: err}
		}
		if _, ok := present[record.Name]; !ok {
			return nil, &FormatError{Entry: record.Name, Reason: "manifest record names an absent entry"}
		}
		if _, duplicate := seen[record.Name]; duplicate {
			return nil, &FormatError{Entry: record.Name, Reason: "duplicate manifest record"}
		}
		seen[record.Name] = struct{}{}
	}
	return records, nil
}

// EncodeSidecar encodes records as a complete sidecar manifest file.
func EncodeSidecar(records []asset.ManifestRecord) ([]byte, error) {
	table, err := EncodeManifest(records)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, sidecarHeaderSize+len(table))
	data = append(data, sidecarMagic[:]...)
	data = append(data, sidecarVersion, 0, 0, 0)
	data = binary.BigEndian.AppendUint32(data, uint32(len(records)))
	data = binary.BigEndian.AppendUint32(data, uint32(len(table)))
	data = append(data, table...)
	return data, nil
}

// ParseSidecar decodes a sidecar manifest file and validates it
// against the data package's entry table, as [ParseManifest] does.
func ParseSidecar(data []byte, entries []EntryRecord) ([]asset.ManifestRecord, error) {
	if len(data) < sidecarHeaderSize {
		return nil, formatErrorf("sidecar manifest is %d bytes, need at least %d", len(data), sidecarHeaderSize)
	}
	if [4]byte(data[0:4]) != sidecarMagic {
		return nil, formatErrorf("not a sidecar manifest (invalid magic bytes %q)", data[0:4])
	}
	if data[4] != sidecarVersion {
		return nil, formatErrorf("sidecar manifest version %d is not supported (this code supports version %d)",
			data[4], sidecarVersion)
	}
	if [3]byte(data[5:8]) != [3]byte{} {
		return nil, formatErrorf("non-zero reserved bytes in sidecar header: %x", data[5:8])
	}
	count := binary.BigEndian.Uint32(data[8:12])
	size := binary.BigEndian.Uint32(data[12:16])
	if uint64(size) != uint64(len(data)-sidecarHeaderSize) {
		return nil, formatErrorf("sidecar header declares a %d-byte table, file holds %d", size, len(data)-sidecarHeaderSize)
	}
	return ParseManifest(data[sidecarHeaderSize:], count, entries)
}
