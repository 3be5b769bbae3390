// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package container reads and writes package files: the binary
// container the games load their textures, atlases and animation
// references from.
//
// A package is laid out as:
//
//	header       44 bytes (magic "SGPK", kind, version, counts, offsets)
//	entry table  one variable-length record per entry
//	data region  one block per entry, contiguous, in table order
//	manifest     optional deterministic CBOR table of manifest records
//
// The compression kind in the header applies to every entry flagged as
// compressed; entries the codec could not shrink are stored raw.
// Manifest records live inline after the data region or in a sidecar
// file next to the package (see [SidecarPath]).
//
// [Open] validates the header, entry table, block layout and manifest
// before returning, so a [Package] never exists in a half-parsed
// state. Payloads are read only through a [Handle]: [Handle.Payload]
// reads and decodes once and memoizes the result or the error, which
// keeps one corrupt or undecodable entry from affecting its siblings.
//
// [Writer] stages entries in memory and emits the whole package on
// Flush. Output bytes depend only on the appended entries, records,
// kind and version, which is what makes merges reproducible (see
// [Digest]).
package container
