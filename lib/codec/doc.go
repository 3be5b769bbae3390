// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deppth's standard CBOR encoding configuration.
//
// The manifest table of a package (inline or in a sidecar file) is a
// CBOR array of manifest records. Merged packages must be byte-stable
// for fixed inputs, so the encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
//	data, err := codec.Marshal(records)
//	err = codec.Unmarshal(data, &records)
//
// Struct types use json struct tags: fxamacker/cbor v2 reads json tags
// when cbor tags are absent, so the model types in lib/asset need a
// single set of field names for CBOR, JSON and (with yaml tags) the
// unpacked directory layout.
//
// The decoder rejects duplicate map keys, since a manifest table with
// two values for one field is structurally malformed.
package codec
