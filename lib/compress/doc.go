// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress is the codec registry for package payloads.
//
// Every package carries a [Kind] in its header that selects one
// compression family for all of its entries: uncompressed, LZ4 (Hades),
// LZF (Transistor, Pyre), or zstd (tool-side only). A [Registry] maps
// kinds to stateless [Codec] transform pairs; [Registry.Decode]
// verifies that output length matches the entry table's raw size.
//
// The process-wide registry returned by [Default] is filled by init
// functions in the backend files and frozen by its first lookup, so
// it never changes while packages are being read or written. Each
// backend can be left out of a build:
//
//	go build -tags deppth_nolz4,deppth_nolzf ./cmd/deppth
//
// A binary built that way still opens LZ4 and LZF packages, lists
// them, and reads entries that were stored raw; only decoding
// compressed entries fails, with an [UnavailableError] whose message
// names the missing capability ("LZ4 support unavailable").
package compress
