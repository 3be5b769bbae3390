// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgops implements the logical operations the command line
// exposes on top of the container engine: listing entries, extracting
// payloads with their manifest data, packing entries into a new
// package, and summarizing a package.
//
// Merging lives in lib/patch; everything here reads or writes a
// single package.
package pkgops
