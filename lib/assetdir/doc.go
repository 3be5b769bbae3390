// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetdir reads and writes the unpacked form of a package: a
// directory that extract produces and pack consumes.
//
//	index.yaml                  kind, version, entries in package order
//	entries/Textures/Hud.bin    payload of entry Textures\Hud
//	manifest/Atlases/Fx.yaml    manifest record of entry Atlases\Fx
//
// Entry names map to paths by turning each backslash into a path
// separator. Names that would escape the directory (absolute paths,
// ".." segments, empty segments) are refused in both directions.
package assetdir
