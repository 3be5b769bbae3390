// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package asset defines the in-memory model shared by every layer of
// the package engine: named entries and the optional manifest records
// that describe them.
//
// An [Entry] is one named asset inside a package. Names are game paths
// using backslash separators (e.g. "GUI\Icons\Nova02"); [Entry.ShortName]
// returns the final segment. Entry names are unique within a package.
//
// A [ManifestRecord] carries structural metadata for one entry,
// matched by name: the ordered sub-rectangles of a sprite atlas
// ([SubtextureRect]) and/or external reference paths. Records are
// always replaced as a whole, never merged field by field.
//
// This package has no deppth-internal dependencies.
package asset
