// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package patch merges patch packages into a base package.
//
// The merged entry list is the base list with every entry a patch
// also contains replaced in place, followed by entries no earlier
// package had, in the order they were first seen. Patches are applied
// in argument order, so when several patches carry the same name the
// last one wins. An entry and its manifest record always travel
// together: replacing an entry replaces (or drops) its record.
//
// Every patch must use the base package's compression kind. The check
// runs before any output is produced, and stored blocks are copied
// without decoding, so merging never depends on codec availability.
//
// Output depends only on the input bytes and their order: merging the
// same inputs twice yields identical files, which [Result.Digest]
// makes cheap to verify.
package patch
