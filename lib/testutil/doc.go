// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for deppth packages.
//
// [RequireErrorAs] and [RequireNoError] encapsulate the errors.As
// assertion pattern so that tests checking the typed error taxonomy
// (format, codec, duplicate, incompatible kind) read as one line.
//
// [WorkDir] creates a scratch directory for packages, sidecar
// manifests and unpacked asset trees; [WriteFile] and [ReadFile] wrap
// the os calls around it.
//
// [UniqueID] generates monotonically increasing identifiers. Use it
// when a test needs entry names that cannot collide with fixture
// names.
//
// [Payload] returns deterministic pseudo-random bytes with a tunable
// amount of repetition, so that tests can produce both compressible
// and incompressible entries without depending on crypto/rand.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no deppth-internal dependencies.
package testutil
