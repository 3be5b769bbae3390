// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WorkDir creates a scratch directory for package files. It is
// t.TempDir with a subdirectory named after the purpose, so failing
// tests leave recognizable paths in their output.
//
// The directory is automatically removed when the test completes.
func WorkDir(t *testing.T, purpose string) string {
	t.Helper()
	directory := filepath.Join(t.TempDir(), purpose)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		t.Fatalf("creating work directory: %v", err)
	}
	return directory
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// ReadFile returns the contents of path.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}
