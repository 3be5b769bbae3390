// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/deppth/deppth/lib/container"
)

// MergeFiles merges the packages at patchPaths into the package at
// basePath and writes the result to outPath. Sidecar manifests next to
// the inputs are read, and the output manifest is placed the way
// [ManifestModeFor] chooses.
//
// The output is written to a temporary file in outPath's directory and
// renamed into place only after a successful merge, so outPath may be
// basePath itself. On failure the previous outPath is left untouched.
func MergeFiles(basePath string, patchPaths []string, outPath string, options Options) (*Result, error) {
	openOptions := container.Options{Registry: options.Registry}

	base, err := container.OpenFile(basePath, container.ModeWithManifest, openOptions)
	if err != nil {
		return nil, fmt.Errorf("opening base package: %w", err)
	}
	defer base.Close()

	patches := make([]*container.Package, 0, len(patchPaths))
	defer func() {
		for _, patch := range patches {
			patch.Close()
		}
	}()
	for _, path := range patchPaths {
		patch, err := container.OpenFile(path, container.ModeWithManifest, openOptions)
		if err != nil {
			return nil, fmt.Errorf("opening patch: %w", err)
		}
		patches = append(patches, patch)
	}

	if err := CheckCompatible(base, patches); err != nil {
		return nil, err
	}
	options.Manifest = ManifestModeFor(base, patches)

	directory := filepath.Dir(outPath)
	output, err := createTemp(directory, outPath)
	if err != nil {
		return nil, err
	}
	temporaries := []*os.File{output}
	cleanup := func() {
		for _, file := range temporaries {
			file.Close()
			os.Remove(file.Name())
		}
	}

	var sidecar *os.File
	if options.Manifest == container.ManifestSidecar {
		sidecar, err = createTemp(directory, container.SidecarPath(outPath))
		if err != nil {
			cleanup()
			return nil, err
		}
		temporaries = append(temporaries, sidecar)
		options.ManifestSink = sidecar
	}

	result, err := Merge(base, patches, output, options)
	if err != nil {
		cleanup()
		return nil, err
	}
	for _, file := range temporaries {
		if err := file.Close(); err != nil {
			cleanup()
			return nil, fmt.Errorf("closing merged output: %w", err)
		}
	}

	if err := os.Rename(output.Name(), outPath); err != nil {
		cleanup()
		return nil, fmt.Errorf("renaming merged package into place: %w", err)
	}
	if sidecar != nil {
		if err := os.Rename(sidecar.Name(), container.SidecarPath(outPath)); err != nil {
			os.Remove(sidecar.Name())
			return nil, fmt.Errorf("renaming merged sidecar manifest into place: %w", err)
		}
	} else if err := os.Remove(container.SidecarPath(outPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// A stale sidecar would be read as the new package's manifest.
		return nil, fmt.Errorf("removing stale sidecar manifest: %w", err)
	}
	return result, nil
}

func createTemp(directory, target string) (*os.File, error) {
	file, err := os.CreateTemp(directory, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary output: %w", err)
	}
	return file, nil
}
