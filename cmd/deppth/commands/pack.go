// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/assetdir"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/config"
	"github.com/deppth/deppth/lib/container"
	"github.com/deppth/deppth/lib/pkgops"
)

type packParams struct {
	filterParams
	Out      string `json:"out" flag:"out,o" desc:"package file to write (required)"`
	Kind     string `json:"kind" flag:"kind" desc:"compression kind: uncompressed, lz4, lzf or zstd (default: the directory's index)"`
	Version  int    `json:"version" flag:"version" desc:"layout revision, 5 or 7 (default: the directory's index, then pack.version)"`
	Manifest string `json:"manifest" flag:"manifest" desc:"manifest placement: inline, sidecar or none (default: pack.manifest)"`
}

func packCommand(cfg *config.Config) *cli.Command {
	var params packParams
	return &cli.Command{
		Name:    "pack",
		Summary: "Build a package from an unpacked directory",
		Description: `Read a directory written by "deppth extract" (or assembled by hand
with the same index.yaml layout) and write it as a package. Entries
keep the order of the index. With --filter, only the matching entries
and their manifest records are packed.`,
		Usage:  "deppth pack [flags] -o <package> <directory>",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "Repack an extracted directory", Command: "deppth pack -o Fx.pkg Fx"},
			{Description: "Pack only the HUD textures", Command: "deppth pack -f 'Textures/Hud*' -o Hud.pkg GUI"},
			{Description: "Pack for Transistor with a sidecar manifest", Command: "deppth pack --kind lzf --version 5 --manifest sidecar -o Fx.pkg Fx"},
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "deppth pack [flags] -o <package> <directory>"); err != nil {
				return err
			}
			return runPack(os.Stdout, logger, cfg, args[0], &params)
		},
	}
}

func runPack(w io.Writer, logger *slog.Logger, cfg *config.Config, dir string, params *packParams) error {
	if params.Out == "" {
		return fmt.Errorf("--out is required")
	}
	filter, err := params.filter()
	if err != nil {
		return err
	}
	unpacked, err := assetdir.Read(dir)
	if err != nil {
		return err
	}

	kind := unpacked.Kind
	if params.Kind != "" {
		if kind, err = compress.ParseKind(params.Kind); err != nil {
			return err
		}
	}

	var options container.WriterOptions
	switch {
	case params.Version != 0:
		if params.Version < 0 || params.Version > 255 {
			return fmt.Errorf("--version %d is out of range", params.Version)
		}
		options.Version = uint8(params.Version)
	case unpacked.Version != 0:
		options.Version = unpacked.Version
	default:
		if options.Version, err = cfg.PackVersion(); err != nil {
			return err
		}
	}

	manifest := cfg.Pack.Manifest
	if params.Manifest != "" {
		manifest = params.Manifest
	}
	if options.Manifest, err = container.ParseManifestMode(manifest); err != nil {
		return err
	}

	entries, records := selectEntries(filter, unpacked.Entries(), unpacked.Records())
	if len(entries) == 0 && !filter.Empty() {
		return fmt.Errorf("no entries in %s match %v", dir, params.Filters)
	}
	if len(records) > 0 && options.Manifest == container.ManifestNone {
		logger.Warn("dropping manifest records", "records", len(records), "manifest", "none")
		records = nil
	}

	result, err := pkgops.PackFile(params.Out, kind, entries, records, options)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "packed %d entries (%d manifest records) into %s: %d bytes, %s %d, blake3 %s\n",
		result.Entries, result.Records, params.Out, result.Written, kind, options.Version, result.Digest)
	return nil
}

// selectEntries keeps the entries passing filter and the records of
// the kept entries.
func selectEntries(filter container.Filter, entries []asset.Entry, records []asset.ManifestRecord) ([]asset.Entry, []asset.ManifestRecord) {
	if filter.Empty() {
		return entries, records
	}
	kept := make(map[string]bool)
	var selected []asset.Entry
	for _, entry := range entries {
		if filter.Match(entry.Name) {
			selected = append(selected, entry)
			kept[entry.Name] = true
		}
	}
	var selectedRecords []asset.ManifestRecord
	for _, record := range records {
		if kept[record.Name] {
			selectedRecords = append(selectedRecords, record)
		}
	}
	return selected, selectedRecords
}
