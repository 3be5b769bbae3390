// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/codec"
	"github.com/deppth/deppth/lib/container"
	"github.com/deppth/deppth/lib/pkgops"
)

type infoParams struct {
	cli.JSONOutput
	Manifest bool   `json:"manifest" flag:"manifest,m" desc:"also print the manifest table in CBOR diagnostic notation"`
	Expect   string `json:"expect" flag:"expect" desc:"fail unless the package's BLAKE3 digest equals this hex digest"`
}

// infoOutput is the JSON shape of "deppth info".
type infoOutput struct {
	Path            string         `json:"path"`
	Digest          string         `json:"digest"`
	Kind            string         `json:"kind"`
	Version         uint8          `json:"version"`
	TotalSize       uint64         `json:"total_size"`
	Entries         int            `json:"entries"`
	Compressed      int            `json:"compressed"`
	RawBytes        uint64         `json:"raw_bytes"`
	StoredBytes     uint64         `json:"stored_bytes"`
	Manifest        string         `json:"manifest"`
	ManifestRecords int            `json:"manifest_records"`
	Subtextures     int            `json:"subtextures"`
	Types           map[string]int `json:"types"`
	CodecAvailable  bool           `json:"codec_available"`
}

func infoCommand() *cli.Command {
	var params infoParams
	return &cli.Command{
		Name:    "info",
		Summary: "Describe a package",
		Description: `Print a package's header fields, entry statistics and BLAKE3 digest
without decoding any payload. With --manifest, the manifest table is
re-encoded and printed in CBOR diagnostic notation. With --expect,
nothing is printed and the command fails when the digest differs.`,
		Usage:  "deppth info [flags] <package>",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "deppth info [flags] <package>"); err != nil {
				return err
			}
			return runInfo(os.Stdout, args[0], &params)
		},
	}
}

func runInfo(w io.Writer, path string, params *infoParams) error {
	var expected container.Digest
	if params.Expect != "" {
		var err error
		if expected, err = container.ParseDigest(params.Expect); err != nil {
			return fmt.Errorf("--expect: %w", err)
		}
	}

	pkg, err := openPackage(path)
	if err != nil {
		return err
	}
	defer pkg.Close()

	digest, err := container.FileDigest(path)
	if err != nil {
		return err
	}
	if params.Expect != "" && digest != expected {
		return &container.DigestMismatchError{Path: path, Got: digest, Want: expected}
	}
	summary, err := pkgops.Summarize(pkg)
	if err != nil {
		return err
	}
	output := infoOutput{
		Path:            path,
		Digest:          digest.String(),
		Kind:            summary.Kind.String(),
		Version:         summary.Version,
		TotalSize:       summary.TotalSize,
		Entries:         summary.Entries,
		Compressed:      summary.Compressed,
		RawBytes:        summary.RawBytes,
		StoredBytes:     summary.StoredBytes,
		Manifest:        summary.Manifest,
		ManifestRecords: summary.ManifestRecords,
		Subtextures:     summary.Subtextures,
		Types:           make(map[string]int, len(summary.Types)),
		CodecAvailable:  summary.CodecAvailable,
	}
	for entryType, count := range summary.Types {
		output.Types[entryType.String()] = count
	}
	if done, err := params.EmitJSON(w, output); done {
		return err
	}

	fmt.Fprintf(w, "path:        %s\n", output.Path)
	fmt.Fprintf(w, "blake3:      %s\n", output.Digest)
	fmt.Fprintf(w, "kind:        %s", output.Kind)
	if !output.CodecAvailable {
		fmt.Fprint(w, " (codec not built in)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "version:     %d\n", output.Version)
	fmt.Fprintf(w, "size:        %d bytes\n", output.TotalSize)
	fmt.Fprintf(w, "entries:     %d (%d compressed, %d raw bytes, %d stored bytes)\n",
		output.Entries, output.Compressed, output.RawBytes, output.StoredBytes)
	for _, name := range slices.Sorted(maps.Keys(output.Types)) {
		fmt.Fprintf(w, "  %-10s %d\n", name, output.Types[name])
	}
	fmt.Fprintf(w, "manifest:    %s (%d records, %d subtextures)\n",
		output.Manifest, output.ManifestRecords, output.Subtextures)

	if params.Manifest && pkg.HasManifest() {
		notation, err := diagnoseManifest(pkg)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, notation)
	}
	return nil
}

// diagnoseManifest renders the package's manifest records, in entry
// order, as the CBOR table a writer would emit.
func diagnoseManifest(pkg *container.Package) (string, error) {
	var records []asset.ManifestRecord
	for handle, err := range pkg.Entries(container.Filter{}) {
		if err != nil {
			return "", err
		}
		record, err := handle.Manifest()
		if err != nil {
			return "", err
		}
		if record != nil {
			records = append(records, *record)
		}
	}
	data, err := container.EncodeManifest(records)
	if err != nil {
		return "", err
	}
	return codec.Diagnose(data)
}
