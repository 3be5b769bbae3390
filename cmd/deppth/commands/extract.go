// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/lib/assetdir"
	"github.com/deppth/deppth/lib/config"
	"github.com/deppth/deppth/lib/pkgops"
)

type extractParams struct {
	filterParams
	Out         string `json:"out" flag:"out,o" desc:"output directory (default: <paths.work>/<package name>)"`
	Subtextures bool   `json:"subtextures" flag:"subtextures" desc:"keep subtexture rectangles in extracted manifest records; without them a repacked atlas has none" default:"true"`
}

func extractCommand(cfg *config.Config) *cli.Command {
	var params extractParams
	return &cli.Command{
		Name:    "extract",
		Summary: "Unpack entries into a directory",
		Description: `Write the selected entries of a package to a directory: payloads under
entries/, manifest records under manifest/ as YAML, and an index.yaml
that "deppth pack" reads back.

Entries that cannot be decoded (for example, a compression kind this
binary was built without) are reported and skipped; the others are
still written, and the command exits with status 1.`,
		Usage:  "deppth extract [flags] <package>",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "Unpack a whole package", Command: "deppth extract -o Fx Fx.pkg"},
			{Description: "Unpack atlases without their sprite rectangles", Command: "deppth extract -f 'Atlases/*' --subtextures=false Fx.pkg"},
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "deppth extract [flags] <package>"); err != nil {
				return err
			}
			return runExtract(os.Stdout, logger, cfg, args[0], &params)
		},
	}
}

func runExtract(w io.Writer, logger *slog.Logger, cfg *config.Config, path string, params *extractParams) error {
	filter, err := params.filter()
	if err != nil {
		return err
	}
	out := params.Out
	if out == "" {
		if err := cfg.EnsurePaths(); err != nil {
			return err
		}
		base := filepath.Base(path)
		out = filepath.Join(cfg.Paths.Work, strings.TrimSuffix(base, filepath.Ext(base)))
	}

	pkg, err := openPackage(path)
	if err != nil {
		return err
	}
	defer pkg.Close()

	results, err := pkgops.Extract(pkg, filter, params.Subtextures)
	if err != nil {
		return err
	}
	items := make([]assetdir.Item, 0, len(results))
	omitted := 0
	for _, result := range results {
		omitted += result.Omitted
		if result.Err != nil {
			logger.Error("entry not extracted", "entry", result.Entry.Name, "error", result.Err)
			continue
		}
		items = append(items, assetdir.Item{Entry: result.Entry, Record: result.Record})
	}
	if err := assetdir.Write(out, pkg.Kind(), pkg.Version(), items); err != nil {
		return err
	}
	fmt.Fprintf(w, "extracted %d entries to %s\n", len(items), out)
	if omitted > 0 {
		logger.Warn("subtexture rectangles omitted from manifest records", "subtextures", omitted, "directory", out)
	}

	if failed := pkgops.Failed(results); len(failed) > 0 {
		fmt.Fprintf(w, "%d entries could not be extracted:\n", len(failed))
		for _, result := range failed {
			fmt.Fprintf(w, "  %v\n", result.Err)
		}
		return &cli.ExitError{Code: 1}
	}
	return nil
}
