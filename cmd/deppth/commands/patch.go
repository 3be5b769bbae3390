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
	"github.com/deppth/deppth/lib/patch"
)

type patchParams struct {
	Out string `json:"out" flag:"out,o" desc:"write the merged package here instead of replacing the base"`
}

func patchCommand() *cli.Command {
	var params patchParams
	return &cli.Command{
		Name:    "patch",
		Summary: "Merge patch packages into a base package",
		Description: `Apply one or more patch packages to a base package. Entries of a patch
replace base entries of the same name in place; new names are appended
in the order the patches introduce them. Later patches win over earlier
ones. Manifest records travel with their entries.

Every patch must use the base package's compression kind. The merged
package is written to a temporary file and renamed over the output, so
a failed merge leaves the base untouched.`,
		Usage:  "deppth patch [flags] <base> <patch>...",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "Patch in place", Command: "deppth patch Fx.pkg FxMod.pkg"},
			{Description: "Stack two mods into a new file", Command: "deppth patch -o Fx.modded.pkg Fx.pkg ModA.pkg ModB.pkg"},
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 2, -1, "deppth patch [flags] <base> <patch>..."); err != nil {
				return err
			}
			return runPatch(os.Stdout, logger, args[0], args[1:], &params)
		},
	}
}

func runPatch(w io.Writer, logger *slog.Logger, basePath string, patchPaths []string, params *patchParams) error {
	out := params.Out
	if out == "" {
		out = basePath
	}
	result, err := patch.MergeFiles(basePath, patchPaths, out, patch.Options{
		Observer: patch.SlogObserver(logger.With("base", basePath)),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "patched %s: %d kept, %d replaced, %d appended; wrote %s (%d bytes, blake3 %s)\n",
		basePath, result.Kept, result.Replaced, result.Appended, out, result.Written, result.Digest)
	return nil
}
