// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/lib/pkgops"
)

type listParams struct {
	cli.JSONOutput
	filterParams
	Names bool `json:"names" flag:"names,n" desc:"print entry names, each followed by its subtexture names"`
}

// listEntry is the JSON shape of one listed entry.
type listEntry struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Compressed  bool     `json:"compressed"`
	RawSize     uint32   `json:"raw_size"`
	StoredSize  uint32   `json:"stored_size"`
	Subtextures []string `json:"subtextures,omitempty"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List package entries",
		Description: `List the entries of a package in on-disk order.

Filters match an entry's full backslash-separated name or its last
segment; forward slashes in patterns match backslashes in names.
Subtexture names are listed under their atlas but never matched.`,
		Usage:  "deppth list [flags] <package>",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "List everything", Command: "deppth list Fx.pkg"},
			{Description: "Names of the HUD textures", Command: "deppth list -n -f 'Textures/Hud*' GUI.pkg"},
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "deppth list [flags] <package>"); err != nil {
				return err
			}
			return runList(os.Stdout, args[0], &params)
		},
	}
}

func runList(w io.Writer, path string, params *listParams) error {
	filter, err := params.filter()
	if err != nil {
		return err
	}
	pkg, err := openPackage(path)
	if err != nil {
		return err
	}
	defer pkg.Close()

	if params.Names {
		names, err := pkgops.ListNames(pkg, filter)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(w, names); done {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
		return nil
	}

	listings, err := pkgops.List(pkg, filter)
	if err != nil {
		return err
	}
	entries := make([]listEntry, len(listings))
	for i, listing := range listings {
		entries[i] = listEntry{
			Name:        listing.Name,
			Type:        listing.Type.String(),
			Compressed:  listing.Compressed,
			RawSize:     listing.RawSize,
			StoredSize:  listing.StoredSize,
			Subtextures: listing.Subtextures,
		}
	}
	if done, err := params.EmitJSON(w, entries); done {
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tSTORED\tSUBTEXTURES")
	for _, entry := range entries {
		stored := fmt.Sprint(entry.StoredSize)
		if !entry.Compressed {
			stored = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", entry.Name, entry.Type, entry.RawSize, stored, strings.Join(entry.Subtextures, ","))
	}
	return tw.Flush()
}
