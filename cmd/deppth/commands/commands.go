// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the deppth command tree. Each command's Run
// function parses its positional arguments and hands off to a run
// function that takes its output writer explicitly, which is what the
// tests call.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/lib/config"
	"github.com/deppth/deppth/lib/version"
)

// Root builds the complete command tree. cfg supplies the defaults
// for packing and the work directory extract falls back to.
func Root(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name: "deppth",
		Description: `deppth: read, write and patch Supergiant Games packages.

Packages (.pkg) hold the textures, atlases and references of Hades,
Transistor and Pyre. Atlas and reference metadata lives in a manifest,
either inside the package or in a "<package>_manifest" file next to it.

Global flags go before the command:

  --config <file>      configuration file (default: $DEPPTH_CONFIG)
  --log-level <level>  debug, info, warn or error`,
		Subcommands: []*cli.Command{
			listCommand(),
			extractCommand(cfg),
			packCommand(cfg),
			patchCommand(),
			infoCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if len(args) > 0 {
						return fmt.Errorf("version takes no arguments, got %q", args[0])
					}
					fmt.Fprintf(os.Stdout, "deppth %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "List every atlas and its sprites",
				Command:     "deppth list --names --filter 'Atlases/*' Fx.pkg",
			},
			{
				Description: "Unpack a package to a directory",
				Command:     "deppth extract -o Fx Fx.pkg",
			},
			{
				Description: "Build a package from an unpacked directory",
				Command:     "deppth pack -o Fx.pkg Fx",
			},
			{
				Description: "Apply a mod patch to a package in place",
				Command:     "deppth patch Fx.pkg FxMod.pkg",
			},
		},
	}
}
