// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Command deppth reads, writes and patches Supergiant Games packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/cmd/deppth/commands"
	"github.com/deppth/deppth/lib/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		// Commands that print their own report (like extract with
		// undecodable entries) return an ExitError with the desired
		// exit code. Don't print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are accepted before the command name.
type globalFlags struct {
	ConfigPath string `flag:"config" desc:"configuration file (default: $DEPPTH_CONFIG)"`
	LogLevel   string `flag:"log-level" desc:"log level: debug, info, warn or error (default: log.level)"`
}

func run(args []string) error {
	var global globalFlags
	flagSet := cli.FlagsFromParams("deppth", &global)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(io.Discard)
	switch err := flagSet.Parse(args); {
	case errors.Is(err, pflag.ErrHelp):
		// Leave -h and --help for the command tree to print.
	case err != nil:
		return fmt.Errorf("%v\n\nRun 'deppth --help' for usage.", err)
	default:
		args = flagSet.Args()
	}

	cfg, err := loadConfig(global.ConfigPath)
	if err != nil {
		return err
	}
	levelName := cfg.Log.Level
	if global.LogLevel != "" {
		levelName = global.LogLevel
	}
	level, err := cli.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(os.Stderr, level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return commands.Root(cfg).Execute(ctx, args, logger)
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
