// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for deppth.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a flag source, and a Run
// function. Flags come either from a [pflag.FlagSet] factory or from a
// tagged parameter struct (see [BindFlags]). Commands are assembled into
// a tree in cmd/deppth/commands and dispatched via [Command.Execute],
// which handles flag parsing, subcommand routing, and structured help
// output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// [NewCommandLogger] builds the slog logger handed to every Run
// function, and [ExitError] lets a command choose its exit status
// after printing its own report.
package cli
