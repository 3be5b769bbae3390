// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for deppth.
//
// Configuration is loaded from a single file specified by either the
// DEPPTH_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no ~/.config discovery and no automatic
// file search; when neither is given, [Load] returns the built-in
// defaults.
//
// The configuration file supports per-game sections (hades,
// transistor, pyre) that override base values when [Config].Game
// matches. Fields still unset afterwards take the game's built-in
// package conventions: Hades packages are LZ4 at layout version 7,
// Transistor and Pyre packages are LZF at version 5.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${DEPPTH_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Game, Pack, Log, Paths
//   - [Default] -- returns a Config with Hades defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
