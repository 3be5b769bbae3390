// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/container"
)

// Game identifies which title's package conventions apply.
type Game string

const (
	// Hades packages are LZ4-compressed, layout version 7.
	Hades Game = "hades"
	// Transistor packages are LZF-compressed, layout version 5.
	Transistor Game = "transistor"
	// Pyre packages share Transistor's conventions.
	Pyre Game = "pyre"
)

// ConfigEnvVar names the environment variable [Load] reads.
const ConfigEnvVar = "DEPPTH_CONFIG"

// Config is the master configuration for deppth.
type Config struct {
	// Game selects per-game defaults and the matching override
	// section.
	Game Game `yaml:"game"`

	// Pack configures packages written by pack and merge.
	Pack PackConfig `yaml:"pack"`

	// Log configures command logging.
	Log LogConfig `yaml:"log"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Per-game overrides, applied after the base config is loaded.
	Hades      *ConfigOverrides `yaml:"hades,omitempty"`
	Transistor *ConfigOverrides `yaml:"transistor,omitempty"`
	Pyre       *ConfigOverrides `yaml:"pyre,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per game.
type ConfigOverrides struct {
	Pack  *PackConfig  `yaml:"pack,omitempty"`
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// PackConfig configures package output.
type PackConfig struct {
	// Kind is the compression kind name: uncompressed, lz4, lzf or
	// zstd. Default: the game's kind.
	Kind string `yaml:"kind"`

	// Version is the layout revision, 5 or 7. Default: the game's
	// version.
	Version int `yaml:"version"`

	// Manifest is where manifest records go: inline, sidecar or
	// none. Default: inline.
	Manifest string `yaml:"manifest"`
}

// LogConfig configures command logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// Format is text, json, or auto (text on a terminal, JSON
	// otherwise). Default: auto.
	Format string `yaml:"format"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for deppth data.
	Root string `yaml:"root"`

	// Work is where extract writes unpacked trees when no output
	// directory is given.
	Work string `yaml:"work"`
}

// gameDefaults are the package conventions each title uses.
var gameDefaults = map[Game]PackConfig{
	Hades:      {Kind: "lz4", Version: int(container.VersionHades)},
	Transistor: {Kind: "lzf", Version: int(container.VersionTransistor)},
	Pyre:       {Kind: "lzf", Version: int(container.VersionTransistor)},
}

// Default returns the default configuration. Pack kind and version
// are left empty here and filled from the game's conventions after
// loading.
func Default() *Config {
	return &Config{
		Game: Hades,
		Pack: PackConfig{
			Manifest: "inline",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Paths: PathsConfig{
			Root: "${HOME}/.cache/deppth",
			Work: "${DEPPTH_ROOT}/work",
		},
	}
}

// Load loads configuration from the DEPPTH_CONFIG environment
// variable. When it is not set, the defaults are returned.
func Load() (*Config, error) {
	configPath := os.Getenv(ConfigEnvVar)
	if configPath == "" {
		cfg := Default()
		cfg.resolve()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and similar
// path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.resolve()
	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// resolve applies game overrides, fills game defaults and expands
// path variables.
func (c *Config) resolve() {
	c.applyGameOverrides()
	c.applyGameDefaults()
	c.expandVariables()
}

// applyGameOverrides applies the section matching Game.
func (c *Config) applyGameOverrides() {
	var overrides *ConfigOverrides

	switch c.Game {
	case Hades:
		overrides = c.Hades
	case Transistor:
		overrides = c.Transistor
	case Pyre:
		overrides = c.Pyre
	}

	if overrides == nil {
		return
	}

	if overrides.Pack != nil {
		if overrides.Pack.Kind != "" {
			c.Pack.Kind = overrides.Pack.Kind
		}
		if overrides.Pack.Version != 0 {
			c.Pack.Version = overrides.Pack.Version
		}
		if overrides.Pack.Manifest != "" {
			c.Pack.Manifest = overrides.Pack.Manifest
		}
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Work != "" {
			c.Paths.Work = overrides.Paths.Work
		}
	}
}

// applyGameDefaults fills pack fields still unset from the game's
// conventions.
func (c *Config) applyGameDefaults() {
	defaults, ok := gameDefaults[c.Game]
	if !ok {
		return
	}
	if c.Pack.Kind == "" {
		c.Pack.Kind = defaults.Kind
	}
	if c.Pack.Version == 0 {
		c.Pack.Version = defaults.Version
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"DEPPTH_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["DEPPTH_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Work = expandVars(c.Paths.Work, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := gameDefaults[c.Game]; !ok {
		errs = append(errs, fmt.Errorf("invalid game: %q (expected hades, transistor or pyre)", c.Game))
	}

	if _, err := c.PackKind(); err != nil {
		errs = append(errs, fmt.Errorf("pack.kind: %w", err))
	}
	if _, err := c.PackVersion(); err != nil {
		errs = append(errs, fmt.Errorf("pack.version: %w", err))
	}
	if _, err := c.ManifestMode(); err != nil {
		errs = append(errs, fmt.Errorf("pack.manifest: %w", err))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	formats := []string{"auto", "text", "json"}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PackKind returns the configured compression kind.
func (c *Config) PackKind() (compress.Kind, error) {
	return compress.ParseKind(c.Pack.Kind)
}

// PackVersion returns the configured layout revision.
func (c *Config) PackVersion() (uint8, error) {
	if c.Pack.Version < 0 || c.Pack.Version > 255 || !container.SupportedVersion(uint8(c.Pack.Version)) {
		return 0, fmt.Errorf("version %d is not supported (supported: %d, %d)",
			c.Pack.Version, container.VersionTransistor, container.VersionHades)
	}
	return uint8(c.Pack.Version), nil
}

// ManifestMode returns the configured manifest placement.
func (c *Config) ManifestMode() (container.ManifestMode, error) {
	return container.ParseManifestMode(c.Pack.Manifest)
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.Work} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Clean(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
