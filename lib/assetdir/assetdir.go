// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package assetdir

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
)

const (
	// IndexFile is the name of the index inside an unpacked directory.
	IndexFile = "index.yaml"

	entriesDir  = "entries"
	manifestDir = "manifest"
)

// Index is the content of index.yaml.
type Index struct {
	Kind    compress.Kind `yaml:"kind"`
	Version uint8         `yaml:"version,omitempty"`
	Entries []IndexEntry  `yaml:"entries"`
}

// IndexEntry locates one entry's files, relative to the directory.
type IndexEntry struct {
	Name     string     `yaml:"name"`
	Type     asset.Type `yaml:"type"`
	File     string     `yaml:"file"`
	Manifest string     `yaml:"manifest,omitempty"`
}

// Item is an entry with its optional manifest record.
type Item struct {
	Entry  asset.Entry
	Record *asset.ManifestRecord
}

// Dir is an unpacked package read back from disk.
type Dir struct {
	Kind    compress.Kind
	Version uint8
	Items   []Item
}

// Entries returns the items' entries in order.
func (d *Dir) Entries() []asset.Entry {
	entries := make([]asset.Entry, len(d.Items))
	for i, item := range d.Items {
		entries[i] = item.Entry
	}
	return entries
}

// Records returns the items' manifest records in order, skipping
// items without one.
func (d *Dir) Records() []asset.ManifestRecord {
	var records []asset.ManifestRecord
	for _, item := range d.Items {
		if item.Record != nil {
			records = append(records, *item.Record)
		}
	}
	return records
}

// RelativePath maps an entry name to a slash-separated relative path.
func RelativePath(name string) (string, error) {
	if err := asset.ValidateName(name); err != nil {
		return "", err
	}
	relative := strings.ReplaceAll(name, asset.NameSeparator, "/")
	if strings.HasPrefix(relative, "/") || filepath.IsAbs(relative) || filepath.VolumeName(relative) != "" {
		return "", fmt.Errorf("entry name %q is an absolute path", name)
	}
	for _, segment := range strings.Split(relative, "/") {
		switch segment {
		case "":
			return "", fmt.Errorf("entry name %q has an empty path segment", name)
		case ".", "..":
			return "", fmt.Errorf("entry name %q has a %q path segment", name, segment)
		}
	}
	return relative, nil
}

// Write creates the unpacked form of items under dir. The directory
// may exist but must not already contain an index.
func Write(dir string, kind compress.Kind, version uint8, items []Item) error {
	indexPath := filepath.Join(dir, IndexFile)
	if _, err := os.Stat(indexPath); err == nil {
		return fmt.Errorf("writing %s: %s already exists", dir, IndexFile)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("writing %s: %w", dir, err)
	}

	index := Index{Kind: kind, Version: version, Entries: make([]IndexEntry, 0, len(items))}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		relative, err := RelativePath(item.Entry.Name)
		if err != nil {
			return fmt.Errorf("writing %s: %w", dir, err)
		}
		// Names that differ only in separator style would share a file.
		if _, duplicate := seen[relative]; duplicate {
			return fmt.Errorf("writing %s: two entries map to %s", dir, relative)
		}
		seen[relative] = struct{}{}

		indexEntry := IndexEntry{
			Name: item.Entry.Name,
			Type: item.Entry.Type,
			File: path.Join(entriesDir, relative+".bin"),
		}
		if err := writeFile(dir, indexEntry.File, item.Entry.Payload); err != nil {
			return err
		}
		if item.Record != nil {
			data, err := yaml.Marshal(item.Record)
			if err != nil {
				return fmt.Errorf("encoding manifest record %q: %w", item.Entry.Name, err)
			}
			indexEntry.Manifest = path.Join(manifestDir, relative+".yaml")
			if err := writeFile(dir, indexEntry.Manifest, data); err != nil {
				return err
			}
		}
		index.Entries = append(index.Entries, indexEntry)
	}

	data, err := yaml.Marshal(&index)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return writeFile(dir, IndexFile, data)
}

func writeFile(dir, relative string, data []byte) error {
	target := filepath.Join(dir, filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relative, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", relative, err)
	}
	return nil
}

// Read loads an unpacked directory written by Write or by hand.
// Entries keep index order. File and manifest paths in the index must
// stay inside dir.
func Read(dir string) (*Dir, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var index Index
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&index); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Join(dir, IndexFile), err)
	}
	if !index.Kind.Known() {
		return nil, fmt.Errorf("parsing %s: unknown compression kind %s", filepath.Join(dir, IndexFile), index.Kind)
	}

	result := &Dir{Kind: index.Kind, Version: index.Version, Items: make([]Item, 0, len(index.Entries))}
	for i, indexEntry := range index.Entries {
		if err := asset.ValidateName(indexEntry.Name); err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		if indexEntry.File == "" {
			return nil, fmt.Errorf("index entry %q: no file", indexEntry.Name)
		}
		payload, err := readFile(dir, indexEntry.File)
		if err != nil {
			return nil, fmt.Errorf("index entry %q: %w", indexEntry.Name, err)
		}
		item := Item{Entry: asset.Entry{Name: indexEntry.Name, Type: indexEntry.Type, Payload: payload}}

		if indexEntry.Manifest != "" {
			data, err := readFile(dir, indexEntry.Manifest)
			if err != nil {
				return nil, fmt.Errorf("index entry %q: %w", indexEntry.Name, err)
			}
			record := new(asset.ManifestRecord)
			if err := yaml.Unmarshal(data, record); err != nil {
				return nil, fmt.Errorf("index entry %q: parsing %s: %w", indexEntry.Name, indexEntry.Manifest, err)
			}
			if record.Name == "" {
				record.Name = indexEntry.Name
			}
			if record.Name != indexEntry.Name {
				return nil, fmt.Errorf("index entry %q: manifest record is named %q", indexEntry.Name, record.Name)
			}
			item.Record = record
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func readFile(dir, relative string) ([]byte, error) {
	if !filepath.IsLocal(filepath.FromSlash(relative)) {
		return nil, fmt.Errorf("path %q leaves the directory", relative)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(relative)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relative, err)
	}
	return data, nil
}
