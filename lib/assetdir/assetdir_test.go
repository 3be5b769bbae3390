// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package assetdir

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/testutil"
)

func sampleItems() []Item {
	return []Item{
		{Entry: asset.Entry{Name: `Textures\Hud`, Type: asset.TypeTexture, Payload: testutil.Payload(7, 512, 16)}},
		{
			Entry: asset.Entry{Name: `Atlases\Fx`, Type: asset.TypeAtlas, Payload: []byte("atlas")},
			Record: &asset.ManifestRecord{
				Name:    `Atlases\Fx`,
				Version: 4,
				Subtextures: []asset.SubtextureRect{
					{Name: `Fx\Nova01`, Width: 16, Height: 16, ScaleX: 1, ScaleY: 0.5, Hull: []asset.Point{{X: 1, Y: 2}}},
				},
			},
		},
		{Entry: asset.Entry{Name: "Include", Type: asset.TypeInclude, Payload: []byte{}}},
	}
}

func TestWriteRead(t *testing.T) {
	dir := testutil.WorkDir(t, "unpacked")
	if err := Write(dir, compress.KindLZF, 5, sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, relative := range []string{"index.yaml", "entries/Textures/Hud.bin", "entries/Atlases/Fx.bin", "manifest/Atlases/Fx.yaml", "entries/Include.bin"} {
		testutil.ReadFile(t, filepath.Join(dir, filepath.FromSlash(relative)))
	}

	read, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if read.Kind != compress.KindLZF || read.Version != 5 {
		t.Errorf("Read kind/version = %s/%d, want lzf/5", read.Kind, read.Version)
	}
	if diff := cmp.Diff(sampleItems(), read.Items); diff != "" {
		t.Errorf("Read items mismatch (-want +got):\n%s", diff)
	}
	if got := len(read.Records()); got != 1 {
		t.Errorf("Records() = %d, want 1", got)
	}
	if got := len(read.Entries()); got != 3 {
		t.Errorf("Entries() = %d, want 3", got)
	}
}

func TestIndexIsReadable(t *testing.T) {
	dir := testutil.WorkDir(t, "unpacked")
	if err := Write(dir, compress.KindLZ4, 7, sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	index := string(testutil.ReadFile(t, filepath.Join(dir, IndexFile)))
	for _, want := range []string{"kind: lz4", "version: 7", "type: texture", "file: entries/Textures/Hud.bin", "manifest: manifest/Atlases/Fx.yaml"} {
		if !strings.Contains(index, want) {
			t.Errorf("index does not contain %q:\n%s", want, index)
		}
	}
}

func TestWriteRefusesExistingIndex(t *testing.T) {
	dir := testutil.WorkDir(t, "unpacked")
	if err := Write(dir, compress.KindNone, 0, sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Write(dir, compress.KindNone, 0, sampleItems()); err == nil {
		t.Error("second Write into the same directory should fail")
	}
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: `Textures\Hud`, want: "Textures/Hud"},
		{name: "Include", want: "Include"},
		{name: `Mixed/Style\Name`, want: "Mixed/Style/Name"},
		{name: `..\Escape`, wantErr: true},
		{name: `Textures\..\..\Escape`, wantErr: true},
		{name: `\Rooted`, wantErr: true},
		{name: `Double\\Separator`, wantErr: true},
		{name: `Trailing\`, wantErr: true},
		{name: `.\Dot`, wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativePath(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("RelativePath(%q) = %q, want error", tt.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("RelativePath(%q) failed: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("RelativePath(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestWriteRejectsEscapingNames(t *testing.T) {
	dir := testutil.WorkDir(t, "unpacked")
	items := []Item{{Entry: asset.Entry{Name: `..\..\etc\passwd`, Type: asset.TypeRaw, Payload: []byte("x")}}}
	if err := Write(dir, compress.KindNone, 0, items); err == nil {
		t.Fatal("Write should reject a name with parent segments")
	}

	items = []Item{
		{Entry: asset.Entry{Name: `A\B`, Type: asset.TypeRaw}},
		{Entry: asset.Entry{Name: "A/B", Type: asset.TypeRaw}},
	}
	if err := Write(testutil.WorkDir(t, "collide"), compress.KindNone, 0, items); err == nil {
		t.Error("Write should reject names mapping to the same file")
	}
}

func TestReadRejectsBadIndex(t *testing.T) {
	tests := []struct {
		name  string
		index string
	}{
		{"escaping file", "kind: none\nentries:\n  - name: A\n    type: raw\n    file: ../outside.bin\n"},
		{"absolute file", "kind: none\nentries:\n  - name: A\n    type: raw\n    file: /etc/passwd\n"},
		{"missing file", "kind: none\nentries:\n  - name: A\n    type: raw\n    file: entries/A.bin\n"},
		{"no file", "kind: none\nentries:\n  - name: A\n    type: raw\n"},
		{"unknown kind", "kind: lzx\nentries: []\n"},
		{"unknown field", "kind: none\ncompression: fast\nentries: []\n"},
		{"unknown type", "kind: none\nentries:\n  - name: A\n    type: movie\n    file: entries/A.bin\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.WorkDir(t, "unpacked")
			testutil.WriteFile(t, filepath.Join(dir, IndexFile), []byte(tt.index))
			if _, err := Read(dir); err == nil {
				t.Error("Read should fail")
			}
		})
	}
}

func TestReadManifestNameMismatch(t *testing.T) {
	dir := testutil.WorkDir(t, "unpacked")
	testutil.WriteFile(t, filepath.Join(dir, IndexFile), []byte(
		"kind: none\nentries:\n  - name: A\n    type: atlas\n    file: entries/A.bin\n    manifest: manifest/A.yaml\n"))
	testutil.WriteFile(t, filepath.Join(dir, "entries", "A.bin"), []byte("a"))
	testutil.WriteFile(t, filepath.Join(dir, "manifest", "A.yaml"), []byte("name: B\n"))
	if _, err := Read(dir); err == nil {
		t.Fatal("Read should reject a record naming another entry")
	}

	// A record without a name belongs to its entry.
	testutil.WriteFile(t, filepath.Join(dir, "manifest", "A.yaml"), []byte("version: 2\n"))
	read, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if record := read.Items[0].Record; record == nil || record.Name != "A" || record.Version != 2 {
		t.Errorf("record = %+v, want name A version 2", record)
	}
	if !bytes.Equal(read.Items[0].Entry.Payload, []byte("a")) {
		t.Errorf("payload = %q, want %q", read.Items[0].Entry.Payload, "a")
	}
}

func TestWriteReadUnnamedTypes(t *testing.T) {
	dir := testutil.WorkDir(t, "unpacked")
	items := []Item{
		{Entry: asset.Entry{Name: `Movies\Intro`, Type: asset.TypeBinkAtlas, Payload: []byte("frames")}},
		{Entry: asset.Entry{Name: "Future", Type: asset.Type(0x42), Payload: []byte("opaque")}},
	}
	if err := Write(dir, compress.KindNone, 7, items); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	index := string(testutil.ReadFile(t, filepath.Join(dir, IndexFile)))
	for _, want := range []string{"type: bink-atlas", "0x42"} {
		if !strings.Contains(index, want) {
			t.Errorf("index does not contain %q:\n%s", want, index)
		}
	}

	read, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(items, read.Items); diff != "" {
		t.Errorf("Read items mismatch (-want +got):\n%s", diff)
	}
}
