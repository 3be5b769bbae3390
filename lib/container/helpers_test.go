// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/testutil"
)

// fixtureEntry pairs an entry with its optional manifest record.
type fixtureEntry struct {
	entry  asset.Entry
	record *asset.ManifestRecord
}

func atlasRecord(name string, sprites ...string) *asset.ManifestRecord {
	record := &asset.ManifestRecord{Name: name, Version: 4}
	for i, sprite := range sprites {
		record.Subtextures = append(record.Subtextures, asset.SubtextureRect{
			Name:   sprite,
			X:      int32(i * 32),
			Width:  32,
			Height: 32,
			ScaleX: 1,
			ScaleY: 1,
		})
	}
	return record
}

// sampleEntries returns a compressible texture, an incompressible
// atlas with a manifest record, an empty include and a spine
// reference with a record.
func sampleEntries() []fixtureEntry {
	return []fixtureEntry{
		{entry: asset.Entry{Name: `Textures\Hud`, Type: asset.TypeTexture, Payload: testutil.Payload(1, 4096, 64)}},
		{
			entry:  asset.Entry{Name: `Atlases\Fx`, Type: asset.TypeAtlas, Payload: testutil.Payload(2, 2048, 0)},
			record: atlasRecord(`Atlases\Fx`, `Fx\Nova01`, `Fx\Nova02`),
		},
		{entry: asset.Entry{Name: "Include", Type: asset.TypeInclude}},
		{
			entry:  asset.Entry{Name: `Spines\Zagreus`, Type: asset.TypeSpine, Payload: []byte("Spine/Zagreus.skel")},
			record: &asset.ManifestRecord{Name: `Spines\Zagreus`, SpinePath: "Spine/Zagreus.skel"},
		},
	}
}

// withoutRecords drops the manifest records from fixtures, for
// writers without a manifest.
func withoutRecords(fixtures []fixtureEntry) []fixtureEntry {
	for i := range fixtures {
		fixtures[i].record = nil
	}
	return fixtures
}

// buildPackage writes entries to memory and returns the image and the
// sidecar (nil unless options select ManifestSidecar).
func buildPackage(t *testing.T, kind compress.Kind, options WriterOptions, entries []fixtureEntry) (image, sidecar []byte) {
	t.Helper()
	var sidecarBuffer bytes.Buffer
	if options.Manifest == ManifestSidecar {
		options.ManifestSink = &sidecarBuffer
	}
	var buffer bytes.Buffer
	writer, err := Create(&buffer, kind, options)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, fixture := range entries {
		if err := writer.Append(fixture.entry, fixture.record); err != nil {
			t.Fatalf("Append(%q) failed: %v", fixture.entry.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if options.Manifest == ManifestSidecar {
		sidecar = sidecarBuffer.Bytes()
	}
	return buffer.Bytes(), sidecar
}

func openImage(t *testing.T, image []byte, options Options) *Package {
	t.Helper()
	pkg, err := Open(bytes.NewReader(image), options)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if !pkg.closed {
			pkg.Close()
		}
	})
	return pkg
}

func lookup(t *testing.T, pkg *Package, name string) *Handle {
	t.Helper()
	handle, err := pkg.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) failed: %v", name, err)
	}
	return handle
}

func manifestOf(t *testing.T, pkg *Package, name string) *asset.ManifestRecord {
	t.Helper()
	record, err := pkg.Manifest(name)
	if err != nil {
		t.Fatalf("Manifest(%q) failed: %v", name, err)
	}
	return record
}

// entryNames collects the names pkg.Entries(filter) yields.
func entryNames(t *testing.T, pkg *Package, filter Filter) []string {
	t.Helper()
	var names []string
	for handle, err := range pkg.Entries(filter) {
		if err != nil {
			t.Fatalf("Entries failed: %v", err)
		}
		names = append(names, handle.Name())
	}
	return names
}

func requireBackend(t *testing.T, kind compress.Kind) {
	t.Helper()
	if err := compress.Default().Available(kind); err != nil {
		t.Skipf("backend not built in: %v", err)
	}
}

// countingSource counts ReadAt calls.
type countingSource struct {
	*bytes.Reader
	reads int
}

func (s *countingSource) ReadAt(p []byte, offset int64) (int, error) {
	s.reads++
	return s.Reader.ReadAt(p, offset)
}

// limitedWriter accepts limit bytes and then fails.
type limitedWriter struct {
	limit   int
	written bytes.Buffer
}

var errSinkFull = errors.New("sink full")

func (w *limitedWriter) Write(p []byte) (int, error) {
	room := w.limit - w.written.Len()
	if len(p) <= room {
		return w.written.Write(p)
	}
	w.written.Write(p[:room])
	return room, errSinkFull
}

var _ io.Writer = (*limitedWriter)(nil)

// reverseCodec stands in for a real backend under the LZ4 kind. It
// reverses bytes and refuses to decode anything that reverses to a
// "bad" prefix.
func reverseCodec() compress.Codec {
	reverse := func(data []byte) []byte {
		output := make([]byte, len(data))
		for i, b := range data {
			output[len(data)-1-i] = b
		}
		return output
	}
	return compress.Codec{
		Kind:     compress.KindLZ4,
		Compress: func(data []byte) ([]byte, error) { return reverse(data), nil },
		Decompress: func(data []byte, _ int) ([]byte, error) {
			output := reverse(data)
			if bytes.HasPrefix(output, []byte("bad")) {
				return nil, errors.New("corrupt block")
			}
			return output, nil
		},
	}
}
