// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package patch

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/container"
	"github.com/deppth/deppth/lib/testutil"
)

// item is one entry of a test package: name and payload, plus an
// optional subtexture list that becomes a manifest record.
type item struct {
	name    string
	payload string
	sprites []string
}

func record(name string, sprites []string) *asset.ManifestRecord {
	if sprites == nil {
		return nil
	}
	result := &asset.ManifestRecord{Name: name}
	for _, sprite := range sprites {
		result.Subtextures = append(result.Subtextures, asset.SubtextureRect{Name: sprite, Width: 8, Height: 8})
	}
	return result
}

func build(t *testing.T, kind compress.Kind, items ...item) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer, err := container.Create(&buffer, kind, container.WriterOptions{Manifest: container.ManifestInline})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, it := range items {
		entry := asset.Entry{Name: it.name, Type: asset.TypeTexture, Payload: []byte(it.payload)}
		testutil.RequireNoError(t, writer.Append(entry, record(it.name, it.sprites)), "Append %s", it.name)
	}
	testutil.RequireNoError(t, writer.Close(), "Close")
	return buffer.Bytes()
}

func open(t *testing.T, image []byte, path string) *container.Package {
	t.Helper()
	pkg, err := container.Open(bytes.NewReader(image), container.Options{Mode: container.ModeWithManifest, Path: path})
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	t.Cleanup(func() { pkg.Close() })
	return pkg
}

// manifest returns the record stored for name, or nil.
func manifest(t *testing.T, pkg *container.Package, name string) *asset.ManifestRecord {
	t.Helper()
	record, err := pkg.Manifest(name)
	if err != nil {
		t.Fatalf("Manifest(%q) failed: %v", name, err)
	}
	return record
}

// contents returns "name:payload" pairs in package order.
func contents(t *testing.T, image []byte) []string {
	t.Helper()
	pkg := open(t, image, "merged")
	var result []string
	for handle, err := range pkg.Entries(container.Filter{}) {
		if err != nil {
			t.Fatalf("Entries failed: %v", err)
		}
		payload, err := handle.Payload()
		if err != nil {
			t.Fatalf("Payload(%q) failed: %v", handle.Name(), err)
		}
		result = append(result, handle.Name()+":"+string(payload))
	}
	return result
}

func merge(t *testing.T, base []byte, patches ...[]byte) ([]byte, *Result) {
	t.Helper()
	basePackage := open(t, base, "base.pkg")
	var patchPackages []*container.Package
	for i, image := range patches {
		patchPackages = append(patchPackages, open(t, image, "patch"+string(rune('1'+i))+".pkg"))
	}
	var output bytes.Buffer
	result, err := Merge(basePackage, patchPackages, &output, Options{Manifest: container.ManifestInline})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	return output.Bytes(), result
}

func TestWorkedScenario(t *testing.T) {
	base := build(t, compress.KindNone, item{name: "A", payload: "1"}, item{name: "B", payload: "2"})
	patch1 := build(t, compress.KindNone, item{name: "B", payload: "20"}, item{name: "C", payload: "3"})
	patch2 := build(t, compress.KindNone, item{name: "C", payload: "30"}, item{name: "D", payload: "4"})

	output, result := merge(t, base, patch1, patch2)

	want := []string{"A:1", "B:20", "C:30", "D:4"}
	if got := contents(t, output); !slices.Equal(got, want) {
		t.Errorf("merged contents = %v, want %v", got, want)
	}
	if result.Kept != 1 || result.Replaced != 1 || result.Appended != 2 {
		t.Errorf("counts kept=%d replaced=%d appended=%d, want 1/1/2", result.Kept, result.Replaced, result.Appended)
	}
	if !slices.Equal(result.Names, []string{"A", "B", "C", "D"}) {
		t.Errorf("Names = %v", result.Names)
	}
	if result.Digest != container.SumDigest(output) || result.Written != int64(len(output)) {
		t.Error("Result digest or size does not describe the output")
	}
}

func TestMergeIdempotence(t *testing.T) {
	base := build(t, compress.KindNone, item{name: "A", payload: "1"}, item{name: "B", payload: "2"})
	patch := build(t, compress.KindNone, item{name: "B", payload: "20"}, item{name: "N", payload: "new"})

	first, firstResult := merge(t, base, patch)
	second, secondResult := merge(t, base, patch)
	if !bytes.Equal(first, second) {
		t.Error("merging the same inputs twice produced different bytes")
	}
	if firstResult.Digest != secondResult.Digest {
		t.Error("digests differ between identical merges")
	}

	reapplied, _ := merge(t, first, patch)
	if !bytes.Equal(first, reapplied) {
		t.Error("re-applying a patch to its own output changed the package")
	}
}

func TestPrecedence(t *testing.T) {
	base := build(t, compress.KindNone, item{name: "X", payload: "base"})
	patch1 := build(t, compress.KindNone, item{name: "X", payload: "p1"})
	patch2 := build(t, compress.KindNone, item{name: "X", payload: "p2"})

	output, _ := merge(t, base, patch1, patch2)
	if got := contents(t, output); !slices.Equal(got, []string{"X:p2"}) {
		t.Errorf("merged contents = %v, want the last patch's X", got)
	}
}

func TestAppendOrdering(t *testing.T) {
	base := build(t, compress.KindNone, item{name: "A", payload: "a"}, item{name: "B", payload: "b"})
	patch1 := build(t, compress.KindNone, item{name: "Y", payload: "y"})
	patch2 := build(t, compress.KindNone, item{name: "Z", payload: "z"}, item{name: "Y", payload: "y2"})

	_, result := merge(t, base, patch1, patch2)
	if !slices.Equal(result.Names, []string{"A", "B", "Y", "Z"}) {
		t.Errorf("Names = %v, want A B Y Z", result.Names)
	}
	if result.Appended != 2 {
		t.Errorf("Appended = %d, want 2", result.Appended)
	}
}

func TestManifestReplacedWithEntry(t *testing.T) {
	base := build(t, compress.KindNone,
		item{name: "Atlas", payload: "base", sprites: []string{"Old1", "Old2"}},
		item{name: "Kept", payload: "k", sprites: []string{"Keep"}},
	)
	patch := build(t, compress.KindNone,
		item{name: "Atlas", payload: "patched", sprites: []string{"New"}},
		item{name: "Plain", payload: "no record"},
	)

	output, _ := merge(t, base, patch)
	merged := open(t, output, "merged")
	if got := manifest(t, merged, "Atlas").SubtextureNames(); !slices.Equal(got, []string{"New"}) {
		t.Errorf("Atlas subtextures = %v, want the patch's record whole", got)
	}
	if got := manifest(t, merged, "Kept").SubtextureNames(); !slices.Equal(got, []string{"Keep"}) {
		t.Errorf("Kept subtextures = %v", got)
	}
	if manifest(t, merged, "Plain") != nil {
		t.Error("entry without a record gained one")
	}

	// A replacing entry without a record drops the base record.
	dropping := build(t, compress.KindNone, item{name: "Kept", payload: "k2"})
	output, _ = merge(t, base, dropping)
	if manifest(t, open(t, output, "dropped"), "Kept") != nil {
		t.Error("record survived replacement by an entry without one")
	}
}

func TestIncompatibleKind(t *testing.T) {
	base := build(t, compress.KindNone, item{name: "A", payload: "1"})
	other := build(t, compress.KindLZF, item{name: "B", payload: "2"})

	basePackage := open(t, base, "base.pkg")
	patchPackage := open(t, other, "lzf.pkg")
	var output bytes.Buffer
	_, err := Merge(basePackage, []*container.Package{patchPackage}, &output, Options{})

	incompatible := testutil.RequireErrorAs[*IncompatibleKindError](t, err, "merging across kinds")
	if incompatible.Path != "lzf.pkg" || incompatible.Base != compress.KindNone || incompatible.Patch != compress.KindLZF {
		t.Errorf("IncompatibleKindError = %+v", incompatible)
	}
	if !strings.Contains(err.Error(), "lzf.pkg") || !strings.Contains(err.Error(), "lzf") || !strings.Contains(err.Error(), "uncompressed") {
		t.Errorf("message %q should name the patch and both kinds", err)
	}
	if output.Len() != 0 {
		t.Errorf("%d bytes written before the kind check failed", output.Len())
	}
}

func TestMergeClosedPatch(t *testing.T) {
	basePackage := open(t, build(t, compress.KindNone, item{name: "A", payload: "1"}), "base.pkg")
	patchPackage := open(t, build(t, compress.KindNone, item{name: "B", payload: "2"}), "closed.pkg")
	testutil.RequireNoError(t, patchPackage.Close(), "Close")

	var output bytes.Buffer
	_, err := Merge(basePackage, []*container.Package{patchPackage}, &output, Options{})
	closed := testutil.RequireErrorAs[*container.UseAfterCloseError](t, err, "merging a closed patch")
	if closed.Op != "entries" {
		t.Errorf("UseAfterCloseError.Op = %q, want entries", closed.Op)
	}
	if !strings.Contains(err.Error(), "closed.pkg") {
		t.Errorf("message %q should name the patch", err)
	}
	if output.Len() != 0 {
		t.Errorf("%d bytes written for a closed patch", output.Len())
	}
}

func TestMergeKeepsBaseVersion(t *testing.T) {
	var buffer bytes.Buffer
	writer, err := container.Create(&buffer, compress.KindNone, container.WriterOptions{Version: container.VersionTransistor})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	testutil.RequireNoError(t, writer.Append(asset.Entry{Name: "A", Payload: []byte("1")}, nil), "Append")
	testutil.RequireNoError(t, writer.Close(), "Close")

	patch := build(t, compress.KindNone, item{name: "B", payload: "2"})
	basePackage := open(t, buffer.Bytes(), "base.pkg")
	var output bytes.Buffer
	if _, err := Merge(basePackage, []*container.Package{open(t, patch, "p.pkg")}, &output, Options{}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged := open(t, output.Bytes(), "merged"); merged.Version() != container.VersionTransistor {
		t.Errorf("merged version = %d, want %d", merged.Version(), container.VersionTransistor)
	}
}

func TestMergeCompressedWithoutCodec(t *testing.T) {
	if err := compress.Default().Available(compress.KindLZ4); err != nil {
		t.Skipf("backend not built in: %v", err)
	}
	payload := strings.Repeat("compressible ", 100)
	base := build(t, compress.KindLZ4, item{name: "A", payload: payload})
	patch := build(t, compress.KindLZ4, item{name: "B", payload: payload})

	degraded := compress.NewRegistry()
	openDegraded := func(image []byte) *container.Package {
		pkg, err := container.Open(bytes.NewReader(image), container.Options{Registry: degraded})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { pkg.Close() })
		return pkg
	}

	var output bytes.Buffer
	_, err := Merge(openDegraded(base), []*container.Package{openDegraded(patch)}, &output, Options{Registry: degraded})
	if err != nil {
		t.Fatalf("Merge without the codec failed: %v", err)
	}
	if got := contents(t, output.Bytes()); !slices.Equal(got, []string{"A:" + payload, "B:" + payload}) {
		t.Error("stored blocks were not carried through unchanged")
	}
}

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) EntryKept(name string) { o.events = append(o.events, "kept "+name) }
func (o *recordingObserver) EntryReplaced(name, path string) {
	o.events = append(o.events, "replaced "+name+" by "+path)
}
func (o *recordingObserver) EntryAppended(name, path string) {
	o.events = append(o.events, "appended "+name+" by "+path)
}

func TestObserverEvents(t *testing.T) {
	base := build(t, compress.KindNone, item{name: "A", payload: "1"}, item{name: "B", payload: "2"})
	patch1 := build(t, compress.KindNone, item{name: "B", payload: "20"}, item{name: "C", payload: "3"})
	patch2 := build(t, compress.KindNone, item{name: "C", payload: "30"})

	observer := &recordingObserver{}
	var output bytes.Buffer
	_, err := Merge(open(t, base, "base.pkg"),
		[]*container.Package{open(t, patch1, "p1.pkg"), open(t, patch2, "p2.pkg")},
		&output, Options{Observer: observer})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	want := []string{
		"replaced B by p1.pkg",
		"appended C by p1.pkg",
		"replaced C by p2.pkg",
		"kept A",
	}
	if !slices.Equal(observer.events, want) {
		t.Errorf("events = %v, want %v", observer.events, want)
	}
}

func TestSlogObserver(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	observer := SlogObserver(logger)
	observer.EntryKept("A")
	observer.EntryReplaced("B", "p.pkg")
	observer.EntryAppended("C", "p.pkg")

	output := logs.String()
	for _, fragment := range []string{"entry kept", "entry=A", "entry replaced", "patch=p.pkg", "entry appended", "entry=C"} {
		if !strings.Contains(output, fragment) {
			t.Errorf("log output missing %q:\n%s", fragment, output)
		}
	}
}

func TestMergeFilesInPlace(t *testing.T) {
	directory := testutil.WorkDir(t, "merge")
	basePath := filepath.Join(directory, "Fx.pkg")
	patchPath := filepath.Join(directory, "Fx_patch.pkg")
	testutil.WriteFile(t, basePath, build(t, compress.KindNone, item{name: "A", payload: "1"}, item{name: "B", payload: "2", sprites: []string{"S"}}))
	testutil.WriteFile(t, patchPath, build(t, compress.KindNone, item{name: "B", payload: "20", sprites: []string{"T"}}))

	result, err := MergeFiles(basePath, []string{patchPath}, basePath, Options{})
	if err != nil {
		t.Fatalf("MergeFiles failed: %v", err)
	}
	written := testutil.ReadFile(t, basePath)
	if result.Digest != container.SumDigest(written) {
		t.Error("Result digest does not match the file on disk")
	}
	if got := contents(t, written); !slices.Equal(got, []string{"A:1", "B:20"}) {
		t.Errorf("merged contents = %v", got)
	}
	if got := manifest(t, open(t, written, "merged"), "B").SubtextureNames(); !slices.Equal(got, []string{"T"}) {
		t.Errorf("B subtextures = %v, want [T]", got)
	}

	entries, err := filepath.Glob(filepath.Join(directory, ".*tmp-*"))
	if err != nil || len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestMergeFilesSidecar(t *testing.T) {
	directory := testutil.WorkDir(t, "sidecar")
	basePath := filepath.Join(directory, "Gui.pkg")
	patchPath := filepath.Join(directory, "Gui_patch.pkg")
	outPath := filepath.Join(directory, "Gui_out.pkg")

	writeSidecarPackage := func(path string, items ...item) {
		writer, err := container.CreateFile(path, compress.KindNone, container.WriterOptions{Manifest: container.ManifestSidecar})
		if err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		for _, it := range items {
			testutil.RequireNoError(t, writer.Append(asset.Entry{Name: it.name, Payload: []byte(it.payload)}, record(it.name, it.sprites)), "Append")
		}
		testutil.RequireNoError(t, writer.Close(), "Close")
	}
	writeSidecarPackage(basePath, item{name: "Atlas", payload: "a", sprites: []string{"Old"}})
	writeSidecarPackage(patchPath, item{name: "Atlas", payload: "b", sprites: []string{"New"}})

	if _, err := MergeFiles(basePath, []string{patchPath}, outPath, Options{}); err != nil {
		t.Fatalf("MergeFiles failed: %v", err)
	}
	merged, err := container.OpenFile(outPath, container.ModeWithManifest, container.Options{})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer merged.Close()
	if merged.Header().InlineManifest {
		t.Error("sidecar inputs should produce a sidecar output")
	}
	if got := manifest(t, merged, "Atlas").SubtextureNames(); !slices.Equal(got, []string{"New"}) {
		t.Errorf("Atlas subtextures = %v, want [New]", got)
	}
}

func TestMergeFilesIncompatibleLeavesOutput(t *testing.T) {
	directory := testutil.WorkDir(t, "incompatible")
	basePath := filepath.Join(directory, "base.pkg")
	patchPath := filepath.Join(directory, "patch.pkg")
	original := build(t, compress.KindNone, item{name: "A", payload: "1"})
	testutil.WriteFile(t, basePath, original)
	testutil.WriteFile(t, patchPath, build(t, compress.KindLZF, item{name: "A", payload: "2"}))

	_, err := MergeFiles(basePath, []string{patchPath}, basePath, Options{})
	testutil.RequireErrorAs[*IncompatibleKindError](t, err, "MergeFiles across kinds")
	if !bytes.Equal(testutil.ReadFile(t, basePath), original) {
		t.Error("failed merge modified the base package")
	}
}
