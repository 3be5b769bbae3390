// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/deppth/deppth/cmd/deppth/cli"
	"github.com/deppth/deppth/lib/asset"
	"github.com/deppth/deppth/lib/assetdir"
	"github.com/deppth/deppth/lib/compress"
	"github.com/deppth/deppth/lib/config"
	"github.com/deppth/deppth/lib/container"
	"github.com/deppth/deppth/lib/patch"
	"github.com/deppth/deppth/lib/pkgops"
	"github.com/deppth/deppth/lib/testutil"
)

func fxEntries() []asset.Entry {
	return []asset.Entry{
		{Name: `Textures\Hud`, Type: asset.TypeTexture, Payload: testutil.Payload(11, 2048, 64)},
		{Name: `Atlases\Fx`, Type: asset.TypeAtlas, Payload: []byte("atlas page")},
		{Name: `Spines\Zagreus`, Type: asset.TypeSpine, Payload: []byte("Spine/Zagreus.skel")},
	}
}

func fxRecords() []asset.ManifestRecord {
	return []asset.ManifestRecord{
		{
			Name: `Atlases\Fx`,
			Subtextures: []asset.SubtextureRect{
				{Name: `Fx\Nova01`, Width: 32, Height: 32, ScaleX: 1, ScaleY: 1},
				{Name: `Fx\Nova02`, X: 32, Width: 32, Height: 32, ScaleX: 1, ScaleY: 1},
			},
		},
		{Name: `Spines\Zagreus`, SpinePath: "Spine/Zagreus.skel"},
	}
}

func writeFixture(t *testing.T, dir, name string, kind compress.Kind, entries []asset.Entry, records []asset.ManifestRecord) string {
	t.Helper()
	path := filepath.Join(dir, name)
	_, err := pkgops.PackFile(path, kind, entries, records, container.WriterOptions{Manifest: container.ManifestInline})
	if err != nil {
		t.Fatalf("PackFile(%s) failed: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Root = testutil.WorkDir(t, "root")
	cfg.Paths.Work = filepath.Join(cfg.Paths.Root, "work")
	cfg.Pack.Kind = "lz4"
	cfg.Pack.Version = int(container.VersionHades)
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunList(t *testing.T) {
	path := writeFixture(t, testutil.WorkDir(t, "list"), "Fx.pkg", compress.KindNone, fxEntries(), fxRecords())

	t.Run("table", func(t *testing.T) {
		var output bytes.Buffer
		if err := runList(&output, path, &listParams{}); err != nil {
			t.Fatalf("runList failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("got %d lines, want header and 3 entries:\n%s", len(lines), output.String())
		}
		if !strings.HasPrefix(lines[0], "NAME") {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.Contains(lines[2], `Atlases\Fx`) || !strings.Contains(lines[2], `Fx\Nova01,Fx\Nova02`) {
			t.Errorf("atlas line = %q", lines[2])
		}
	})

	t.Run("names with filter", func(t *testing.T) {
		var output bytes.Buffer
		params := &listParams{Names: true}
		params.Filters = []string{"Atlases/*"}
		if err := runList(&output, path, params); err != nil {
			t.Fatalf("runList failed: %v", err)
		}
		want := "Atlases\\Fx\nFx\\Nova01\nFx\\Nova02\n"
		if output.String() != want {
			t.Errorf("output = %q, want %q", output.String(), want)
		}
	})

	t.Run("json", func(t *testing.T) {
		var output bytes.Buffer
		params := &listParams{}
		params.OutputJSON = true
		params.Filters = []string{"Zagreus"}
		if err := runList(&output, path, params); err != nil {
			t.Fatalf("runList failed: %v", err)
		}
		var entries []listEntry
		if err := json.Unmarshal(output.Bytes(), &entries); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, output.String())
		}
		want := []listEntry{{Name: `Spines\Zagreus`, Type: "spine", RawSize: 18, StoredSize: 18}}
		if diff := cmp.Diff(want, entries); diff != "" {
			t.Errorf("entries mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("bad pattern", func(t *testing.T) {
		params := &listParams{}
		params.Filters = []string{"["}
		if err := runList(&bytes.Buffer{}, path, params); err == nil {
			t.Error("runList should reject a malformed pattern")
		}
	})
}

func TestExtractPackRoundtrip(t *testing.T) {
	dir := testutil.WorkDir(t, "roundtrip")
	source := writeFixture(t, dir, "Fx.pkg", compress.KindNone, fxEntries(), fxRecords())
	cfg := testConfig(t)

	unpacked := filepath.Join(dir, "unpacked")
	var output bytes.Buffer
	if err := runExtract(&output, discardLogger(), cfg, source, &extractParams{Out: unpacked, Subtextures: true}); err != nil {
		t.Fatalf("runExtract failed: %v", err)
	}
	if !strings.Contains(output.String(), "extracted 3 entries") {
		t.Errorf("extract output = %q", output.String())
	}

	repacked := filepath.Join(dir, "Fx.repacked.pkg")
	output.Reset()
	if err := runPack(&output, discardLogger(), cfg, unpacked, &packParams{Out: repacked}); err != nil {
		t.Fatalf("runPack failed: %v", err)
	}

	// Kind and version come from the index, so the bytes are identical.
	want, err := container.FileDigest(source)
	if err != nil {
		t.Fatalf("FileDigest failed: %v", err)
	}
	got, err := container.FileDigest(repacked)
	if err != nil {
		t.Fatalf("FileDigest failed: %v", err)
	}
	if got != want {
		t.Errorf("repacked digest %s, original %s", got, want)
	}
	if !strings.Contains(output.String(), "packed 3 entries (2 manifest records)") {
		t.Errorf("pack output = %q", output.String())
	}
}

func TestExtractDefaultsToWorkDirectory(t *testing.T) {
	source := writeFixture(t, testutil.WorkDir(t, "extract"), "Fx.pkg", compress.KindNone, fxEntries(), nil)
	cfg := testConfig(t)

	if err := runExtract(&bytes.Buffer{}, discardLogger(), cfg, source, &extractParams{}); err != nil {
		t.Fatalf("runExtract failed: %v", err)
	}
	unpacked, err := assetdir.Read(filepath.Join(cfg.Paths.Work, "Fx"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(unpacked.Items) != 3 {
		t.Errorf("extracted %d items, want 3", len(unpacked.Items))
	}
}

func TestExtractWithoutSubtextures(t *testing.T) {
	dir := testutil.WorkDir(t, "extract")
	source := writeFixture(t, dir, "Fx.pkg", compress.KindNone, fxEntries(), fxRecords())
	out := filepath.Join(dir, "unpacked")

	params := &extractParams{Out: out}
	params.Filters = []string{"Fx"}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	if err := runExtract(&bytes.Buffer{}, logger, testConfig(t), source, params); err != nil {
		t.Fatalf("runExtract failed: %v", err)
	}
	for _, want := range []string{`"level":"WARN"`, `"msg":"subtexture rectangles omitted from manifest records"`, `"subtextures":2`} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs missing %s:\n%s", want, logs.String())
		}
	}
	unpacked, err := assetdir.Read(out)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(unpacked.Items) != 1 || unpacked.Items[0].Record == nil {
		t.Fatalf("items = %+v, want the atlas with its record", unpacked.Items)
	}
	if unpacked.Items[0].Record.Subtextures != nil {
		t.Errorf("Subtextures = %v, want none", unpacked.Items[0].Record.Subtextures)
	}
}

func TestExtractReportsUndecodableEntries(t *testing.T) {
	dir := testutil.WorkDir(t, "extract")
	// The stand-in codec stores Big as bytes no zstd decoder accepts;
	// Small is stored raw and still extracts.
	entries := []asset.Entry{
		{Name: "Big", Type: asset.TypeRaw, Payload: make([]byte, 4096)},
		{Name: "Small", Type: asset.TypeRaw, Payload: []byte("x")},
	}
	fake := compress.Codec{
		Kind: compress.KindZstd,
		Compress: func(data []byte) ([]byte, error) {
			if len(data) < 64 {
				return nil, compress.ErrIncompressible
			}
			return []byte("not a zstd frame"), nil
		},
		Decompress: func([]byte, int) ([]byte, error) { return nil, errors.New("unused") },
	}
	path := filepath.Join(dir, "Broken.pkg")
	_, err := pkgops.PackFile(path, compress.KindZstd, entries, nil, container.WriterOptions{Registry: compress.NewRegistry(fake)})
	if err != nil {
		t.Fatalf("PackFile failed: %v", err)
	}

	var output bytes.Buffer
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	err = runExtract(&output, logger, testConfig(t), path, &extractParams{Out: filepath.Join(dir, "out")})
	exitError := testutil.RequireErrorAs[*cli.ExitError](t, err)
	if exitError.Code != 1 {
		t.Errorf("exit code = %d, want 1", exitError.Code)
	}
	if !strings.Contains(output.String(), "extracted 1 entries") || !strings.Contains(output.String(), `entry "Big"`) {
		t.Errorf("output = %q", output.String())
	}
	if !strings.Contains(logs.String(), "entry not extracted") {
		t.Errorf("logs = %q", logs.String())
	}
}

func TestRunPackOverrides(t *testing.T) {
	dir := testutil.WorkDir(t, "pack")
	items := []assetdir.Item{
		{Entry: fxEntries()[1], Record: &fxRecords()[0]},
		{Entry: fxEntries()[0]},
	}
	unpacked := filepath.Join(dir, "unpacked")
	if err := assetdir.Write(unpacked, compress.KindNone, 0, items); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	cfg := testConfig(t)
	cfg.Pack.Version = int(container.VersionTransistor)

	out := filepath.Join(dir, "Fx.pkg")
	err := runPack(&bytes.Buffer{}, discardLogger(), cfg, unpacked, &packParams{Out: out, Manifest: "sidecar"})
	if err != nil {
		t.Fatalf("runPack failed: %v", err)
	}
	pkg, err := container.OpenFile(out, container.ModeWithManifest, container.Options{})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer pkg.Close()
	if pkg.Version() != container.VersionTransistor {
		t.Errorf("version = %d, want the configured %d", pkg.Version(), container.VersionTransistor)
	}
	if pkg.Header().InlineManifest || !pkg.HasManifest() {
		t.Error("want a sidecar manifest")
	}
	names, err := pkgops.ListNames(pkg, container.Filter{})
	if err != nil {
		t.Fatalf("ListNames failed: %v", err)
	}
	if diff := cmp.Diff([]string{`Atlases\Fx`, `Fx\Nova01`, `Fx\Nova02`, `Textures\Hud`}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	if err := runPack(&bytes.Buffer{}, discardLogger(), cfg, unpacked, &packParams{}); err == nil {
		t.Error("runPack without --out should fail")
	}
	if err := runPack(&bytes.Buffer{}, discardLogger(), cfg, unpacked, &packParams{Out: out, Kind: "lzx"}); err == nil {
		t.Error("runPack should reject an unknown kind")
	}
	if err := runPack(&bytes.Buffer{}, discardLogger(), cfg, unpacked, &packParams{Out: out, Version: 6}); err == nil {
		t.Error("runPack should reject an unsupported version")
	}
}

func TestRunPackFilter(t *testing.T) {
	dir := testutil.WorkDir(t, "pack")
	items := []assetdir.Item{
		{Entry: fxEntries()[0]},
		{Entry: fxEntries()[1], Record: &fxRecords()[0]},
		{Entry: fxEntries()[2], Record: &fxRecords()[1]},
	}
	unpacked := filepath.Join(dir, "unpacked")
	if err := assetdir.Write(unpacked, compress.KindNone, 0, items); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := filepath.Join(dir, "Fx.pkg")
	params := &packParams{Out: out, Kind: "uncompressed", Manifest: "inline"}
	params.Filters = []string{"Atlases/*", "Hud"}
	var output bytes.Buffer
	if err := runPack(&output, discardLogger(), testConfig(t), unpacked, params); err != nil {
		t.Fatalf("runPack failed: %v", err)
	}
	if !strings.Contains(output.String(), "packed 2 entries (1 manifest records)") {
		t.Errorf("output = %q", output.String())
	}

	pkg, err := container.OpenFile(out, container.ModeWithManifest, container.Options{})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer pkg.Close()
	names, err := pkgops.ListNames(pkg, container.Filter{})
	if err != nil {
		t.Fatalf("ListNames failed: %v", err)
	}
	if diff := cmp.Diff([]string{`Textures\Hud`, `Atlases\Fx`, `Fx\Nova01`, `Fx\Nova02`}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := pkg.Lookup(`Spines\Zagreus`); !errors.Is(err, container.ErrNoEntry) {
		t.Errorf("Lookup(Spines\\Zagreus) = %v, want ErrNoEntry", err)
	}

	params.Filters = []string{"Zagreus*", "Nothing"}
	params.Out = filepath.Join(dir, "Spine.pkg")
	if err := runPack(&bytes.Buffer{}, discardLogger(), testConfig(t), unpacked, params); err != nil {
		t.Fatalf("runPack failed: %v", err)
	}
	spine, err := container.OpenFile(params.Out, container.ModeWithManifest, container.Options{})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer spine.Close()
	if record, err := spine.Manifest(`Spines\Zagreus`); err != nil || record == nil || record.SpinePath != "Spine/Zagreus.skel" {
		t.Errorf("Manifest(Spines\\Zagreus) = %+v, %v", record, err)
	}
	if spine.Len() != 1 {
		t.Errorf("Len() = %d, want 1", spine.Len())
	}

	params.Filters = []string{"Nothing"}
	params.Out = filepath.Join(dir, "Empty.pkg")
	if err := runPack(&bytes.Buffer{}, discardLogger(), testConfig(t), unpacked, params); err == nil {
		t.Error("runPack should fail when the filter matches nothing")
	}
	params.Filters = []string{"["}
	if err := runPack(&bytes.Buffer{}, discardLogger(), testConfig(t), unpacked, params); err == nil {
		t.Error("runPack should reject a malformed pattern")
	}
}

func TestRunPatch(t *testing.T) {
	dir := testutil.WorkDir(t, "patch")
	base := writeFixture(t, dir, "Fx.pkg", compress.KindNone, fxEntries(), fxRecords())
	mod := writeFixture(t, dir, "FxMod.pkg", compress.KindNone, []asset.Entry{
		{Name: `Textures\Hud`, Type: asset.TypeTexture, Payload: []byte("modded hud")},
		{Name: `Textures\New`, Type: asset.TypeTexture, Payload: []byte("new")},
	}, nil)

	var output bytes.Buffer
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	if err := runPatch(&output, logger, base, []string{mod}, &patchParams{}); err != nil {
		t.Fatalf("runPatch failed: %v", err)
	}
	if !strings.Contains(output.String(), "2 kept, 1 replaced, 1 appended") {
		t.Errorf("output = %q", output.String())
	}
	for _, want := range []string{`"msg":"entry replaced"`, `"msg":"entry appended"`, `"base":`} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs missing %s:\n%s", want, logs.String())
		}
	}

	pkg, err := container.OpenFile(base, container.ModeWithManifest, container.Options{})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer pkg.Close()
	handle, err := pkg.Lookup(`Textures\Hud`)
	if err != nil {
		t.Fatalf("Lookup after patch failed: %v", err)
	}
	payload, err := handle.Payload()
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if string(payload) != "modded hud" {
		t.Errorf("payload = %q, want the patch's", payload)
	}
	if record, err := pkg.Manifest(`Atlases\Fx`); err != nil || record == nil {
		t.Errorf("base manifest record lost (err: %v)", err)
	}
}

func TestRunPatchIncompatible(t *testing.T) {
	dir := testutil.WorkDir(t, "patch")
	base := writeFixture(t, dir, "Fx.pkg", compress.KindNone, fxEntries(), nil)
	before := testutil.ReadFile(t, base)

	lzf := compress.Codec{
		Kind:       compress.KindLZF,
		Compress:   func([]byte) ([]byte, error) { return nil, compress.ErrIncompressible },
		Decompress: func(data []byte, _ int) ([]byte, error) { return data, nil },
	}
	mod := filepath.Join(dir, "Mod.pkg")
	if _, err := pkgops.PackFile(mod, compress.KindLZF, fxEntries()[:1], nil, container.WriterOptions{Registry: compress.NewRegistry(lzf)}); err != nil {
		t.Fatalf("PackFile failed: %v", err)
	}

	err := runPatch(&bytes.Buffer{}, discardLogger(), base, []string{mod}, &patchParams{})
	testutil.RequireErrorAs[*patch.IncompatibleKindError](t, err)
	if !bytes.Equal(testutil.ReadFile(t, base), before) {
		t.Error("failed patch modified the base package")
	}
}

func TestRunInfo(t *testing.T) {
	path := writeFixture(t, testutil.WorkDir(t, "info"), "Fx.pkg", compress.KindNone, fxEntries(), fxRecords())
	digest, err := container.FileDigest(path)
	if err != nil {
		t.Fatalf("FileDigest failed: %v", err)
	}

	t.Run("text", func(t *testing.T) {
		var output bytes.Buffer
		if err := runInfo(&output, path, &infoParams{Manifest: true}); err != nil {
			t.Fatalf("runInfo failed: %v", err)
		}
		text := output.String()
		for _, want := range []string{
			"blake3:      " + digest.String(),
			"kind:        uncompressed",
			"version:     7",
			"entries:     3 (0 compressed",
			"manifest:    inline (2 records, 2 subtextures)",
			`"spine_path"`,
			`"Spine/Zagreus.skel"`,
		} {
			if !strings.Contains(text, want) {
				t.Errorf("output missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var output bytes.Buffer
		params := &infoParams{}
		params.OutputJSON = true
		if err := runInfo(&output, path, params); err != nil {
			t.Fatalf("runInfo failed: %v", err)
		}
		var info infoOutput
		if err := json.Unmarshal(output.Bytes(), &info); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if info.Digest != digest.String() || info.Entries != 3 || !info.CodecAvailable {
			t.Errorf("info = %+v", info)
		}
		if diff := cmp.Diff(map[string]int{"texture": 1, "atlas": 1, "spine": 1}, info.Types); diff != "" {
			t.Errorf("types mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRunInfoExpect(t *testing.T) {
	path := writeFixture(t, testutil.WorkDir(t, "info"), "Fx.pkg", compress.KindNone, fxEntries(), fxRecords())
	digest, err := container.FileDigest(path)
	if err != nil {
		t.Fatalf("FileDigest failed: %v", err)
	}

	var output bytes.Buffer
	if err := runInfo(&output, path, &infoParams{Expect: digest.String()}); err != nil {
		t.Fatalf("runInfo with the matching digest failed: %v", err)
	}
	if !strings.Contains(output.String(), digest.String()) {
		t.Errorf("output = %q", output.String())
	}

	other := container.SumDigest([]byte("something else"))
	output.Reset()
	err = runInfo(&output, path, &infoParams{Expect: other.String()})
	mismatch := testutil.RequireErrorAs[*container.DigestMismatchError](t, err)
	if mismatch.Got != digest || mismatch.Want != other || mismatch.Path != path {
		t.Errorf("DigestMismatchError = %+v", mismatch)
	}
	if output.Len() != 0 {
		t.Errorf("output = %q, want nothing on mismatch", output.String())
	}

	if err := runInfo(&bytes.Buffer{}, path, &infoParams{Expect: "abcd"}); err == nil || !strings.Contains(err.Error(), "--expect") {
		t.Errorf("runInfo with a malformed digest = %v, want an --expect error", err)
	}
}
