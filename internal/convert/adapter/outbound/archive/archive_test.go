package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
)

func writeTree(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func readNames(t *testing.T, base string, files []string) map[string]string {
	t.Helper()
	got := map[string]string{}
	for _, f := range files {
		rel, err := filepath.Rel(base, f)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		body, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		got[filepath.ToSlash(rel)] = string(body)
	}
	return got
}

func TestZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	files := map[string]string{
		"readme.txt":      "hello",
		"nested/data.csv": "a,b\n1,2\n",
	}
	paths := writeTree(t, src, files)

	sub := New(DefaultLimits())
	archivePath := filepath.Join(dir, "bundle.zip")
	if err := sub.Pack(context.Background(), src, paths, archivePath, "zip"); err != nil {
		t.Fatalf("pack: %v", err)
	}

	dest := filepath.Join(dir, "out")
	res := sub.Extract(context.Background(), archivePath, dest)
	if !res.Succeeded() {
		t.Fatalf("extract failed: %s", res.Message)
	}
	if got := readNames(t, dest, res.Files); len(got) != len(files) {
		t.Fatalf("got %d files, want %d", len(got), len(files))
	} else {
		for name, body := range files {
			if got[name] != body {
				t.Fatalf("entry %s: got %q, want %q", name, got[name], body)
			}
		}
	}
	if !strings.Contains(res.Message, "extracted 2 files") {
		t.Fatalf("unexpected message: %s", res.Message)
	}
}

func TestTarGzRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	paths := writeTree(t, src, map[string]string{
		"a.txt":     strings.Repeat("x", 4096),
		"dir/b.txt": "second",
	})

	sub := New(DefaultLimits())
	archivePath := filepath.Join(dir, "bundle.tar.gz")
	if err := sub.Pack(context.Background(), src, paths, archivePath, "tar.gz"); err != nil {
		t.Fatalf("pack: %v", err)
	}

	dest := filepath.Join(dir, "out")
	res := sub.Extract(context.Background(), archivePath, dest)
	if !res.Succeeded() {
		t.Fatalf("extract failed: %s", res.Message)
	}
	got := readNames(t, dest, res.Files)
	if got["a.txt"] != strings.Repeat("x", 4096) || got["dir/b.txt"] != "second" {
		t.Fatal("tar.gz round trip corrupted entry contents")
	}
}

func TestDeclaredSizeCeilingRejectsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	paths := writeTree(t, src, map[string]string{
		"big.bin": strings.Repeat("z", 2048),
	})

	sub := New(DefaultLimits())
	archivePath := filepath.Join(dir, "bomb.zip")
	if err := sub.Pack(context.Background(), src, paths, archivePath, "zip"); err != nil {
		t.Fatalf("pack: %v", err)
	}

	dest := filepath.Join(dir, "out")
	small := New(Limits{MaxTotalBytes: 1024, MaxEntries: 100})
	res := small.Extract(context.Background(), archivePath, dest)
	if res.Succeeded() {
		t.Fatal("oversized archive must be rejected")
	}
	if !strings.Contains(res.Message, port.ErrResourceLimit.Error()) {
		t.Fatalf("rejection must carry the resource-limit class: %s", res.Message)
	}
	if !strings.Contains(res.Message, "extraction limit") {
		t.Fatalf("rejection must name the limit: %s", res.Message)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejection must leave no extracted files, found %d", len(entries))
	}
}

func TestEntryCountCeiling(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	paths := writeTree(t, src, map[string]string{
		"1.txt": "a", "2.txt": "b", "3.txt": "c", "4.txt": "d",
	})

	sub := New(DefaultLimits())
	archivePath := filepath.Join(dir, "many.zip")
	if err := sub.Pack(context.Background(), src, paths, archivePath, "zip"); err != nil {
		t.Fatalf("pack: %v", err)
	}

	small := New(Limits{MaxTotalBytes: 1 << 20, MaxEntries: 3})
	res := small.Extract(context.Background(), archivePath, filepath.Join(dir, "out"))
	if res.Succeeded() {
		t.Fatal("archive above the entry limit must be rejected")
	}
	if !strings.Contains(res.Message, port.ErrResourceLimit.Error()) {
		t.Fatalf("rejection must carry the resource-limit class: %s", res.Message)
	}
	if !strings.Contains(res.Message, "entry limit") {
		t.Fatalf("rejection must name the entry limit: %s", res.Message)
	}
}

func TestTraversalEntryRejected(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "../escape.txt"})
	if err != nil {
		t.Fatalf("create header: %v", err)
	}
	if _, err := w.Write([]byte("nope")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := os.WriteFile(archivePath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	dest := filepath.Join(dir, "out")
	res := New(DefaultLimits()).Extract(context.Background(), archivePath, dest)
	if res.Succeeded() {
		t.Fatal("traversal entry must fail the extraction")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("traversal entry must not be written outside the destination")
	}
}

func TestCorruptArchiveFails(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(archivePath, []byte("not a zip at all"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	res := New(DefaultLimits()).Extract(context.Background(), archivePath, filepath.Join(dir, "out"))
	if res.Succeeded() {
		t.Fatal("corrupt archive must fail")
	}
	if !strings.Contains(res.Message, "zip") {
		t.Fatalf("failure must name the format: %s", res.Message)
	}
}

func TestRepackZipToTarGz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	paths := writeTree(t, src, map[string]string{
		"doc.txt":   "contents survive the repack",
		"sub/x.bin": "binary-ish",
	})

	sub := New(DefaultLimits())
	zipPath := filepath.Join(dir, "in.zip")
	if err := sub.Pack(context.Background(), src, paths, zipPath, "zip"); err != nil {
		t.Fatalf("pack: %v", err)
	}

	outPath := filepath.Join(dir, "out.tar.gz")
	outcome := NewConverter(sub, dir).Convert(context.Background(), port.ConvertRequest{
		InputPath:  zipPath,
		OutputPath: outPath,
		SourceExt:  "zip",
		TargetExt:  "tar.gz",
		Opts:       domain.DefaultOptions(),
	})
	if !outcome.Succeeded() || outcome.Degraded() {
		t.Fatalf("repack failed: %s", outcome.Message)
	}
	if !strings.Contains(outcome.Message, "repacked 2 files") {
		t.Fatalf("unexpected message: %s", outcome.Message)
	}

	dest := filepath.Join(dir, "verify")
	res := sub.Extract(context.Background(), outPath, dest)
	if !res.Succeeded() {
		t.Fatalf("re-extract failed: %s", res.Message)
	}
	got := readNames(t, dest, res.Files)
	if got["doc.txt"] != "contents survive the repack" || got["sub/x.bin"] != "binary-ish" {
		t.Fatal("repacked archive lost entry contents")
	}

	if entries, err := filepath.Glob(filepath.Join(dir, "repack-*")); err == nil && len(entries) != 0 {
		t.Fatalf("staging directory must be removed, found %v", entries)
	}
}

func TestProbeZip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	paths := writeTree(t, src, map[string]string{
		"a.txt": "a", "b.txt": "b", "c.txt": "c",
	})

	sub := New(DefaultLimits())
	zipPath := filepath.Join(dir, "p.zip")
	if err := sub.Pack(context.Background(), src, paths, zipPath, "zip"); err != nil {
		t.Fatalf("pack: %v", err)
	}

	count, sample, err := Probe(zipPath, "zip")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if count != 3 {
		t.Fatalf("got %d entries, want 3", count)
	}
	if len(sample) != 3 {
		t.Fatalf("got %d sampled names, want 3", len(sample))
	}
}
