package indexer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docsense/docsense/internal/extract"
	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/internal/rank"
	"github.com/docsense/docsense/pkg/metrics"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func corpusDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha document")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "bravo document")
	writeFile(t, filepath.Join(dir, "c.html"), "<p>charlie document</p>")
	writeFile(t, filepath.Join(dir, ".hidden.txt"), "shadow content")
	writeFile(t, filepath.Join(dir, ".hiddendir", "d.txt"), "shadow content")
	writeFile(t, filepath.Join(dir, "e.bin"), "unsupported content")
	return dir
}

func TestIndexDirectory(t *testing.T) {
	dir := corpusDir(t)
	index := model.NewIndex(nil)
	ix := New(BackendTarget(index), extract.NewRegistry(), metrics.New())

	processed, err := ix.IndexDirectory(dir)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if processed != 3 {
		t.Errorf("processed = %d, want 3 (a.txt, sub/b.md, c.html)", processed)
	}

	stats, _ := index.Stats()
	if stats.DocumentCount != 3 {
		t.Errorf("document count = %d, want 3", stats.DocumentCount)
	}

	results, err := index.Search([]rune("bravo"), rank.TFIDF)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantPath, _ := filepath.Abs(filepath.Join(dir, "sub", "b.md"))
	if len(results) == 0 || results[0].Path != wantPath {
		t.Errorf("top result = %v, want %s", results, wantPath)
	}
	if results[0].Score <= 0 {
		t.Errorf("score for indexed term = %g, want > 0", results[0].Score)
	}
}

func TestIndexDirectorySkipsFreshFiles(t *testing.T) {
	dir := corpusDir(t)
	index := model.NewIndex(nil)
	ix := New(BackendTarget(index), extract.NewRegistry(), metrics.New())

	if _, err := ix.IndexDirectory(dir); err != nil {
		t.Fatal(err)
	}
	processed, err := ix.IndexDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 0 {
		t.Errorf("second pass processed %d files, want 0", processed)
	}
}

func TestIndexDirectoryPicksUpChanges(t *testing.T) {
	dir := corpusDir(t)
	index := model.NewIndex(nil)
	ix := New(BackendTarget(index), extract.NewRegistry(), metrics.New())

	if _, err := ix.IndexDirectory(dir); err != nil {
		t.Fatal(err)
	}

	changed := filepath.Join(dir, "a.txt")
	writeFile(t, changed, "alpha document revised")
	info, err := os.Stat(changed)
	if err != nil {
		t.Fatal(err)
	}
	future := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(changed, future, future); err != nil {
		t.Fatal(err)
	}

	processed, err := ix.IndexDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Errorf("processed = %d after touching one file, want 1", processed)
	}

	results, _ := index.Search([]rune("revised"), rank.TFIDF)
	if len(results) == 0 || results[0].Score <= 0 {
		t.Error("revised content not searchable after reindex")
	}
}

func TestIndexDirectoryContinuesPastBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.txt"), "fine content")
	writeFile(t, filepath.Join(dir, "broken.pdf"), "this is not a pdf")

	index := model.NewIndex(nil)
	ix := New(BackendTarget(index), extract.NewRegistry(), metrics.New())

	processed, err := ix.IndexDirectory(dir)
	if err != nil {
		t.Fatalf("batch should survive a broken file: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
}

func TestIndexDirectoryMissingRoot(t *testing.T) {
	index := model.NewIndex(nil)
	ix := New(BackendTarget(index), extract.NewRegistry(), metrics.New())

	if _, err := ix.IndexDirectory(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing root directory")
	}
}
