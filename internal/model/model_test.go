package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docsense/docsense/internal/rank"
	apperrors "github.com/docsense/docsense/pkg/errors"
)

var baseTime = time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix := NewIndex(nil)
	if err := ix.AddDocument("/docs/a.txt", baseTime, []rune("cat dog cat")); err != nil {
		t.Fatalf("AddDocument(a): %v", err)
	}
	if err := ix.AddDocument("/docs/b.txt", baseTime, []rune("dog dog dog")); err != nil {
		t.Fatalf("AddDocument(b): %v", err)
	}
	return ix
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAddDocumentScenario(t *testing.T) {
	ix := newTestIndex(t)

	a := ix.Docs["/docs/a.txt"]
	if a == nil {
		t.Fatal("document a missing")
	}
	if a.TermCount != 3 {
		t.Errorf("term_count(a) = %d, want 3", a.TermCount)
	}
	if a.FreqTable["CAT"] != 2 || a.FreqTable["DOG"] != 1 {
		t.Errorf("freq_table(a) = %v, want CAT:2 DOG:1", a.FreqTable)
	}

	b := ix.Docs["/docs/b.txt"]
	if b.TermCount != 3 || b.FreqTable["DOG"] != 3 {
		t.Errorf("document b = %+v, want term_count 3, DOG:3", b)
	}

	if ix.GTF["CAT"] != 1 || ix.GTF["DOG"] != 2 {
		t.Errorf("GTF = %v, want CAT:1 DOG:2", ix.GTF)
	}
}

func TestConservation(t *testing.T) {
	ix := newTestIndex(t)
	ix.AddDocument("/docs/c.txt", baseTime, []rune("a b c a a 42 c!"))

	for path, doc := range ix.Docs {
		sum := 0
		for _, n := range doc.FreqTable {
			sum += n
		}
		if sum != doc.TermCount {
			t.Errorf("%s: sum(freq_table) = %d, term_count = %d", path, sum, doc.TermCount)
		}
	}
}

func TestIdempotentReindex(t *testing.T) {
	ix := newTestIndex(t)

	before := ix.Docs["/docs/a.txt"]
	if err := ix.AddDocument("/docs/a.txt", baseTime, []rune("cat dog cat")); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	after := ix.Docs["/docs/a.txt"]

	if after.TermCount != before.TermCount {
		t.Errorf("term_count changed on reindex: %d -> %d", before.TermCount, after.TermCount)
	}
	for term, n := range before.FreqTable {
		if after.FreqTable[term] != n {
			t.Errorf("freq_table[%s] changed on reindex: %d -> %d", term, n, after.FreqTable[term])
		}
	}
	if ix.GTF["CAT"] != 1 || ix.GTF["DOG"] != 2 {
		t.Errorf("GTF after reindex = %v, want CAT:1 DOG:2", ix.GTF)
	}
}

func TestReplaceUpdatesGlobalCounts(t *testing.T) {
	ix := NewIndex(nil)
	ix.AddDocument("/d.txt", baseTime, []rune("cat"))
	ix.AddDocument("/d.txt", baseTime.Add(time.Minute), []rune("dog"))

	if _, ok := ix.GTF["CAT"]; ok {
		t.Errorf("GTF still holds CAT after replacement: %v", ix.GTF)
	}
	if ix.GTF["DOG"] != 1 {
		t.Errorf("GTF[DOG] = %d, want 1", ix.GTF["DOG"])
	}
}

func TestGlobalTermFrequencyNeverNegative(t *testing.T) {
	ix := NewIndex(nil)
	ix.AddDocument("/d.txt", baseTime, []rune("cat dog"))
	ix.RemoveDocument("/d.txt")
	ix.RemoveDocument("/d.txt")
	ix.RemoveDocument("/missing.txt")

	for term, n := range ix.GTF {
		if n < 0 {
			t.Errorf("GTF[%s] = %d, negative", term, n)
		}
	}
	if len(ix.GTF) != 0 {
		t.Errorf("GTF not empty after removing only document: %v", ix.GTF)
	}
	if len(ix.Docs) != 0 {
		t.Errorf("Docs not empty after removal: %v", ix.Docs)
	}
}

func TestDocumentFrequencyBound(t *testing.T) {
	ix := newTestIndex(t)
	ix.AddDocument("/docs/c.txt", baseTime, []rune("cat mouse"))
	ix.AddDocument("/docs/a.txt", baseTime.Add(time.Hour), []rune("mouse mouse"))
	ix.RemoveDocument("/docs/b.txt")

	for term, n := range ix.GTF {
		if n > len(ix.Docs) {
			t.Errorf("GTF[%s] = %d exceeds document count %d", term, n, len(ix.Docs))
		}
		scanned := 0
		for _, doc := range ix.Docs {
			if _, ok := doc.FreqTable[term]; ok {
				scanned++
			}
		}
		if scanned != n {
			t.Errorf("GTF[%s] = %d, direct scan found %d", term, n, scanned)
		}
	}
}

func TestRequiresReindexing(t *testing.T) {
	ix := newTestIndex(t)

	cases := []struct {
		name string
		path string
		at   time.Time
		want bool
	}{
		{"unknown path", "/docs/new.txt", baseTime, true},
		{"older stored time", "/docs/a.txt", baseTime.Add(time.Second), true},
		{"equal time", "/docs/a.txt", baseTime, false},
		{"newer stored time", "/docs/a.txt", baseTime.Add(-time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ix.RequiresReindexing(tc.path, tc.at); got != tc.want {
				t.Errorf("RequiresReindexing(%s, %v) = %v, want %v", tc.path, tc.at, got, tc.want)
			}
		})
	}
}

func TestSearchTFIDF(t *testing.T) {
	ix := newTestIndex(t)

	results, err := ix.Search([]rune("cat"), rank.TFIDF)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (every document is scored)", len(results))
	}
	if results[0].Path != "/docs/a.txt" {
		t.Errorf("top result = %s, want /docs/a.txt", results[0].Path)
	}

	want := (2.0 / 3.0) * math.Log10(2.0/1.0)
	if !almostEqual(results[0].Score, want) {
		t.Errorf("score(a) = %g, want %g", results[0].Score, want)
	}
	if results[1].Score != 0 {
		t.Errorf("score(b) = %g, want 0", results[1].Score)
	}
}

func TestSearchBM25(t *testing.T) {
	ix := newTestIndex(t)

	results, err := ix.Search([]rune("cat"), rank.BM25)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Path != "/docs/a.txt" {
		t.Errorf("top result = %s, want /docs/a.txt", results[0].Path)
	}

	// Both documents hold 3 terms, so the length norm factor is exactly 1.
	idf := math.Log((2.0 - 1.0 + 0.5 + 1.0) / (1.0 + 0.5))
	tf := 2.0 / 3.0
	want := idf * tf * 3.0 / (tf + 2.0)
	if !almostEqual(results[0].Score, want) {
		t.Errorf("score(a) = %g, want %g", results[0].Score, want)
	}
	if results[1].Score != 0 {
		t.Errorf("score(b) = %g, want 0", results[1].Score)
	}
	if idf <= 0 {
		t.Errorf("idf(CAT) = %g, want > 0", idf)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := NewIndex(nil)
	for _, method := range []rank.Method{rank.TFIDF, rank.BM25} {
		results, err := ix.Search([]rune("anything"), method)
		if err != nil {
			t.Fatalf("Search(%s) on empty index: %v", method, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(%s) on empty index returned %v", method, results)
		}
	}
}

func TestSearchDeterminism(t *testing.T) {
	ix := NewIndex(nil)
	// Three documents with identical content force score ties.
	for _, path := range []string{"/z.txt", "/a.txt", "/m.txt"} {
		ix.AddDocument(path, baseTime, []rune("same words here"))
	}

	first, _ := ix.Search([]rune("same words"), rank.BM25)
	for i := 0; i < 10; i++ {
		again, _ := ix.Search([]rune("same words"), rank.BM25)
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: result[%d] = %v, want %v", i, j, again[j], first[j])
			}
		}
	}
	if first[0].Path != "/a.txt" || first[1].Path != "/m.txt" || first[2].Path != "/z.txt" {
		t.Errorf("tied results not ordered by path: %v", first)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := newTestIndex(t)
	ix.AddDocument("/docs/c.md", baseTime.Add(time.Hour), []rune("mouse! 42 cats"))

	data, err := ix.MarshalSnapshot()
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	loaded, err := LoadSnapshot(data)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if len(loaded.Docs) != len(ix.Docs) {
		t.Fatalf("loaded %d docs, want %d", len(loaded.Docs), len(ix.Docs))
	}
	for path, doc := range ix.Docs {
		got := loaded.Docs[path]
		if got == nil {
			t.Fatalf("document %s missing after round trip", path)
		}
		if got.TermCount != doc.TermCount {
			t.Errorf("%s: term_count %d, want %d", path, got.TermCount, doc.TermCount)
		}
		if !got.LastModified.Equal(doc.LastModified) {
			t.Errorf("%s: last_modified %v, want %v", path, got.LastModified, doc.LastModified)
		}
		for term, n := range doc.FreqTable {
			if got.FreqTable[term] != n {
				t.Errorf("%s: freq_table[%s] = %d, want %d", path, term, got.FreqTable[term], n)
			}
		}
	}
	for term, n := range ix.GTF {
		if loaded.GTF[term] != n {
			t.Errorf("GTF[%s] = %d, want %d", term, loaded.GTF[term], n)
		}
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	ix := newTestIndex(t)
	path := filepath.Join(t.TempDir(), "index.json")

	data, err := ix.MarshalSnapshot()
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	if err := WriteSnapshotFile(path, data); err != nil {
		t.Fatalf("WriteSnapshotFile: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after rename")
	}

	loaded, err := LoadSnapshotFile(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFile: %v", err)
	}
	stats, _ := loaded.Stats()
	if stats.DocumentCount != 2 || stats.UniqueTermCount != 2 {
		t.Errorf("stats after reload = %+v, want 2 docs, 2 terms", stats)
	}
}

func TestLoadSnapshotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSnapshotFile(path)
	if !errors.Is(err, apperrors.ErrSnapshotCorrupt) {
		t.Errorf("LoadSnapshotFile on garbage = %v, want ErrSnapshotCorrupt", err)
	}
}

func TestAverageDocumentLength(t *testing.T) {
	ix := NewIndex(nil)
	if got := ix.AverageDocumentLength(); got != 0 {
		t.Errorf("avgdl of empty index = %g, want 0", got)
	}
	ix.AddDocument("/a.txt", baseTime, []rune("one two three four"))
	ix.AddDocument("/b.txt", baseTime, []rune("five six"))
	if got := ix.AverageDocumentLength(); !almostEqual(got, 3.0) {
		t.Errorf("avgdl = %g, want 3", got)
	}
}

func TestStats(t *testing.T) {
	ix := newTestIndex(t)
	stats, err := ix.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.DocumentCount != 2 {
		t.Errorf("document_count = %d, want 2", stats.DocumentCount)
	}
	if stats.UniqueTermCount != 2 {
		t.Errorf("unique_term_count = %d, want 2", stats.UniqueTermCount)
	}
}
