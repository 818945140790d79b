// Package model holds the corpus index: per-document frequency tables plus
// corpus-wide document-frequency statistics, with ranked search over them.
//
// The in-memory Index here is the canonical storage backend. It is not safe
// for concurrent use on its own; the engine package owns the lock.
package model

import (
	"math"
	"sort"
	"time"

	"github.com/docsense/docsense/internal/lexer"
	"github.com/docsense/docsense/internal/rank"
)

// TermFreq maps a normalized term to a count. Used both per document
// (occurrence counts) and corpus-wide (document-frequency counts).
type TermFreq map[string]int

// Document is one indexed file.
type Document struct {
	TermCount    int       `json:"term_count"`
	FreqTable    TermFreq  `json:"freq_table"`
	LastModified time.Time `json:"last_modified"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Stats summarizes index size.
type Stats struct {
	DocumentCount   int `json:"document_count"`
	UniqueTermCount int `json:"unique_term_count"`
}

// Backend is the storage capability every index variant provides. The
// in-memory Index and the relational store implement it identically from the
// caller's point of view.
type Backend interface {
	AddDocument(path string, lastModified time.Time, content []rune) error
	RequiresReindexing(path string, lastModified time.Time) bool
	Search(query []rune, method rank.Method) ([]SearchResult, error)
	Stats() (Stats, error)
	Close() error
}

var _ Backend = (*Index)(nil)

// Index is the in-memory corpus index. Docs maps absolute file paths to
// their documents; GTF maps each term to the number of documents containing
// it.
type Index struct {
	Docs map[string]*Document `json:"docs"`
	GTF  TermFreq             `json:"gtf"`

	stemmer lexer.Stemmer
}

// NewIndex returns an empty index tokenizing with the given stemmer.
func NewIndex(stemmer lexer.Stemmer) *Index {
	return &Index{
		Docs:    make(map[string]*Document),
		GTF:     make(TermFreq),
		stemmer: stemmer,
	}
}

// SetStemmer installs the stemming strategy, needed after snapshot loads.
func (ix *Index) SetStemmer(stemmer lexer.Stemmer) { ix.stemmer = stemmer }

// RemoveDocument deletes a document and gives back its document-frequency
// contributions. Unknown paths are a no-op.
func (ix *Index) RemoveDocument(path string) {
	doc, ok := ix.Docs[path]
	if !ok {
		return
	}
	for term := range doc.FreqTable {
		if n, ok := ix.GTF[term]; ok {
			if n <= 1 {
				delete(ix.GTF, term)
			} else {
				ix.GTF[term] = n - 1
			}
		}
	}
	delete(ix.Docs, path)
}

// RequiresReindexing reports whether path is absent or was indexed from a
// strictly older version of the file.
func (ix *Index) RequiresReindexing(path string, lastModified time.Time) bool {
	doc, ok := ix.Docs[path]
	if !ok {
		return true
	}
	return doc.LastModified.Before(lastModified)
}

// AddDocument indexes content under path, replacing any previous document at
// that path. Removal and reinsertion happen together so document-frequency
// counts stay consistent.
func (ix *Index) AddDocument(path string, lastModified time.Time, content []rune) error {
	ix.RemoveDocument(path)

	freqTable := make(TermFreq)
	termCount := 0
	l := lexer.New(content, ix.stemmer)
	for {
		term, ok := l.Next()
		if !ok {
			break
		}
		freqTable[term]++
		termCount++
	}

	for term := range freqTable {
		ix.GTF[term]++
	}

	ix.Docs[path] = &Document{
		TermCount:    termCount,
		FreqTable:    freqTable,
		LastModified: lastModified,
	}
	return nil
}

// AverageDocumentLength is the mean term count, recomputed on demand.
func (ix *Index) AverageDocumentLength() float64 {
	if len(ix.Docs) == 0 {
		return 0
	}
	total := 0
	for _, doc := range ix.Docs {
		total += doc.TermCount
	}
	return float64(total) / float64(len(ix.Docs))
}

// Search scores every document against the query and returns the full ranked
// list, best first. Ties order by path so an unchanged index always returns
// the same sequence.
func (ix *Index) Search(query []rune, method rank.Method) ([]SearchResult, error) {
	tokens := lexer.New(query, ix.stemmer).Tokens()

	docCount := len(ix.Docs)
	avgdl := ix.AverageDocumentLength()

	results := make([]SearchResult, 0, docCount)
	for path, doc := range ix.Docs {
		score := 0.0
		for _, token := range tokens {
			count := doc.FreqTable[token]
			if count == 0 {
				continue
			}
			docFreq := ix.GTF[token]
			switch method {
			case rank.BM25:
				score += rank.BM25Score(count, doc.TermCount, docCount, docFreq, avgdl)
			default:
				score += rank.TFIDFScore(count, doc.TermCount, docCount, docFreq)
			}
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		results = append(results, SearchResult{Path: path, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// Stats implements Backend.
func (ix *Index) Stats() (Stats, error) {
	return Stats{
		DocumentCount:   len(ix.Docs),
		UniqueTermCount: len(ix.GTF),
	}, nil
}

// Close implements Backend. The in-memory index holds no resources.
func (ix *Index) Close() error { return nil }
