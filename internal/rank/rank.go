// Package rank implements the two scoring functions the search engine
// supports, TF-IDF and Okapi BM25, as pure functions over per-document and
// corpus-wide counts. Storage backends feed them whatever statistics they
// keep; the functions never divide by zero and an empty corpus scores zero
// everywhere.
package rank

import (
	"fmt"
	"math"
	"strings"
)

// Method selects the scoring function.
type Method string

const (
	TFIDF Method = "tfidf"
	BM25  Method = "bm25"
)

// BM25 free parameters.
const (
	k = 2.0
	b = 0.75
)

// ParseMethod maps a CLI/config value to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(s)) {
	case TFIDF, "":
		return TFIDF, nil
	case BM25:
		return BM25, nil
	default:
		return "", fmt.Errorf("unknown rank method %q (want tfidf or bm25)", s)
	}
}

func (m Method) String() string { return string(m) }

// TermFrequency is the occurrence count of a term normalized by document
// length. Shared by both scoring functions.
func TermFrequency(count, termCount int) float64 {
	return float64(count) / float64(max(termCount, 1))
}

// TFIDFScore is one query term's TF-IDF contribution to a document's score.
// docFreq is the number of documents containing the term.
func TFIDFScore(count, termCount, docCount, docFreq int) float64 {
	if count == 0 || docCount == 0 {
		return 0
	}
	tf := TermFrequency(count, termCount)
	idf := math.Log10(float64(docCount) / float64(max(docFreq, 1)))
	return tf * idf
}

// BM25Score is one query term's BM25 contribution to a document's score.
// avgdl is the mean term count across the corpus.
func BM25Score(count, termCount, docCount, docFreq int, avgdl float64) float64 {
	if count == 0 || docCount == 0 {
		return 0
	}
	if avgdl <= 0 {
		avgdl = 1
	}
	tf := TermFrequency(count, termCount)
	idf := math.Log((float64(docCount) - float64(docFreq) + 0.5 + 1) / (float64(docFreq) + 0.5))
	norm := 1 - b + b*float64(termCount)/avgdl
	return idf * tf * (k + 1) / (tf + k*norm)
}
