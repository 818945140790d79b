// Package store provides the relational storage backend. It keeps the same
// document and term statistics as the in-memory index in a SQLite database,
// so a built index can outlive the process without a JSON snapshot.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/docsense/docsense/internal/lexer"
	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/internal/rank"
)

//go:embed schema.sql
var schemaSQL string

// Store implements model.Backend on SQLite.
type Store struct {
	db      *sql.DB
	stemmer lexer.Stemmer
}

var _ model.Backend = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string, stemmer lexer.Stemmer) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, stemmer: stemmer}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AddDocument indexes content under path, replacing any previous rows for
// that path. Row deletion, reinsertion, and the stats refresh commit as one
// transaction, so readers never observe a half-replaced document.
func (s *Store) AddDocument(path string, lastModified time.Time, content []rune) error {
	freqTable := make(model.TermFreq)
	termCount := 0
	l := lexer.New(content, s.stemmer)
	for {
		term, ok := l.Next()
		if !ok {
			break
		}
		freqTable[term]++
		termCount++
	}

	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM terms WHERE path = ?`, path); err != nil {
			return fmt.Errorf("clear terms: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO documents (path, term_count, last_modified) VALUES (?, ?, ?)`,
			path, termCount, lastModified.UnixNano(),
		); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO terms (term, path, frequency) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare term insert: %w", err)
		}
		defer stmt.Close()
		for term, freq := range freqTable {
			if _, err := stmt.Exec(term, path, freq); err != nil {
				return fmt.Errorf("insert term: %w", err)
			}
		}

		return refreshStats(tx)
	})
}

func refreshStats(tx *sql.Tx) error {
	_, err := tx.Exec(`
		UPDATE stats SET
			total_docs     = (SELECT COUNT(*) FROM documents),
			avg_doc_length = (SELECT COALESCE(AVG(term_count), 0) FROM documents)
		WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("refresh stats: %w", err)
	}
	return nil
}

// RequiresReindexing reports whether path is absent or stored with an older
// modification time. A read error counts as stale; reindexing is the safe
// answer when the row cannot be trusted.
func (s *Store) RequiresReindexing(path string, lastModified time.Time) bool {
	var stored int64
	err := s.db.QueryRow(`SELECT last_modified FROM documents WHERE path = ?`, path).Scan(&stored)
	if err != nil {
		return true
	}
	return stored < lastModified.UnixNano()
}

// Search scores every stored document against the query. Matching term
// frequencies arrive in one IN query; documents holding none of the query
// terms still appear with a zero score, mirroring the in-memory backend.
func (s *Store) Search(query []rune, method rank.Method) ([]model.SearchResult, error) {
	tokens := lexer.New(query, s.stemmer).Tokens()

	docCount, avgdl, err := s.corpusStats()
	if err != nil {
		return nil, err
	}

	docFreqs, perDoc, err := s.termRows(tokens)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT path, term_count FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var path string
		var termCount int
		if err := rows.Scan(&path, &termCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		freqs := perDoc[path]
		score := 0.0
		for _, token := range tokens {
			count := freqs[token]
			if count == 0 {
				continue
			}
			docFreq := docFreqs[token]
			switch method {
			case rank.BM25:
				score += rank.BM25Score(count, termCount, docCount, docFreq, avgdl)
			default:
				score += rank.TFIDFScore(count, termCount, docCount, docFreq)
			}
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		results = append(results, model.SearchResult{Path: path, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// Stats implements model.Backend.
func (s *Store) Stats() (model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&st.DocumentCount); err != nil {
		return st, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT term) FROM terms`).Scan(&st.UniqueTermCount); err != nil {
		return st, fmt.Errorf("count terms: %w", err)
	}
	return st, nil
}

func (s *Store) corpusStats() (int, float64, error) {
	var docCount int
	var avgdl float64
	err := s.db.QueryRow(`SELECT total_docs, avg_doc_length FROM stats WHERE id = 1`).Scan(&docCount, &avgdl)
	if err != nil {
		return 0, 0, fmt.Errorf("read stats: %w", err)
	}
	return docCount, avgdl, nil
}

// termRows loads document frequencies and per-document term frequencies for
// the distinct query terms.
func (s *Store) termRows(tokens []string) (map[string]int, map[string]map[string]int, error) {
	docFreqs := make(map[string]int)
	perDoc := make(map[string]map[string]int)
	if len(tokens) == 0 {
		return docFreqs, perDoc, nil
	}

	distinct := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			distinct = append(distinct, t)
		}
	}

	placeholders := strings.Repeat("?, ", len(distinct)-1) + "?"
	args := make([]any, len(distinct))
	for i, t := range distinct {
		args[i] = t
	}

	rows, err := s.db.Query(
		`SELECT term, path, frequency FROM terms WHERE term IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("load term rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var term, path string
		var freq int
		if err := rows.Scan(&term, &path, &freq); err != nil {
			return nil, nil, fmt.Errorf("scan term row: %w", err)
		}
		docFreqs[term]++
		if perDoc[path] == nil {
			perDoc[path] = make(map[string]int)
		}
		perDoc[path][term] = freq
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate term rows: %w", err)
	}
	return docFreqs, perDoc, nil
}
