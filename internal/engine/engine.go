// Package engine owns the shared corpus index. Every read and every
// mutation goes through one mutex held only for in-memory work; file reads
// and snapshot writes happen outside the critical section, so query latency
// under concurrent indexing is bounded by the cost of a single index
// operation.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docsense/docsense/internal/lexer"
	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/internal/rank"
	apperrors "github.com/docsense/docsense/pkg/errors"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
)

// Engine coordinates the background indexer and the serving loop around one
// in-memory index.
type Engine struct {
	mu    sync.Mutex
	index *model.Index

	defaultMethod rank.Method
	snapshotPath  string
	metrics       *metrics.Metrics
	log           *slog.Logger

	version atomic.Uint64
}

// New wraps index. snapshotPath is where SaveSnapshot persists to; method is
// the default used when a query does not name one.
func New(index *model.Index, method rank.Method, snapshotPath string, m *metrics.Metrics) *Engine {
	e := &Engine{
		index:         index,
		defaultMethod: method,
		snapshotPath:  snapshotPath,
		metrics:       m,
		log:           logger.WithComponent("engine"),
	}
	e.publishSizeLocked()
	return e
}

// LoadIndex reads the snapshot at path for serving. A missing or unreadable
// file yields a fresh empty index; a readable but corrupt file is an error
// the caller should treat as fatal.
func LoadIndex(path string, stemmer lexer.Stemmer, log *slog.Logger) (*model.Index, error) {
	ix, err := model.LoadSnapshotFile(path)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotCorrupt) {
			return nil, err
		}
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("no snapshot found, starting with an empty index", "path", path)
		} else {
			log.Warn("snapshot unreadable, starting with an empty index", "path", path, "error", err)
		}
		return model.NewIndex(stemmer), nil
	}
	ix.SetStemmer(stemmer)
	stats, _ := ix.Stats()
	log.Info("snapshot loaded",
		"path", path,
		"documents", stats.DocumentCount,
		"unique_terms", stats.UniqueTermCount)
	return ix, nil
}

// AddOrReplaceDocument indexes content under path as one critical section.
func (e *Engine) AddOrReplaceDocument(path string, lastModified time.Time, content []rune) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.AddDocument(path, lastModified, content); err != nil {
		return err
	}
	e.version.Add(1)
	e.metrics.DocumentsIndexedTotal.Inc()
	e.publishSizeLocked()
	return nil
}

// RequiresReindexing reports whether path needs (re)indexing.
func (e *Engine) RequiresReindexing(path string, lastModified time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.RequiresReindexing(path, lastModified)
}

// Search ranks every indexed document against the query. An empty method
// falls back to the engine default.
func (e *Engine) Search(query string, method rank.Method) ([]model.SearchResult, error) {
	if method == "" {
		method = e.defaultMethod
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Search([]rune(query), method)
}

// Stats returns the current index size.
func (e *Engine) Stats() model.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats, _ := e.index.Stats()
	return stats
}

// DefaultMethod is the rank method used when a query does not name one.
func (e *Engine) DefaultMethod() rank.Method { return e.defaultMethod }

// Version increments on every mutation. Cache keys include it so a stale
// entry can never satisfy a query against a newer index.
func (e *Engine) Version() uint64 { return e.version.Load() }

// SaveSnapshot serializes the index under the lock and writes the bytes to
// disk after releasing it.
func (e *Engine) SaveSnapshot() error {
	e.mu.Lock()
	data, err := e.index.MarshalSnapshot()
	e.mu.Unlock()
	if err != nil {
		e.metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("serializing index: %w", err)
	}

	if err := model.WriteSnapshotFile(e.snapshotPath, data); err != nil {
		e.metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return err
	}
	e.metrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
	e.log.Info("snapshot saved", "path", e.snapshotPath, "bytes", len(data))
	return nil
}

// publishSizeLocked refreshes the size gauges. Callers hold e.mu (or have
// exclusive access during construction).
func (e *Engine) publishSizeLocked() {
	stats, _ := e.index.Stats()
	e.metrics.DocumentCount.Set(float64(stats.DocumentCount))
	e.metrics.UniqueTermCount.Set(float64(stats.UniqueTermCount))
}
