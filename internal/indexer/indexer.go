// Package indexer walks a directory tree and feeds new or changed documents
// to an index target.
package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/docsense/docsense/internal/extract"
	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
)

// Target is the slice of the index the walker needs: the staleness check and
// the mutation.
type Target interface {
	RequiresReindexing(path string, lastModified time.Time) bool
	AddOrReplaceDocument(path string, lastModified time.Time, content []rune) error
}

// BackendTarget adapts a storage backend to the Target interface.
func BackendTarget(b model.Backend) Target { return backendTarget{b} }

type backendTarget struct{ b model.Backend }

func (t backendTarget) RequiresReindexing(path string, lastModified time.Time) bool {
	return t.b.RequiresReindexing(path, lastModified)
}

func (t backendTarget) AddOrReplaceDocument(path string, lastModified time.Time, content []rune) error {
	return t.b.AddDocument(path, lastModified, content)
}

// Indexer scans directories and keeps a Target up to date.
type Indexer struct {
	target   Target
	registry *extract.Registry
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func New(target Target, registry *extract.Registry, m *metrics.Metrics) *Indexer {
	return &Indexer{
		target:   target,
		registry: registry,
		metrics:  m,
		log:      logger.WithComponent("indexer"),
	}
}

// IndexDirectory walks root and indexes every supported regular file that is
// new or changed since it was last seen. Hidden entries are skipped, hidden
// directories without descending. The batch runs to completion: a file that
// cannot be read or parsed is logged and skipped, never fatal. Returns the
// number of documents actually processed.
func (ix *Indexer) IndexDirectory(root string) (int, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", root, err)
	}

	start := time.Now()
	processed := 0

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			ix.log.Warn("cannot read directory entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != absRoot && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !ix.registry.Supported(path) {
			ix.metrics.FilesSkippedTotal.WithLabelValues("unsupported").Inc()
			return nil
		}

		info, err := d.Info()
		if err != nil {
			ix.skip(path, "cannot stat file", err)
			return nil
		}
		if !ix.target.RequiresReindexing(path, info.ModTime()) {
			ix.metrics.FilesSkippedTotal.WithLabelValues("fresh").Inc()
			return nil
		}

		// Extraction happens before the mutation call so the index lock
		// is never held across file I/O.
		text, err := ix.registry.ExtractFile(path)
		if err != nil {
			ix.skip(path, "cannot extract file", err)
			return nil
		}

		ix.log.Info("indexing", "path", path)
		if err := ix.target.AddOrReplaceDocument(path, info.ModTime(), []rune(text)); err != nil {
			ix.skip(path, "cannot index file", err)
			return nil
		}
		processed++
		return nil
	})

	elapsed := time.Since(start)
	ix.metrics.BatchDuration.Observe(elapsed.Seconds())
	ix.metrics.BatchProcessed.Set(float64(processed))

	if walkErr != nil {
		return processed, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}

	ix.log.Info("indexing batch complete",
		"root", absRoot,
		"processed", processed,
		"duration", elapsed,
	)
	return processed, nil
}

func (ix *Indexer) skip(path, msg string, err error) {
	ix.log.Warn(msg, "path", path, "error", err)
	ix.metrics.FilesSkippedTotal.WithLabelValues("error").Inc()
}
