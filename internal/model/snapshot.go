package model

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/docsense/docsense/pkg/errors"
)

// MarshalSnapshot serializes the index. The output round-trips through
// LoadSnapshot without loss.
func (ix *Index) MarshalSnapshot() ([]byte, error) {
	data, err := json.Marshal(ix)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}

// LoadSnapshot rebuilds an index from MarshalSnapshot output. Invalid input
// reports ErrSnapshotCorrupt.
func LoadSnapshot(data []byte) (*Index, error) {
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSnapshotCorrupt, err)
	}
	if ix.Docs == nil {
		ix.Docs = make(map[string]*Document)
	}
	if ix.GTF == nil {
		ix.GTF = make(TermFreq)
	}
	for _, doc := range ix.Docs {
		if doc.FreqTable == nil {
			doc.FreqTable = make(TermFreq)
		}
	}
	return &ix, nil
}

// WriteSnapshotFile writes snapshot bytes atomically: a temp file in the
// same directory, synced, then renamed over the target.
func WriteSnapshotFile(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming snapshot into place: %w", err)
	}
	return nil
}

// LoadSnapshotFile reads and decodes a snapshot. A missing file surfaces as
// the underlying fs error; a present but undecodable file reports
// ErrSnapshotCorrupt.
func LoadSnapshotFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	ix, err := LoadSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return ix, nil
}
