// Package extract converts the supported document formats into plain text
// ready for tokenization.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	apperrors "github.com/docsense/docsense/pkg/errors"
)

// Extractor turns the raw bytes of one file format into plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Registry dispatches files to an Extractor keyed by extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with every built-in format registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}

	plain := PlainExtractor{}
	r.byExt["txt"] = plain
	r.byExt["text"] = plain
	r.byExt["md"] = plain

	r.byExt["xml"] = XMLExtractor{}
	r.byExt["xhtml"] = XMLExtractor{}
	r.byExt["html"] = HTMLExtractor{}
	r.byExt["htm"] = HTMLExtractor{}

	r.byExt["pdf"] = PDFExtractor{}

	r.byExt["eml"] = EMLExtractor{}
	r.byExt["mbox"] = MBOXExtractor{}

	r.byExt["docx"] = DOCXExtractor{}
	r.byExt["odt"] = ODTExtractor{}
	r.byExt["rtf"] = RTFExtractor{}

	return r
}

// Supported reports whether path's extension has a registered extractor.
func (r *Registry) Supported(path string) bool {
	_, ok := r.byExt[extOf(path)]
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract converts data to plain text with the extractor registered for
// path's extension. The result is normalized to NFC so that a term reads
// the same no matter how the source file encoded its accents.
func (r *Registry) Extract(path string, data []byte) (string, error) {
	extractor, ok := r.byExt[extOf(path)]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, apperrors.ErrUnsupportedFormat)
	}
	text, err := extractor.Extract(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return norm.NFC.String(text), nil
}

// ExtractFile reads path from disk and extracts its text.
func (r *Registry) ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return r.Extract(path, data)
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// PlainExtractor passes text formats through untouched.
type PlainExtractor struct{}

func (PlainExtractor) Extract(data []byte) (string, error) {
	return string(data), nil
}
