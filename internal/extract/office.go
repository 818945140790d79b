package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var rtfControlRe = regexp.MustCompile(`\\[a-zA-Z]+-?\d*`)

// DOCXExtractor unzips an Office Open XML document and strips the markup
// from its main document part.
type DOCXExtractor struct{}

func (DOCXExtractor) Extract(data []byte) (string, error) {
	return archiveEntryText(data, "word/document.xml")
}

// ODTExtractor does the same for OpenDocument text files.
type ODTExtractor struct{}

func (ODTExtractor) Extract(data []byte) (string, error) {
	return archiveEntryText(data, "content.xml")
}

func archiveEntryText(data []byte, name string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		return Clean(stripMarkup(string(content))), nil
	}
	return "", fmt.Errorf("archive has no %s", name)
}

// RTFExtractor drops RTF control words and group braces, keeping the body.
type RTFExtractor struct{}

func (RTFExtractor) Extract(data []byte) (string, error) {
	text := rtfControlRe.ReplaceAllString(string(data), " ")
	text = strings.NewReplacer("{", " ", "}", " ").Replace(text)
	return Clean(text), nil
}
