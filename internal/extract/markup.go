package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XMLExtractor collects the character data of an XML or XHTML document and
// drops the markup.
type XMLExtractor struct{}

func (XMLExtractor) Extract(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// HTMLExtractor strips tags from HTML that is too loose for the XML parser.
// Style and script bodies are removed rather than indexed.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(data []byte) (string, error) {
	return Clean(stripMarkup(string(data))), nil
}
