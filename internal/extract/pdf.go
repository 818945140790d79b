package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls the text layer out of a PDF. The underlying library
// panics on some malformed files, so every page read runs inside a recover
// and a damaged page costs only its own text.
type PDFExtractor struct{}

func (PDFExtractor) Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		func() {
			defer func() { _ = recover() }()
			page := reader.Page(i)
			if page.V.IsNull() {
				return
			}
			for _, item := range page.Content().Text {
				b.WriteString(item.S)
				b.WriteByte(' ')
			}
			b.WriteByte('\n')
		}()
	}
	return strings.TrimSpace(b.String()), nil
}
