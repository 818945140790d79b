package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
)

// EMLExtractor reads a MIME message and keeps its subject and text body.
// Messages that only carry an HTML body are stripped down to their text.
type EMLExtractor struct{}

func (EMLExtractor) Extract(data []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse mime message: %w", err)
	}

	text := env.Text
	if text == "" && env.HTML != "" {
		text = stripMarkup(env.HTML)
	}
	if subject := env.GetHeader("Subject"); subject != "" {
		text = subject + "\n" + text
	}
	return Clean(text), nil
}

// MBOXExtractor walks every message in an mbox archive and concatenates
// their extracted bodies. A message that fails to parse is dropped; the
// rest of the archive still gets indexed.
type MBOXExtractor struct{}

func (MBOXExtractor) Extract(data []byte) (string, error) {
	reader := mbox.NewReader(bytes.NewReader(data))
	eml := EMLExtractor{}

	var b strings.Builder
	for {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read mbox: %w", err)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			return "", fmt.Errorf("read mbox message: %w", err)
		}
		text, err := eml.Extract(raw)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}
