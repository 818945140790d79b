package extract

import (
	"regexp"
	"strings"
)

var (
	styleRe      = regexp.MustCompile(`(?s)<style[^>]*>.*?</style>`)
	scriptRe     = regexp.MustCompile(`(?s)<script[^>]*>.*?</script>`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	entityRe     = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	controlRe    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean strips control characters and collapses runs of whitespace.
// Extractors for markup-heavy formats run their output through it so the
// index never sees layout residue.
func Clean(s string) string {
	s = controlRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripMarkup removes style and script blocks, then tags, then decodes the
// common entities. Good enough for HTML that the XML parser chokes on.
func stripMarkup(s string) string {
	s = styleRe.ReplaceAllString(s, " ")
	s = scriptRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	return decodeEntities(s)
}

func decodeEntities(s string) string {
	return entityRe.ReplaceAllStringFunc(s, func(entity string) string {
		switch entity {
		case "&amp;":
			return "&"
		case "&lt;":
			return "<"
		case "&gt;":
			return ">"
		case "&quot;":
			return "\""
		case "&apos;", "&#39;":
			return "'"
		case "&nbsp;":
			return " "
		default:
			return " "
		}
	})
}
