// Package lexer turns document and query text into normalized terms.
//
// Normalization is uppercase case-folding, applied after optional stemming.
// Single punctuation characters are emitted as one-character terms; the
// tokenizer does no punctuation filtering. Purely numeric tokens of exactly
// one character are discarded as noise.
package lexer

import (
	"strings"
	"unicode"
)

// Lexer yields terms from a rune slice. It keeps no state beyond a cursor,
// so re-lexing the same content always yields the same term sequence.
type Lexer struct {
	content  []rune
	position int
	stemmer  Stemmer
}

// New returns a Lexer over content using the given stemming strategy.
// A nil stemmer disables stemming.
func New(content []rune, stemmer Stemmer) *Lexer {
	if stemmer == nil {
		stemmer = Noop{}
	}
	return &Lexer{content: content, stemmer: stemmer}
}

func (l *Lexer) trimLeft() {
	for l.position < len(l.content) && unicode.IsSpace(l.content[l.position]) {
		l.position++
	}
}

func (l *Lexer) chop(n int) []rune {
	token := l.content[l.position : l.position+n]
	l.position += n
	return token
}

func (l *Lexer) chopWhile(predicate func(rune) bool) []rune {
	start := l.position
	for l.position < len(l.content) && predicate(l.content[l.position]) {
		l.position++
	}
	return l.content[start:l.position]
}

// Next returns the next term and true, or "" and false when the input is
// exhausted.
func (l *Lexer) Next() (string, bool) {
	for {
		l.trimLeft()
		if l.position >= len(l.content) {
			return "", false
		}

		c := l.content[l.position]

		if unicode.IsDigit(c) {
			tokenRunes := l.chopWhile(unicode.IsDigit)
			// A lone digit is noise. Keep scanning instead of ending
			// the stream.
			if len(tokenRunes) == 1 {
				continue
			}
			return string(tokenRunes), true
		}

		if unicode.IsLetter(c) {
			tokenRunes := l.chopWhile(func(r rune) bool {
				return unicode.IsLetter(r) || unicode.IsDigit(r)
			})
			term := l.stemmer.Stem(strings.ToLower(string(tokenRunes)))
			return strings.ToUpper(term), true
		}

		return string(l.chop(1)), true
	}
}

// Tokens drains the lexer and returns every remaining term.
func (l *Lexer) Tokens() []string {
	var tokens []string
	for {
		token, ok := l.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, token)
	}
}
