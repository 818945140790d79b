package lexer

import (
	"fmt"

	"github.com/kljensen/snowball/english"
	"github.com/reiver/go-porterstemmer"
)

// Stemmer reduces a lowercase token to a root form. Implementations must be
// safe for concurrent use.
type Stemmer interface {
	Stem(term string) string
}

// Noop leaves terms untouched. The default.
type Noop struct{}

func (Noop) Stem(term string) string { return term }

// Porter applies the classic Porter suffix-stripping algorithm.
type Porter struct{}

func (Porter) Stem(term string) string {
	return porterstemmer.StemString(term)
}

// Snowball applies the English Snowball (Porter2) algorithm.
type Snowball struct{}

func (Snowball) Stem(term string) string {
	return english.Stem(term, false)
}

// StemmerByName maps a configuration value to a strategy. Accepted names are
// "none" (or empty), "porter", and "snowball".
func StemmerByName(name string) (Stemmer, error) {
	switch name {
	case "", "none":
		return Noop{}, nil
	case "porter":
		return Porter{}, nil
	case "snowball":
		return Snowball{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}
