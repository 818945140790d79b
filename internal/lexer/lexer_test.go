package lexer

import (
	"strings"
	"testing"
)

func lex(t *testing.T, input string, stemmer Stemmer) []string {
	t.Helper()
	return New([]rune(input), stemmer).Tokens()
}

func TestTokens(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple words", "cat dog cat", []string{"CAT", "DOG", "CAT"}},
		{"mixed case folds up", "HeLLo World", []string{"HELLO", "WORLD"}},
		{"alphanumeric run", "abc123 x9", []string{"ABC123", "X9"}},
		{"digits inside word", "cat9dog", []string{"CAT9DOG"}},
		{"multi digit run kept", "42 cats", []string{"42", "CATS"}},
		{"single digit discarded", "a 1 b", []string{"A", "B"}},
		{"single digit between words", "dog 5 cat", []string{"DOG", "CAT"}},
		{"trailing single digit", "cat 7", []string{"CAT"}},
		{"only single digit", "1", nil},
		{"several single digits", "1 2 3", nil},
		{"punctuation emitted verbatim", "c++!", []string{"C", "+", "+", "!"}},
		{"punctuation between words", "cat,dog", []string{"CAT", ",", "DOG"}},
		{"whitespace only", " \t\n ", nil},
		{"empty", "", nil},
		{"leading whitespace", "   cat", []string{"CAT"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := lex(t, tc.input, nil)
			if len(got) != len(tc.want) {
				t.Fatalf("Tokens(%q) = %v, want %v", tc.input, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Tokens(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestNextExhaustion(t *testing.T) {
	l := New([]rune("cat"), nil)
	if term, ok := l.Next(); !ok || term != "CAT" {
		t.Fatalf("Next() = %q, %v, want CAT, true", term, ok)
	}
	for i := 0; i < 3; i++ {
		if term, ok := l.Next(); ok {
			t.Fatalf("Next() after exhaustion = %q, true, want false", term)
		}
	}
}

func TestRelexingIsDeterministic(t *testing.T) {
	content := []rune("The 9 quick brown foxes jumped over 2 lazy dogs, twice!")
	first := New(content, nil).Tokens()
	second := New(content, nil).Tokens()
	if strings.Join(first, " ") != strings.Join(second, " ") {
		t.Fatalf("re-lexing produced different streams: %v vs %v", first, second)
	}
}

func TestStemming(t *testing.T) {
	cases := []struct {
		name    string
		stemmer Stemmer
		input   string
		want    []string
	}{
		{"porter", Porter{}, "running", []string{"RUN"}},
		{"snowball", Snowball{}, "running", []string{"RUN"}},
		{"noop", Noop{}, "running", []string{"RUNNING"}},
		{"stem applied before folding", Porter{}, "Running", []string{"RUN"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := lex(t, tc.input, tc.stemmer)
			if len(got) != 1 || got[0] != tc.want[0] {
				t.Errorf("Tokens(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestStemmerByName(t *testing.T) {
	for _, name := range []string{"", "none", "porter", "snowball"} {
		if _, err := StemmerByName(name); err != nil {
			t.Errorf("StemmerByName(%q) returned error: %v", name, err)
		}
	}
	if _, err := StemmerByName("lovins"); err == nil {
		t.Error("StemmerByName(\"lovins\") should fail")
	}
}

func BenchmarkLexer(b *testing.B) {
	doc := strings.Repeat("The quick brown fox jumps over the lazy dog 42 times. ", 100)
	content := []rune(doc)

	b.Run("noop", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l := New(content, nil)
			for {
				if _, ok := l.Next(); !ok {
					break
				}
			}
		}
	})

	b.Run("porter", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l := New(content, Porter{})
			for {
				if _, ok := l.Next(); !ok {
					break
				}
			}
		}
	})
}
