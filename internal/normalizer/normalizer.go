package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLength is the shortest token Tokenize keeps by default
const DefaultMinTokenLength = 2

// stopWords is the fixed set dropped when TokenizeOptions.FilterStopWords is set
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {},
	"with": {},
}

// TokenizeOptions controls Tokenize
type TokenizeOptions struct {
	MinLength       int  // Minimum token length in runes (default: 2)
	FilterStopWords bool // Drop common English stop words
}

// Normalize lowercases text, strips diacritics, turns punctuation into spaces
// and collapses whitespace. Empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)

	// A fresh transformer per call; transform.Chain values carry state.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		decomposed = lowered
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	pendingSpace := false
	for _, r := range decomposed {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// Tokenize normalizes text and splits it into words
func Tokenize(text string, opts TokenizeOptions) []string {
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinTokenLength
	}

	normalized := Normalize(text)
	if normalized == "" {
		return []string{}
	}

	words := strings.Split(normalized, " ")
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) < minLength {
			continue
		}
		if opts.FilterStopWords {
			if _, stop := stopWords[word]; stop {
				continue
			}
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// IsStopWord reports whether the normalized word is in the stop-word set
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// NormalizeMultiple joins the non-empty parts with a space and normalizes the result
func NormalizeMultiple(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return Normalize(strings.Join(kept, " "))
}
