// Package snippet extracts display snippets from raw text and wraps query
// matches in HTML-safe highlight markup.
//
// Offsets and lengths are measured in runes. When neither the full query nor
// any of its words occurs literally in the raw text, the match position is
// estimated from the normalized text and may drift from the true location.
package snippet

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/tripsearch-mcp/internal/normalizer"
)

const (
	// DefaultMaxLength is the snippet window used when none is given
	DefaultMaxLength = 150

	// Ellipsis marks text cut from either side of a snippet
	Ellipsis = "..."

	minWordLength = 2
)

// Snippet is a window of raw text around the first match of a query
type Snippet struct {
	Text       string
	MatchStart int // Rune offset of the match in Text, -1 when unanchored
	MatchEnd   int
	HasMore    bool // Text was cut on at least one side
}

// ExtractSnippet returns up to maxLength runes of text centred on the first
// case-insensitive occurrence of query, plus ellipsis markers.
func ExtractSnippet(text, query string, maxLength int) Snippet {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	raw := []rune(text)
	if len(raw) == 0 {
		return Snippet{MatchStart: -1, MatchEnd: -1}
	}

	matchIndex, queryLength := locate(raw, text, strings.TrimSpace(query))
	if matchIndex < 0 {
		if len(raw) <= maxLength {
			return Snippet{Text: text, MatchStart: -1, MatchEnd: -1}
		}
		return Snippet{
			Text:       string(raw[:maxLength]) + Ellipsis,
			MatchStart: -1,
			MatchEnd:   -1,
			HasMore:    true,
		}
	}

	if queryLength > maxLength {
		queryLength = maxLength
	}
	if matchIndex+queryLength > len(raw) {
		queryLength = len(raw) - matchIndex
	}

	halfContext := (maxLength - queryLength) / 2
	start := max(0, matchIndex-halfContext)
	end := min(len(raw), matchIndex+queryLength+halfContext)

	// Avoid cutting words at either edge of the window.
	if start > 0 {
		if space := indexSpace(raw, start, matchIndex); space >= 0 {
			start = space + 1
		}
	}
	if end < len(raw) {
		// raw[end] is included: a space there means the window already ends on a word
		if space := lastIndexSpace(raw, matchIndex+queryLength, end+1); space >= 0 {
			end = space
		}
	}

	var b strings.Builder
	prefixLength := 0
	if start > 0 {
		b.WriteString(Ellipsis)
		prefixLength = utf8.RuneCountInString(Ellipsis)
	}
	b.WriteString(string(raw[start:end]))
	if end < len(raw) {
		b.WriteString(Ellipsis)
	}

	matchStart := matchIndex - start + prefixLength
	return Snippet{
		Text:       b.String(),
		MatchStart: matchStart,
		MatchEnd:   matchStart + queryLength,
		HasMore:    start > 0 || end < len(raw),
	}
}

// locate finds the rune index and rune length of the best anchor for query in
// raw. It tries the full query, then each query word, then the normalized
// match position clamped to the raw length. It returns -1 when nothing anchors.
func locate(raw []rune, text, query string) (int, int) {
	if query == "" {
		return -1, 0
	}

	lowered := lowerRunes(raw)

	needle := lowerRunes([]rune(query))
	if idx := indexRunes(lowered, needle); idx >= 0 {
		return idx, len(needle)
	}

	for _, word := range strings.Fields(query) {
		w := lowerRunes([]rune(word))
		if len(w) < minWordLength {
			continue
		}
		if idx := indexRunes(lowered, w); idx >= 0 {
			return idx, len(w)
		}
	}

	normalizedText := normalizer.Normalize(text)
	normalizedQuery := normalizer.Normalize(query)
	if normalizedQuery == "" {
		return -1, 0
	}
	byteIdx := strings.Index(normalizedText, normalizedQuery)
	if byteIdx < 0 {
		return -1, 0
	}
	approx := utf8.RuneCountInString(normalizedText[:byteIdx])
	if approx >= len(raw) {
		approx = len(raw) - 1
	}
	return approx, utf8.RuneCountInString(normalizedQuery)
}

// lowerRunes lowercases rune by rune so indexes stay aligned with the input
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	return indexRunesFrom(haystack, needle, 0)
}

func indexRunesFrom(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if runesEqualAt(haystack, needle, i) {
			return i
		}
	}
	return -1
}

func runesEqualAt(haystack, needle []rune, at int) bool {
	for j, r := range needle {
		if haystack[at+j] != r {
			return false
		}
	}
	return true
}

// indexSpace returns the first space in rs[from:to], or -1
func indexSpace(rs []rune, from, to int) int {
	for i := from; i < to && i < len(rs); i++ {
		if rs[i] == ' ' {
			return i
		}
	}
	return -1
}

// lastIndexSpace returns the last space in rs[from:to], or -1
func lastIndexSpace(rs []rune, from, to int) int {
	for i := to - 1; i >= from && i >= 0; i-- {
		if rs[i] == ' ' {
			return i
		}
	}
	return -1
}
