package snippet

import (
	"html"
	"strings"
	"unicode"
)

// DefaultTag is the element HighlightMatches wraps matches in
const DefaultTag = "mark"

type span struct {
	start, end int
}

// HighlightMatches wraps every case-insensitive occurrence of query in text
// with <tag>...</tag>. Matched and unmatched segments are HTML-escaped, so
// indexed content cannot inject markup. Overlapping occurrences are merged
// into one highlighted span.
func HighlightMatches(text, query, tag string) string {
	if !validTag(tag) {
		tag = DefaultTag
	}

	query = strings.TrimSpace(query)
	if text == "" || query == "" {
		return html.EscapeString(text)
	}

	raw := []rune(text)
	lowered := lowerRunes(raw)
	needle := lowerRunes([]rune(query))

	var spans []span
	for i := indexRunesFrom(lowered, needle, 0); i >= 0; i = indexRunesFrom(lowered, needle, i+1) {
		next := span{start: i, end: i + len(needle)}
		if n := len(spans); n > 0 && next.start < spans[n-1].end {
			spans[n-1].end = next.end
			continue
		}
		spans = append(spans, next)
	}

	if len(spans) == 0 {
		return html.EscapeString(text)
	}

	open := "<" + tag + ">"
	closing := "</" + tag + ">"

	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		b.WriteString(html.EscapeString(string(raw[cursor:s.start])))
		b.WriteString(open)
		b.WriteString(html.EscapeString(string(raw[s.start:s.end])))
		b.WriteString(closing)
		cursor = s.end
	}
	b.WriteString(html.EscapeString(string(raw[cursor:])))

	return b.String()
}

// validTag accepts only plain element names such as "mark" or "em"
func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, r := range tag {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
