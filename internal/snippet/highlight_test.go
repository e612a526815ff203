package snippet

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlightMatches(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		tag   string
		want  string
	}{
		{
			name:  "single match keeps original case",
			text:  "Visit the Eiffel Tower",
			query: "eiffel",
			want:  "Visit the <mark>Eiffel</mark> Tower",
		},
		{
			name:  "every occurrence",
			text:  "Rome, then rome again",
			query: "ROME",
			want:  "<mark>Rome</mark>, then <mark>rome</mark> again",
		},
		{
			name:  "overlapping occurrences merge",
			text:  "aaaa",
			query: "aa",
			want:  "<mark>aaaa</mark>",
		},
		{
			name:  "markup in text is escaped",
			text:  "<b>Tom & Jerry</b>",
			query: "tom",
			want:  "&lt;b&gt;<mark>Tom</mark> &amp; Jerry&lt;/b&gt;",
		},
		{
			name:  "markup in query is escaped",
			text:  "Fish & Chips",
			query: "& chips",
			want:  "Fish <mark>&amp; Chips</mark>",
		},
		{
			name:  "no match returns escaped text",
			text:  `"Quotes" <here>`,
			query: "paris",
			want:  "&#34;Quotes&#34; &lt;here&gt;",
		},
		{
			name:  "custom tag",
			text:  "Louvre Museum",
			query: "museum",
			tag:   "em",
			want:  "Louvre <em>Museum</em>",
		},
		{
			name:  "unsafe tag falls back to mark",
			text:  "Louvre Museum",
			query: "museum",
			tag:   "script onload=alert(1)",
			want:  "Louvre <mark>Museum</mark>",
		},
		{
			name:  "empty query",
			text:  "a < b",
			query: "  ",
			want:  "a &lt; b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HighlightMatches(tt.text, tt.query, tt.tag))
		})
	}
}

func TestHighlightMatchesRoundTrip(t *testing.T) {
	cases := []struct{ text, query string }{
		{"Visit the Eiffel Tower", "eiffel"},
		{"<script>alert('x')</script> & more", "script"},
		{"aaaa aaa", "aa"},
		{"Café de Flore — 172 Bd Saint-Germain", "café"},
		{"nothing to see", "zzz"},
		{"", "x"},
		{`He said "Tower" twice: tower`, "tower"},
	}

	for _, c := range cases {
		out := HighlightMatches(c.text, c.query, "mark")
		stripped := strings.ReplaceAll(strings.ReplaceAll(out, "<mark>", ""), "</mark>", "")
		assert.Equal(t, c.text, html.UnescapeString(stripped), "text %q query %q", c.text, c.query)
	}
}
