package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRelevance(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  float64
	}{
		{"empty query", "", "paris", 0},
		{"empty text", "paris", "", 0},
		{"punctuation only query", "!!", "paris", 0},
		{"exact match", "Paris", "paris", 100},
		{"exact after normalization", "Café de Flore", "cafe de flore", 100},
		// prefix 50 + contains 10 + "paris" prefix 20 + equal 5
		{"prefix of text", "paris", "paris adventure", 85},
		// contains 10 + "paris" prefix 20 + equal 5
		{"word inside text", "paris", "visited paris last year", 35},
		// "eif" prefixes "eiffel": contains 10 + prefix 20
		{"partial word", "eif", "the eiffel tower", 30},
		// contains 10 + (20+5)*2 + repeat 2
		{"repeated occurrence", "rome", "the rome of rome", 62},
		// no substring: "tower" prefix+equal 25, "eiffel" prefix+equal 25
		{"tokens out of order", "tower eiffel", "eiffel tower", 50},
		{"no match", "london", "paris adventure", 0},
		// "a" is below the token minimum; only the substring bonuses apply
		{"short token ignored", "a", "a b", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateRelevance(tt.query, tt.text))
		})
	}
}

func TestCalculateRelevanceExactMatchShortCircuits(t *testing.T) {
	// Without the shortcut this would accumulate 50 + 10 + 25 = 85
	assert.Equal(t, float64(ExactMatchScore), CalculateRelevance("louvre", "LOUVRE"))
}

func TestCalculateRelevanceNonDecreasingWithMoreTokenMatches(t *testing.T) {
	text := "eiffel tower visit in paris"
	one := CalculateRelevance("eiffel", text)
	two := CalculateRelevance("eiffel zzz", text)
	three := CalculateRelevance("eiffel zzz paris", text)

	assert.Greater(t, one, float64(0))
	assert.GreaterOrEqual(t, three, two)
	assert.Greater(t, three, CalculateRelevance("zzz", text))
}

func TestCalculateRelevanceTitleOutranksBodyMention(t *testing.T) {
	title := CalculateRelevance("Paris", "paris adventure")
	body := CalculateRelevance("Paris", "journal entry we visited paris last year")
	assert.Greater(t, title, body)
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  bool
	}{
		{"substring", "tower", "Eiffel Tower", true},
		{"diacritic insensitive", "café", "Cafe de Flore", true},
		{"query token prefixes text token", "mus", "Louvre Museum", true},
		{"text token prefixes query token", "parisian", "paris trip", true},
		{"no overlap", "london", "paris trip", false},
		{"empty query", "", "paris", false},
		{"empty text", "paris", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.query, tt.text))
		})
	}
}
