package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"lowercase", "Paris Adventure", "paris adventure"},
		{"diacritics", "Café Crème Brûlée", "cafe creme brulee"},
		{"punctuation becomes space", "Saint-Germain, Paris!", "saint germain paris"},
		{"collapse whitespace", "  Eiffel   \t Tower  ", "eiffel tower"},
		{"digits kept", "172 Bd Saint-Germain", "172 bd saint germain"},
		{"only punctuation", "!!! ... ???", ""},
		{"non latin letters kept", "Москва 東京", "москва 東京"},
		{"accented capitals", "ÉCOLE Ñandú", "ecole nandu"},
		{"flight number", "AF-1234/CDG", "af 1234 cdg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Café de Flore",
		"  Hôtel   Le-Meurice (Paris) ",
		"İstanbul ŞEHİR",
		"Ångström ﬁle",
		"naïve résumé coöperate",
		"tab\tnew\nline",
		"emoji ✈️ trip 🏖",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestTokenize(t *testing.T) {
	t.Run("default min length drops single characters", func(t *testing.T) {
		got := Tokenize("A trip to Rome, Italy", TokenizeOptions{})
		assert.Equal(t, []string{"trip", "to", "rome", "italy"}, got)
	})

	t.Run("stop words filtered", func(t *testing.T) {
		got := Tokenize("The tower of the city", TokenizeOptions{FilterStopWords: true})
		assert.Equal(t, []string{"tower", "city"}, got)
	})

	t.Run("custom min length", func(t *testing.T) {
		got := Tokenize("go to the big museum", TokenizeOptions{MinLength: 4})
		assert.Equal(t, []string{"museum"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		got := Tokenize("  ...  ", TokenizeOptions{})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("min length counts runes", func(t *testing.T) {
		got := Tokenize("é ét", TokenizeOptions{})
		assert.Equal(t, []string{"et"}, got)
	})
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.False(t, IsStopWord("paris"))
}

func TestNormalizeMultiple(t *testing.T) {
	assert.Equal(t, "paris adventure eiffel tower visit planned",
		NormalizeMultiple("Paris Adventure", "Eiffel Tower visit", "Planned"))
	assert.Equal(t, "cafe de flore", NormalizeMultiple("", "Café de Flore", ""))
	assert.Equal(t, "", NormalizeMultiple())
	assert.Equal(t, "", NormalizeMultiple("", ""))
}
