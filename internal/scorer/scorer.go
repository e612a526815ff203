// Package scorer implements the relevance heuristic used to rank index entries.
package scorer

import (
	"strings"

	"github.com/dshills/tripsearch-mcp/internal/normalizer"
)

// Score weights. Changing any of these changes result ordering.
const (
	ExactMatchScore  = 100 // Normalized query equals normalized text
	PrefixScore      = 50  // Text starts with the full query
	ContainsScore    = 10  // Text contains the full query
	WordPrefixScore  = 20  // A text word starts with a query token
	WordExactScore   = 5   // A text word equals a query token
	RepeatMatchScore = 2   // Per additional occurrence of the full query
)

// CalculateRelevance scores how well text matches query. The result is
// non-negative; 0 means no relevance.
func CalculateRelevance(query, text string) float64 {
	normalizedQuery := normalizer.Normalize(query)
	normalizedText := normalizer.Normalize(text)
	if normalizedQuery == "" || normalizedText == "" {
		return 0
	}

	if normalizedText == normalizedQuery {
		return ExactMatchScore
	}

	score := 0
	if strings.HasPrefix(normalizedText, normalizedQuery) {
		score += PrefixScore
	}
	if strings.Contains(normalizedText, normalizedQuery) {
		score += ContainsScore
	}

	// Every token x word pair counts, so repeated matches compound.
	queryTokens := normalizer.Tokenize(normalizedQuery, normalizer.TokenizeOptions{})
	words := strings.Split(normalizedText, " ")
	for _, token := range queryTokens {
		for _, word := range words {
			if strings.HasPrefix(word, token) {
				score += WordPrefixScore
			}
			if word == token {
				score += WordExactScore
			}
		}
	}

	if occurrences := strings.Count(normalizedText, normalizedQuery); occurrences > 1 {
		score += (occurrences - 1) * RepeatMatchScore
	}

	return float64(score)
}

// Matches reports whether text contains query after normalization, or any
// query token and text token are prefixes of one another.
func Matches(query, text string) bool {
	normalizedQuery := normalizer.Normalize(query)
	normalizedText := normalizer.Normalize(text)
	if normalizedQuery == "" || normalizedText == "" {
		return false
	}

	if strings.Contains(normalizedText, normalizedQuery) {
		return true
	}

	queryTokens := normalizer.Tokenize(normalizedQuery, normalizer.TokenizeOptions{})
	textTokens := normalizer.Tokenize(normalizedText, normalizer.TokenizeOptions{})
	for _, qt := range queryTokens {
		for _, tt := range textTokens {
			if strings.HasPrefix(qt, tt) || strings.HasPrefix(tt, qt) {
				return true
			}
		}
	}

	return false
}
