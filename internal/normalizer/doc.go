// Package normalizer turns raw display text into the canonical form stored in
// the search index.
//
// Normalization lowercases, strips diacritics (NFD decomposition followed by
// removal of non-spacing marks), replaces every character that is not a
// letter, digit or space with a space, collapses whitespace and trims:
//
//	normalizer.Normalize("Café de Flore!")  // "cafe de flore"
//	normalizer.Normalize("  Saint-Germain ") // "saint germain"
//
// Normalize is total, deterministic and idempotent.
//
// Tokenize splits normalized text into words, dropping short tokens and,
// optionally, a small fixed stop-word list:
//
//	normalizer.Tokenize("The Eiffel Tower", normalizer.TokenizeOptions{FilterStopWords: true})
//	// []string{"eiffel", "tower"}
//
// NormalizeMultiple builds an entry's searchable text from its fields:
//
//	normalizer.NormalizeMultiple("Paris Adventure", "", "Planned")
//	// "paris adventure planned"
package normalizer
