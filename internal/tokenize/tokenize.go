// Package tokenize normalizes text into the term sequences the BM25 index
// scores against.
package tokenize

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token kept after stop-word filtering.
const MinTokenLength = 2

// stopWords is the fixed English stop-word list from spec §4.1.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "of": true, "to": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "with": true, "from": true, "and": true,
	"or": true, "but": true, "if": true, "then": true, "else": true,
	"as": true, "it": true, "this": true, "that": true, "these": true,
	"those": true,
}

// Tokens lowercases text, splits it into maximal runs of Unicode letters
// and digits, and discards stop words and short tokens. Every other rune
// (apostrophes, underscores, combining marks, punctuation) separates tokens;
// this is not UAX #29 word-boundary segmentation, so "don't" yields "don"
// and "t". The result is deterministic and preserves
// relative order without deduplication, so term frequency still reflects
// repetition.
func Tokens(text string) []string {
	lower := strings.ToLower(text)

	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < MinTokenLength {
			continue
		}
		if stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
