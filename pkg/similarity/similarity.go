// Package similarity provides normalized text-similarity scoring used to
// deduplicate roles, bottlenecks, and insights without exact string equality.
package similarity

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Score returns a similarity in [0, 1] between two strings. Comparison is
// case-insensitive and whitespace-normalized; tokens are singularized so
// "Backend Engineers" matches "backend engineer". The score is the Sorensen-
// Dice coefficient over the two token multisets.
func Score(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	counts := make(map[string]int, len(ta))
	for _, tok := range ta {
		counts[tok]++
	}

	overlap := 0
	for _, tok := range tb {
		if counts[tok] > 0 {
			counts[tok]--
			overlap++
		}
	}

	return 2 * float64(overlap) / float64(len(ta)+len(tb))
}

// IsSimilar reports whether a and b score at or above threshold.
func IsSimilar(a, b string, threshold float64) bool {
	return Score(a, b) >= threshold
}

// tokenize lowercases, strips punctuation, collapses whitespace, and
// singularizes each token.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, inflection.Singular(f))
	}
	return tokens
}
