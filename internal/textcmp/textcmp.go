// Package textcmp normalizes and compares transcription text against
// reference text. Comparison runs on normalized forms so punctuation and
// casing differences between the model output and the reference do not
// count as errors.
package textcmp

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Normalize lowercases, strips punctuation and symbols (ASCII and CJK), and
// collapses whitespace runs to single spaces.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Comparison is the result of comparing an actual transcript to an expected
// reference.
type Comparison struct {
	Expected   string
	Actual     string
	Distance   int
	Similarity float64
}

// Compare computes the Levenshtein distance and a similarity ratio in [0, 1]
// between the normalized forms of expected and actual.
func Compare(expected, actual string) Comparison {
	ne := Normalize(expected)
	na := Normalize(actual)

	dist := matchr.Levenshtein(ne, na)
	maxLen := len([]rune(ne))
	if l := len([]rune(na)); l > maxLen {
		maxLen = l
	}

	sim := 1.0
	if maxLen > 0 {
		sim = 1.0 - float64(dist)/float64(maxLen)
		if sim < 0 {
			sim = 0
		}
	}
	return Comparison{Expected: ne, Actual: na, Distance: dist, Similarity: sim}
}
