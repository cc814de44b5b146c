// Package textnorm normalizes lyric and transcript text so the sparse
// and dense matchers score the same cleaned form.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern = regexp.MustCompile(`\S+@\S+`)
)

// Clean lowercases text, strips URLs and email addresses, replaces
// punctuation with spaces (apostrophes and hyphens survive, they carry
// meaning in lyrics), and collapses runs of whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits cleaned text into word tokens. Input that has not
// been through Clean is cleaned first.
func Tokenize(text string) []string {
	return strings.Fields(Clean(text))
}

// WordCount returns the number of word tokens in the cleaned text.
func WordCount(text string) int {
	return len(Tokenize(text))
}

// WordSet returns the set of distinct tokens in the cleaned text.
func WordSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Overlap reports how much of the query vocabulary appears in the
// candidate lyrics: common word count and the percentage of query
// words covered (0-100).
func Overlap(query, lyrics string) (common int, pct float64) {
	qset := WordSet(query)
	if len(qset) == 0 {
		return 0, 0
	}
	lset := WordSet(lyrics)
	for w := range qset {
		if _, ok := lset[w]; ok {
			common++
		}
	}
	return common, float64(common) / float64(len(qset)) * 100
}

// Jaccard computes word-set Jaccard similarity between two texts.
func Jaccard(a, b string) float64 {
	aset := WordSet(a)
	bset := WordSet(b)
	if len(aset) == 0 || len(bset) == 0 {
		return 0
	}

	inter := 0
	for w := range aset {
		if _, ok := bset[w]; ok {
			inter++
		}
	}
	union := len(aset) + len(bset) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
