package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases and strips punctuation",
			in:   "Feeling Good Today! The sun is SHINING...",
			want: "feeling good today the sun is shining",
		},
		{
			name: "keeps apostrophes and hyphens",
			in:   "don't stop believin' — hold-on",
			want: "don't stop believin' hold-on",
		},
		{
			name: "strips urls",
			in:   "visit https://example.com for lyrics www.example.org too",
			want: "visit for lyrics too",
		},
		{
			name: "strips emails",
			in:   "contact someone@example.com now",
			want: "contact now",
		},
		{
			name: "collapses whitespace",
			in:   "la   la\n\tla",
			want: "la la la",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestTokenizeAndWordCount(t *testing.T) {
	tokens := Tokenize("Hey, Jude! Don't make it bad")
	assert.Equal(t, []string{"hey", "jude", "don't", "make", "it", "bad"}, tokens)
	assert.Equal(t, 6, WordCount("Hey, Jude! Don't make it bad"))
	assert.Equal(t, 0, WordCount("   "))
}

func TestOverlap(t *testing.T) {
	common, pct := Overlap("love me tender", "love me tender love me sweet never let me go")
	assert.Equal(t, 3, common)
	assert.InDelta(t, 100.0, pct, 1e-9)

	common, pct = Overlap("completely unrelated words", "love me tender")
	assert.Equal(t, 0, common)
	assert.Zero(t, pct)

	common, pct = Overlap("", "love me tender")
	assert.Equal(t, 0, common)
	assert.Zero(t, pct)
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard("hello world", "world hello"), 1e-9)
	assert.Zero(t, Jaccard("abc def", "ghi jkl"))
	assert.Zero(t, Jaccard("", "something"))

	// {a,b,c} vs {b,c,d}: 2 common, 4 union
	assert.InDelta(t, 0.5, Jaccard("a b c", "b c d"), 1e-9)
}
