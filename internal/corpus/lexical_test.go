package corpus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Small corpus where every interesting term appears in at least two
// documents so the MinDocFreq filter keeps it.
var testDocs = []string{
	"love me tender love me sweet never let me go",
	"love me tender love me true all my dreams fulfilled",
	"we will rock you we will rock you",
	"we will we will rock you sing it",
}

func TestFitLexicalVerbatimQuery(t *testing.T) {
	idx := fitLexical(testDocs, DefaultLexicalConfig())

	// A query identical to a document must score ~1.0 against it
	q := idx.Vectorize(testDocs[1])
	sims := idx.Similarities(q)
	require.Len(t, sims, len(testDocs))

	assert.InDelta(t, 1.0, sims[1], 1e-6)
	for i, s := range sims {
		if i == 1 {
			continue
		}
		assert.Less(t, s, sims[1], "doc %d should score below the verbatim doc", i)
	}
}

func TestVectorizeOutOfVocabulary(t *testing.T) {
	idx := fitLexical(testDocs, DefaultLexicalConfig())

	// No shared vocabulary: projection is the zero vector
	q := idx.Vectorize("zyzzyva quetzal xylophone")
	assert.Empty(t, q)

	sims := idx.Similarities(q)
	for _, s := range sims {
		assert.Zero(t, s)
	}
}

func TestVectorizeEmptyQuery(t *testing.T) {
	idx := fitLexical(testDocs, DefaultLexicalConfig())
	assert.Empty(t, idx.Vectorize(""))
}

func TestMinDocFreqFilter(t *testing.T) {
	idx := fitLexical(testDocs, DefaultLexicalConfig())

	// "dreams" appears in exactly one document; it must not be fitted
	_, ok := idx.vocabulary["dreams"]
	assert.False(t, ok)

	// "tender" appears in two documents; it must be fitted
	_, ok = idx.vocabulary["tender"]
	assert.True(t, ok)
}

func TestMaxDocRatioFilter(t *testing.T) {
	docs := []string{
		"common alpha one",
		"common alpha two",
		"common beta three",
		"common beta four",
		"common gamma five",
	}
	cfg := DefaultLexicalConfig()
	idx := fitLexical(docs, cfg)

	// "common" is in 5/5 docs, above the 0.8 ratio: excluded
	_, ok := idx.vocabulary["common"]
	assert.False(t, ok)

	// "alpha" is in 2/5 docs: kept
	_, ok = idx.vocabulary["alpha"]
	assert.True(t, ok)
}

func TestVocabularyCap(t *testing.T) {
	cfg := DefaultLexicalConfig()
	cfg.MaxVocabulary = 3
	idx := fitLexical(testDocs, cfg)
	assert.LessOrEqual(t, idx.VocabularySize(), 3)
}

func TestNGramRange(t *testing.T) {
	cfg := DefaultLexicalConfig()
	idx := fitLexical(testDocs, cfg)

	// Trigram shared by documents 2 and 3
	_, ok := idx.vocabulary["will rock you"]
	assert.True(t, ok, "expected trigram in vocabulary")
}

func TestRowsAreUnitLength(t *testing.T) {
	idx := fitLexical(testDocs, DefaultLexicalConfig())
	for i, row := range idx.rows {
		var norm float64
		for _, e := range row {
			norm += e.weight * e.weight
		}
		if len(row) == 0 {
			continue
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9, "row %d", i)
	}
}

func TestFitDeterministic(t *testing.T) {
	a := fitLexical(testDocs, DefaultLexicalConfig())
	b := fitLexical(testDocs, DefaultLexicalConfig())

	q := "love me tender"
	assert.Equal(t, a.Vectorize(q), b.Vectorize(q))
	assert.Equal(t, a.Similarities(a.Vectorize(q)), b.Similarities(b.Vectorize(q)))
}
