package matcher

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Fuzzy metric weights. Partial overlap dominates because a
// transcript usually captures only a short excerpt of the full lyric.
const (
	fuzzyPartialWeight   = 0.4
	fuzzyTokenSortWeight = 0.3
	fuzzyTokenSetWeight  = 0.3
)

// fuzzyScore blends three string-similarity ratios between the query
// and a candidate's cleaned lyrics into one score in [0, 1]:
// partial overlap, order-invariant token ratio, and set-invariant
// token ratio. Cheap enough to run on a shortlist, far too costly to
// run over the whole corpus.
func fuzzyScore(query, lyrics string) float64 {
	partial := float64(fuzzy.PartialRatio(query, lyrics)) / 100
	tokenSort := float64(fuzzy.TokenSortRatio(query, lyrics)) / 100
	tokenSet := float64(fuzzy.TokenSetRatio(query, lyrics)) / 100

	return partial*fuzzyPartialWeight +
		tokenSort*fuzzyTokenSortWeight +
		tokenSet*fuzzyTokenSetWeight
}
