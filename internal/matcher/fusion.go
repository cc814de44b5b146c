package matcher

import (
	"math"
	"sort"

	"github.com/dshills/lyricmatch/pkg/types"
)

// Confidence labels derived from the fused final score.
const (
	ConfidenceVeryHigh = "very high"
	ConfidenceHigh     = "high"
	ConfidenceMedium   = "medium"
	ConfidenceLow      = "low"
	ConfidenceVeryLow  = "very low"
)

// Bands holds the lower edge of each confidence band. Lexical and
// semantic scores live in different typical ranges, so each primary
// mode carries its own edges.
type Bands struct {
	VeryHigh float64
	High     float64
	Medium   float64
	Low      float64
}

// DefaultLexicalBands matches the sparser TF-IDF score distribution.
func DefaultLexicalBands() Bands {
	return Bands{VeryHigh: 0.7, High: 0.5, Medium: 0.3, Low: 0.2}
}

// DefaultSemanticBands matches the denser embedding score distribution.
func DefaultSemanticBands() Bands {
	return Bands{VeryHigh: 0.75, High: 0.6, Medium: 0.45, Low: 0.3}
}

// Label maps a final score to its confidence label.
func (b Bands) Label(score float64) string {
	switch {
	case score >= b.VeryHigh:
		return ConfidenceVeryHigh
	case score >= b.High:
		return ConfidenceHigh
	case score >= b.Medium:
		return ConfidenceMedium
	case score >= b.Low:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// fuse combines each candidate's primary score with its fuzzy score,
// re-sorts descending, and truncates to k. Candidates keep their
// relative corpus order on score ties (stable sort over a
// shortlist already in primary-score order).
func fuse(candidates []types.MatchResult, primaryWeight float64, k int) []types.MatchResult {
	if primaryWeight < 0 || primaryWeight > 1 || math.IsNaN(primaryWeight) {
		primaryWeight = 1
	}

	for i := range candidates {
		c := &candidates[i]
		if c.FuzzyScore == nil {
			continue
		}
		primary := c.FinalScore
		c.FinalScore = primary*primaryWeight + *c.FuzzyScore*(1-primaryWeight)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// finalize sanitizes scores, applies confidence labels, and assigns
// ranks. Every result leaving the engine goes through here.
func finalize(results []types.MatchResult, bands Bands) []types.MatchResult {
	for i := range results {
		r := &results[i]
		r.Sanitize()
		if r.FinalScore < 0 {
			r.FinalScore = 0
		}
		r.Confidence = bands.Label(r.FinalScore)
		r.Rank = i + 1
	}
	return results
}
