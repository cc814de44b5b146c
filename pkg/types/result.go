package types

import "math"

// MatchType tags which engines contributed to a result.
const (
	MatchTypeLexical      = "lexical"
	MatchTypeLexicalFuzzy = "lexical+fuzzy"
	MatchTypeSemantic     = "semantic"
	MatchTypeHybrid       = "hybrid"
)

// MatchResult is one ranked candidate from the matching engine.
type MatchResult struct {
	// Identification
	SongID int64
	Artist string
	Title  string
	Album  string // empty when unknown
	Year   int    // 0 when unknown
	Rank   int    // position in result set (1-based)

	// Scoring. Per-signal scores are nil when that signal did not run.
	LexicalScore  *float64
	SemanticScore *float64
	FuzzyScore    *float64
	FinalScore    float64

	MatchType  string
	Confidence string

	// Word-overlap details between the query and the song lyrics.
	QueryWordCount  int
	SongWordCount   int
	CommonWordCount int
	WordOverlapPct  float64
}

// Sanitize normalizes non-finite scores so they never leave the
// engine: NaN/Inf pointer scores become nil, a non-finite FinalScore
// becomes 0.
func (mr *MatchResult) Sanitize() {
	mr.LexicalScore = finiteOrNil(mr.LexicalScore)
	mr.SemanticScore = finiteOrNil(mr.SemanticScore)
	mr.FuzzyScore = finiteOrNil(mr.FuzzyScore)
	if math.IsNaN(mr.FinalScore) || math.IsInf(mr.FinalScore, 0) {
		mr.FinalScore = 0
	}
	if math.IsNaN(mr.WordOverlapPct) || math.IsInf(mr.WordOverlapPct, 0) {
		mr.WordOverlapPct = 0
	}
}

// Validate checks result invariants before it crosses a package
// boundary.
func (mr *MatchResult) Validate() error {
	if mr.SongID == 0 {
		return ErrInvalidSongID
	}
	if mr.Rank < 1 {
		return ErrInvalidRank
	}
	if mr.FinalScore < 0 || math.IsNaN(mr.FinalScore) || math.IsInf(mr.FinalScore, 0) {
		return ErrInvalidScore
	}
	if mr.MatchType == "" {
		return ErrMissingMatchType
	}
	return nil
}

func finiteOrNil(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// Float64Ptr is a convenience helper for building per-signal scores.
func Float64Ptr(v float64) *float64 { return &v }
