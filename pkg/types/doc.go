// Package types provides shared type definitions for the LyricMatch engine.
//
// This package defines the domain types that cross package boundaries:
// song records loaded from the lyrics store, ranked match results, the
// asynchronous job lifecycle, and the engine mode selection.
//
// # Core Types
//
// SongRecord is one song as loaded from the lyrics store. Records are
// immutable after corpus build:
//
//	song := types.SongRecord{
//	    ID:     42,
//	    Artist: "Some Artist",
//	    Title:  "Some Song",
//	    LyricsCleaned: "normalized lyric text",
//	}
//
// MatchResult is one ranked candidate returned by the matching engine.
// Per-signal scores are pointers because not every engine contributes
// every signal (a lexical-only match has no semantic score):
//
//	result.FinalScore      // fused score, always set, never NaN/Inf
//	result.LexicalScore    // nil unless the lexical matcher ran
//	result.SemanticScore   // nil unless the semantic matcher ran
//
// Job models one submission moving through the orchestrator state
// machine. Callers only ever see snapshot copies.
//
// # Score Hygiene
//
// All scores leaving the engine are normalized to [0, 1] and sanitized:
// NaN and infinite values become nil (for pointer scores) or 0 (for
// FinalScore) before a result crosses a package boundary.
package types
