package types

import "errors"

// Domain errors shared across the engine
var (
	// Corpus and index errors
	ErrEmptyCorpus = errors.New("corpus contains no songs")

	// Collaborator errors
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// Result validation errors
	ErrInvalidSongID    = errors.New("invalid song ID")
	ErrInvalidRank      = errors.New("rank must be >= 1")
	ErrInvalidScore     = errors.New("final score must be finite and >= 0")
	ErrMissingMatchType = errors.New("match type is required")
)
