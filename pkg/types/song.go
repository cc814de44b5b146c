package types

// SongRecord is one song loaded from the lyrics store. Records are
// immutable once the corpus index has been built; a corpus change is
// handled by rebuilding the whole index, never by mutating records.
type SongRecord struct {
	ID            int64
	Artist        string
	Title         string
	Album         string // optional, empty when unknown
	Year          int    // optional, 0 when unknown
	Lyrics        string // raw lyrics as stored
	LyricsCleaned string // normalized form used for matching
	WordCount     int
}

// EngineMode selects which matching strategy the engine runs.
type EngineMode string

const (
	// ModeLexical matches on sparse TF-IDF vectors refined by fuzzy
	// string metrics.
	ModeLexical EngineMode = "lexical"
	// ModeSemantic matches on dense embedding vectors only.
	ModeSemantic EngineMode = "semantic"
	// ModeHybrid fuses semantic similarity with fuzzy refinement.
	ModeHybrid EngineMode = "hybrid"
)

// Valid reports whether the mode is one of the known engine modes.
func (m EngineMode) Valid() bool {
	switch m {
	case ModeLexical, ModeSemantic, ModeHybrid:
		return true
	}
	return false
}
