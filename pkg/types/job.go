package types

import "time"

// State is one step of the job lifecycle. A job's observed state
// sequence is always a prefix-ordered subsequence of
// queued, preprocessing, transcribing, matching, complete — or it
// terminates early at error.
type State string

const (
	StateQueued        State = "queued"
	StatePreprocessing State = "preprocessing"
	StateTranscribing  State = "transcribing"
	StateMatching      State = "matching"
	StateComplete      State = "complete"
	StateError         State = "error"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Progress is the fixed progress percentage reported for a state.
func (s State) Progress() int {
	switch s {
	case StateQueued:
		return 0
	case StatePreprocessing:
		return 10
	case StateTranscribing:
		return 30
	case StateMatching:
		return 70
	case StateComplete:
		return 100
	default:
		return 0
	}
}

// EngineConfig is the engine selection a caller requests for a job.
type EngineConfig struct {
	Mode                 EngineMode
	TranscriptionQuality string
	EmbeddingModel       string  // required for semantic/hybrid, else empty
	HybridWeight         float64 // 0 means use the configured default
	TopK                 int     // 0 means use the configured default
}

// AudioInfo carries metadata about the processed audio clip.
type AudioInfo struct {
	Duration   time.Duration
	SampleRate int
}

// Job is a status snapshot of one asynchronous identification request.
// The orchestrator owns the mutable record; callers only ever receive
// copies, so a snapshot is never torn by a concurrent transition.
type Job struct {
	ID       string
	State    State
	Progress int
	Tier     string
	Config   EngineConfig

	Transcript         string
	Language           string
	LanguageConfidence float64

	Results []MatchResult
	Audio   *AudioInfo

	Err       string // human-readable cause, set only in StateError
	CreatedAt time.Time
	UpdatedAt time.Time
}
