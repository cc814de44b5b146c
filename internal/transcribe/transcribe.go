// Package transcribe defines the speech-to-text collaborator. The
// engine does not transcribe audio itself; it consumes the transcript
// an external recognizer produces for a preprocessed clip.
package transcribe

import (
	"context"
	"errors"
	"time"
)

// ErrTranscriptionFailed wraps recognizer failures so the pipeline can
// report them uniformly.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Result is the recognizer's output for one clip.
type Result struct {
	Text       string
	Language   string  // ISO 639-1 code, empty when undetected
	Confidence float64 // language detection confidence in [0, 1]
	Duration   time.Duration
}

// Transcriber converts a preprocessed audio clip into text. quality
// names the recognition model tier (for example "tiny" or "large");
// langHint may be empty to request auto-detection.
type Transcriber interface {
	Transcribe(ctx context.Context, path, quality, langHint string) (*Result, error)
}
