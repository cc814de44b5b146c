// Package audio defines the audio preprocessing collaborator. The
// engine treats preprocessing as a black box: it hands over a file
// path and gets back clip metadata, or an error that fails the job.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dshills/lyricmatch/pkg/types"
)

// Common errors
var (
	ErrFileNotFound    = errors.New("audio file not found")
	ErrFileTooLarge    = errors.New("audio file exceeds size limit")
	ErrUnsupportedFile = errors.New("unsupported audio format")
)

// Processor prepares an uploaded clip for transcription.
type Processor interface {
	// Preprocess validates and normalizes the clip at path, returning
	// its metadata. Implementations must respect ctx cancellation.
	Preprocess(ctx context.Context, path string) (*types.AudioInfo, error)
}

// FileChecker is a minimal Processor that verifies the file exists and
// fits under maxBytes. Real decoding happens in an external
// implementation; this is what the pipeline uses when none is wired.
type FileChecker struct {
	MaxBytes int64 // 0 disables the size check
}

func (f *FileChecker) Preprocess(ctx context.Context, path string) (*types.AudioInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFile, path)
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes over %d limit", ErrFileTooLarge, info.Size(), f.MaxBytes)
	}

	return &types.AudioInfo{}, nil
}
