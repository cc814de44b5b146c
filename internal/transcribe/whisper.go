package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Whisper CLI defaults.
const (
	WhisperCommand = "whisper"
	DefaultQuality = "base"
	OutputFormat   = "json"
)

// WhisperCLI runs a local whisper binary and parses its JSON output.
type WhisperCLI struct {
	binary        string
	outputDir     string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperCLI creates a transcriber that shells out to binary,
// writing intermediate output under outputDir. Empty arguments select
// the defaults (the "whisper" command, the clip's own directory).
func NewWhisperCLI(binary, outputDir string) *WhisperCLI {
	if binary == "" {
		binary = WhisperCommand
	}
	return &WhisperCLI{binary: binary, outputDir: outputDir}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperCLI) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Transcribe runs whisper over the clip and loads the transcript from
// the JSON file it writes next to the clip.
func (w *WhisperCLI) Transcribe(ctx context.Context, path, quality, langHint string) (*Result, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: source path required", ErrTranscriptionFailed)
	}
	if quality == "" {
		quality = DefaultQuality
	}

	outputDir := w.outputDir
	if outputDir == "" {
		outputDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure output dir: %v", ErrTranscriptionFailed, err)
	}

	args := []string{
		path,
		"--model", quality,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	}
	if langHint != "" {
		args = append(args, "--language", langHint)
	}

	if err := w.run(ctx, w.binary, args...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return loadResult(filepath.Join(outputDir, baseName+".json"))
}

func (w *WhisperCLI) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// whisperSegment is one timed span of the whisper JSON output.
type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// whisperPayload is the JSON document whisper writes per clip.
type whisperPayload struct {
	Text                string           `json:"text"`
	Language            string           `json:"language"`
	LanguageProbability float64          `json:"language_probability"`
	Segments            []whisperSegment `json:"segments"`
}

func loadResult(jsonPath string) (*Result, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrTranscriptionFailed, err)
	}

	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse output: %v", ErrTranscriptionFailed, err)
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		// Older whisper builds omit the top-level text field
		var parts []string
		for _, seg := range payload.Segments {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		text = strings.Join(parts, " ")
	}

	var duration time.Duration
	if n := len(payload.Segments); n > 0 {
		duration = time.Duration(payload.Segments[n-1].End * float64(time.Second))
	}

	return &Result{
		Text:       text,
		Language:   payload.Language,
		Confidence: payload.LanguageProbability,
		Duration:   duration,
	}, nil
}
