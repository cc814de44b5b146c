// Package veccache persists the semantic embedding matrix across
// process restarts so the corpus does not have to be re-encoded on
// every startup.
//
// One entry exists per (model id, corpus row count). The on-disk
// format is deliberately explicit: a magic number, a fixed header
// (model id, row count, vector dimension), then the matrix as
// little-endian float32 values row by row. Writes go to a temp file
// followed by an atomic rename, so a crash mid-write can never corrupt
// a previously valid entry. A corrupt or truncated file reads as a
// cache miss, never as an error surfaced to callers.
package veccache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	magic         = 0x4C594D58 // "LYMX"
	formatVersion = 1

	// maxModelIDLen bounds the header string so a corrupt length field
	// cannot trigger a huge allocation.
	maxModelIDLen = 256

	// Per-field shape bounds. Checked individually before the product,
	// so two near-2^32 header values cannot overflow the product check
	// and sneak past it.
	maxRows = 1 << 24
	maxDim  = 1 << 16
)

// ErrMiss is returned when no valid cache entry exists for the key.
var ErrMiss = errors.New("embedding cache miss")

// Cache is a directory-backed store of embedding matrices.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// entryPath mirrors the key structure: one file per model, with the
// row count validated from the header rather than the name so renamed
// files cannot fake a hit.
func (c *Cache) entryPath(modelID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, modelID)
	return filepath.Join(c.dir, safe+".vec")
}

// Load returns the cached matrix for (modelID, corpusSize). ErrMiss is
// returned when the entry is absent, was written for a different model
// or corpus size, or fails to parse.
func (c *Cache) Load(modelID string, corpusSize int) ([][]float32, error) {
	f, err := os.Open(c.entryPath(modelID))
	if err != nil {
		return nil, ErrMiss
	}
	defer func() { _ = f.Close() }()

	matrix, storedModel, err := readEntry(f)
	if err != nil {
		return nil, ErrMiss
	}
	if storedModel != modelID || len(matrix) != corpusSize {
		return nil, ErrMiss
	}
	return matrix, nil
}

// Store persists the matrix for (modelID, row count) atomically.
func (c *Cache) Store(modelID string, matrix [][]float32) error {
	if len(modelID) == 0 || len(modelID) > maxModelIDLen {
		return fmt.Errorf("invalid model id %q", modelID)
	}

	dim := 0
	if len(matrix) > 0 {
		dim = len(matrix[0])
	}
	for i, row := range matrix {
		if len(row) != dim {
			return fmt.Errorf("ragged matrix: row %d has %d values, want %d", i, len(row), dim)
		}
	}

	tmp, err := os.CreateTemp(c.dir, "vec-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after successful rename

	if err := writeEntry(tmp, modelID, matrix, dim); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry: %w", err)
	}

	if err := os.Rename(tmpName, c.entryPath(modelID)); err != nil {
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for modelID. Missing entries are fine.
func (c *Cache) Invalidate(modelID string) error {
	err := os.Remove(c.entryPath(modelID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

func writeEntry(w io.Writer, modelID string, matrix [][]float32, dim int) error {
	header := make([]byte, 0, 16+len(modelID))
	header = binary.LittleEndian.AppendUint32(header, magic)
	header = binary.LittleEndian.AppendUint16(header, formatVersion)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(modelID)))
	header = append(header, modelID...)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(matrix)))
	header = binary.LittleEndian.AppendUint32(header, uint32(dim))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, dim*4)
	for _, row := range matrix {
		for i, v := range row {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

func readEntry(r io.Reader) ([][]float32, string, error) {
	var fixed [8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, "", err
	}
	if binary.LittleEndian.Uint32(fixed[0:4]) != magic {
		return nil, "", errors.New("bad magic")
	}
	if binary.LittleEndian.Uint16(fixed[4:6]) != formatVersion {
		return nil, "", errors.New("unknown format version")
	}
	modelLen := int(binary.LittleEndian.Uint16(fixed[6:8]))
	if modelLen == 0 || modelLen > maxModelIDLen {
		return nil, "", errors.New("bad model id length")
	}

	modelBytes := make([]byte, modelLen)
	if _, err := io.ReadFull(r, modelBytes); err != nil {
		return nil, "", err
	}

	var counts [8]byte
	if _, err := io.ReadFull(r, counts[:]); err != nil {
		return nil, "", err
	}
	rows := int(binary.LittleEndian.Uint32(counts[0:4]))
	dim := int(binary.LittleEndian.Uint32(counts[4:8]))
	if rows < 0 || dim < 0 || rows > maxRows || dim > maxDim || rows*dim > 1<<30 {
		return nil, "", errors.New("implausible matrix shape")
	}

	matrix := make([][]float32, rows)
	buf := make([]byte, dim*4)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, "", err
		}
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		matrix[i] = row
	}

	// Trailing bytes mean the file does not match its header
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, "", errors.New("trailing data after matrix")
	}

	return matrix, string(modelBytes), nil
}
