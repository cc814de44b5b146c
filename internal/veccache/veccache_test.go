package veccache

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestStoreLoadRoundTrip(t *testing.T) {
	c := newTestCache(t)

	matrix := [][]float32{
		{0.1, 0.2, 0.3},
		{-1, 0, 1},
		{0.5, 0.5, 0.5},
	}
	require.NoError(t, c.Store("all-MiniLM-L6-v2", matrix))

	got, err := c.Load("all-MiniLM-L6-v2", 3)
	require.NoError(t, err)
	assert.Equal(t, matrix, got)
}

func TestLoadMissWhenAbsent(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Load("all-MiniLM-L6-v2", 3)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLoadMissOnRowCountMismatch(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("m", [][]float32{{1, 2}, {3, 4}}))

	// Corpus grew since the entry was written
	_, err := c.Load("m", 3)
	assert.ErrorIs(t, err, ErrMiss)

	// Exact match still hits
	_, err = c.Load("m", 2)
	assert.NoError(t, err)
}

func TestLoadMissOnCorruptFile(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("m", [][]float32{{1, 2}, {3, 4}}))

	path := c.entryPath("m")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Truncate mid-payload
	require.NoError(t, os.WriteFile(path, data[:len(data)-5], 0o644))
	_, err = c.Load("m", 2)
	assert.ErrorIs(t, err, ErrMiss)

	// Garbage magic
	require.NoError(t, os.WriteFile(path, []byte("not a cache file"), 0o644))
	_, err = c.Load("m", 2)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLoadMissOnImplausibleShape(t *testing.T) {
	c := newTestCache(t)

	// A header claiming 2^32-1 rows of 2^32-1 dims: the row*dim product
	// overflows, so each field must be rejected on its own
	var data []byte
	data = binary.LittleEndian.AppendUint32(data, magic)
	data = binary.LittleEndian.AppendUint16(data, formatVersion)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = append(data, 'm')
	data = binary.LittleEndian.AppendUint32(data, 0xFFFFFFFF)
	data = binary.LittleEndian.AppendUint32(data, 0xFFFFFFFF)
	require.NoError(t, os.WriteFile(c.entryPath("m"), data, 0o644))

	_, err := c.Load("m", 3)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestStoreOverwritesAtomically(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("m", [][]float32{{1}}))
	require.NoError(t, c.Store("m", [][]float32{{2}, {3}}))

	got, err := c.Load("m", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}}, got)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(c.entryPath("m")))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("m", [][]float32{{1}}))
	require.NoError(t, c.Invalidate("m"))

	_, err := c.Load("m", 1)
	assert.ErrorIs(t, err, ErrMiss)

	// Invalidating a missing entry is not an error
	assert.NoError(t, c.Invalidate("m"))
}

func TestModelIDSanitizedInPath(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("org/model v2", [][]float32{{1}}))

	// Hit requires the exact stored model id, not the sanitized name
	_, err := c.Load("org/model v2", 1)
	assert.NoError(t, err)
	_, err = c.Load("org_model_v2", 1)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestEmptyMatrix(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("m", [][]float32{}))
	got, err := c.Load("m", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
