package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lyricmatch/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "lyrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndLoadAllSongs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	songs := []types.SongRecord{
		{Artist: "Artist A", Title: "First Song", Lyrics: "Hello darkness my old friend"},
		{Artist: "Artist B", Title: "Second Song", Album: "Some Album", Year: 1999, Lyrics: "We will rock you"},
	}
	for i := range songs {
		require.NoError(t, s.InsertSong(ctx, &songs[i]))
		assert.NotZero(t, songs[i].ID)
	}

	loaded, err := s.LoadAllSongs(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Insertion order preserved
	assert.Equal(t, "First Song", loaded[0].Title)
	assert.Equal(t, "Second Song", loaded[1].Title)

	// Normalization applied on insert
	assert.Equal(t, "hello darkness my old friend", loaded[0].LyricsCleaned)
	assert.Equal(t, 5, loaded[0].WordCount)
	assert.Equal(t, "Some Album", loaded[1].Album)
	assert.Equal(t, 1999, loaded[1].Year)
}

func TestGetSong(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	song := types.SongRecord{Artist: "A", Title: "T", Lyrics: "la la la"}
	require.NoError(t, s.InsertSong(ctx, &song))

	got, err := s.GetSong(ctx, song.ID)
	require.NoError(t, err)
	assert.Equal(t, song.Artist, got.Artist)
	assert.Equal(t, "la la la", got.LyricsCleaned)

	_, err = s.GetSong(ctx, 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.InsertSong(ctx, &types.SongRecord{Artist: "A", Title: "T", Lyrics: "x y z"}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lyrics.db")

	s1, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.InsertSong(context.Background(), &types.SongRecord{Artist: "A", Title: "T", Lyrics: "x"}))
	require.NoError(t, s1.Close())

	// Reopening re-runs ApplyMigrations; data must survive
	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
