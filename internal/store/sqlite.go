package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dshills/lyricmatch/internal/textnorm"
	"github.com/dshills/lyricmatch/pkg/types"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (and if needed migrates) the lyrics database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadAllSongs returns every song in insertion order. Songs missing a
// cleaned-lyrics column are normalized on the way out so the index
// never sees raw text.
func (s *SQLiteStore) LoadAllSongs(ctx context.Context) ([]types.SongRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, artist, title, COALESCE(album, ''), COALESCE(year, 0),
		       lyrics, COALESCE(lyrics_cleaned, ''), COALESCE(word_count, 0)
		FROM songs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var songs []types.SongRecord
	for rows.Next() {
		var song types.SongRecord
		if err := rows.Scan(&song.ID, &song.Artist, &song.Title, &song.Album,
			&song.Year, &song.Lyrics, &song.LyricsCleaned, &song.WordCount); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		normalizeSong(&song)
		songs = append(songs, song)
	}

	return songs, rows.Err()
}

// GetSong returns one song by id
func (s *SQLiteStore) GetSong(ctx context.Context, id int64) (*types.SongRecord, error) {
	var song types.SongRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, artist, title, COALESCE(album, ''), COALESCE(year, 0),
		       lyrics, COALESCE(lyrics_cleaned, ''), COALESCE(word_count, 0)
		FROM songs WHERE id = ?
	`, id).Scan(&song.ID, &song.Artist, &song.Title, &song.Album,
		&song.Year, &song.Lyrics, &song.LyricsCleaned, &song.WordCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song %d: %w", id, err)
	}
	normalizeSong(&song)
	return &song, nil
}

// Count returns the number of songs in the store
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

// InsertSong stores a song, filling in cleaned lyrics and word count
// when the caller left them empty. Used by fixtures and local setup.
func (s *SQLiteStore) InsertSong(ctx context.Context, song *types.SongRecord) error {
	normalizeSong(song)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (artist, title, album, year, lyrics, lyrics_cleaned, word_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, song.Artist, song.Title, nullableString(song.Album), nullableInt(song.Year),
		song.Lyrics, song.LyricsCleaned, song.WordCount)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get song id: %w", err)
	}
	song.ID = id
	return nil
}

func normalizeSong(song *types.SongRecord) {
	if song.LyricsCleaned == "" {
		song.LyricsCleaned = textnorm.Clean(song.Lyrics)
	}
	if song.WordCount == 0 {
		song.WordCount = textnorm.WordCount(song.LyricsCleaned)
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
