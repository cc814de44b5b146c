// Package store provides the lyrics store: a read-only provider of
// song records backed by SQLite. Ingestion (scraping, CSV import)
// happens out of process; the engine only ever loads what is there.
package store

import (
	"context"
	"errors"

	"github.com/dshills/lyricmatch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested song doesn't exist
	ErrNotFound = errors.New("not found")
)

// Store defines read access to the song corpus. InsertSong exists for
// fixtures and local setup; the matching engine itself never writes.
type Store interface {
	LoadAllSongs(ctx context.Context) ([]types.SongRecord, error)
	GetSong(ctx context.Context, id int64) (*types.SongRecord, error)
	Count(ctx context.Context) (int, error)
	InsertSong(ctx context.Context, song *types.SongRecord) error
	Close() error
}
