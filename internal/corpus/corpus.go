// Package corpus owns the in-memory song corpus and its two search
// structures: the sparse lexical (TF-IDF) index and the dense semantic
// index. The whole index is built as one immutable value and published
// through an atomic pointer, so rebuilds never expose a half-built
// index to in-flight queries.
package corpus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/lyricmatch/internal/store"
	"github.com/dshills/lyricmatch/pkg/types"
)

// SemanticIndex is a dense embedding matrix aligned by position with
// the corpus song list.
type SemanticIndex struct {
	ModelID   string
	Dimension int
	Matrix    [][]float32
}

// RowCount reports the number of embedded songs.
func (si *SemanticIndex) RowCount() int {
	return len(si.Matrix)
}

// Index is one immutable snapshot of the corpus: songs, the fitted
// lexical index, and optionally a semantic index. Readers obtain a
// snapshot once and use it for the whole query; a concurrent rebuild
// swaps in a fresh snapshot without touching this one.
type Index struct {
	Songs    []types.SongRecord
	Lexical  *LexicalIndex
	Semantic *SemanticIndex // nil until a semantic build attaches one

	gen uint64
}

// generation numbers snapshots process-wide; it never repeats, unlike
// a snapshot's address, so it is safe to use as a cache key component.
var generation atomic.Uint64

// Generation returns this snapshot's process-unique identity. Every
// published snapshot, including one that only attaches a semantic
// index, carries a fresh value.
func (idx *Index) Generation() uint64 {
	return idx.gen
}

// Corpus manages index lifecycle: initial build, rebuilds, and
// attaching semantic matrices. Only the atomic pointer is shared.
type Corpus struct {
	store   store.Store
	cfg     LexicalConfig
	current atomic.Pointer[Index]
	buildMu sync.Mutex // serializes builds, not reads
}

// New creates a corpus manager over the given store. Build must be
// called before queries.
func New(s store.Store, cfg LexicalConfig) *Corpus {
	return &Corpus{store: s, cfg: cfg}
}

// Build loads all songs and fits the lexical index, then publishes the
// snapshot. Fails with ErrEmptyCorpus when the store has no songs;
// callers must not proceed to matching.
func (c *Corpus) Build(ctx context.Context) error {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	songs, err := c.store.LoadAllSongs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load songs: %w", err)
	}
	if len(songs) == 0 {
		return types.ErrEmptyCorpus
	}

	docs := make([]string, len(songs))
	for i := range songs {
		docs[i] = songs[i].LyricsCleaned
	}

	idx := &Index{
		Songs:   songs,
		Lexical: fitLexical(docs, c.cfg),
		gen:     generation.Add(1),
	}

	c.current.Store(idx)
	return nil
}

// Rebuild refits from the store. Idempotent and safe to call
// concurrently with queries: readers keep the old snapshot until the
// new one is published. The previous semantic index is discarded, its
// row count no longer matches once the corpus changed.
func (c *Corpus) Rebuild(ctx context.Context) error {
	return c.Build(ctx)
}

// Snapshot returns the current index, or ErrEmptyCorpus when no build
// has succeeded yet.
func (c *Corpus) Snapshot() (*Index, error) {
	idx := c.current.Load()
	if idx == nil {
		return nil, types.ErrEmptyCorpus
	}
	return idx, nil
}

// AttachSemantic publishes a copy of the base snapshot with the given
// semantic index. It fails if the base snapshot has been replaced by a
// rebuild in the meantime, or if the matrix is not row-aligned with
// the songs; the caller should re-run the semantic build against the
// fresh snapshot.
func (c *Corpus) AttachSemantic(base *Index, sem *SemanticIndex) error {
	if sem.RowCount() != len(base.Songs) {
		return fmt.Errorf("semantic index has %d rows for %d songs", sem.RowCount(), len(base.Songs))
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	if c.current.Load() != base {
		return fmt.Errorf("corpus changed during semantic build")
	}

	next := &Index{
		Songs:    base.Songs,
		Lexical:  base.Lexical,
		Semantic: sem,
		gen:      generation.Add(1),
	}
	c.current.Store(next)
	return nil
}
