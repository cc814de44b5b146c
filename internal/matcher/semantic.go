package matcher

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/lyricmatch/internal/corpus"
	"github.com/dshills/lyricmatch/pkg/types"
)

// buildConcurrency bounds how many embedding batches are in flight at
// once during a semantic index build.
const buildConcurrency = 4

// ensureSemantic returns a semantic index for the snapshot, loading it
// from the disk cache or encoding the corpus through the embedder.
// A freshly built index is attached to the corpus (best effort, the
// corpus may have been rebuilt meanwhile) and persisted to disk.
func (e *Engine) ensureSemantic(ctx context.Context, idx *corpus.Index) (*corpus.SemanticIndex, error) {
	modelID := e.embedder.Model()

	if idx.Semantic != nil && idx.Semantic.ModelID == modelID {
		return idx.Semantic, nil
	}

	if e.disk != nil {
		if matrix, err := e.disk.Load(modelID, len(idx.Songs)); err == nil {
			sem := &corpus.SemanticIndex{
				ModelID:   modelID,
				Dimension: e.embedder.Dimension(),
				Matrix:    matrix,
			}
			_ = e.corpus.AttachSemantic(idx, sem)
			return sem, nil
		}
	}

	sem, err := e.buildSemantic(ctx, idx, modelID)
	if err != nil {
		return nil, err
	}

	if e.disk != nil {
		if err := e.disk.Store(modelID, sem.Matrix); err != nil {
			return nil, fmt.Errorf("failed to persist semantic index: %w", err)
		}
	}
	_ = e.corpus.AttachSemantic(idx, sem)
	return sem, nil
}

// buildSemantic encodes every song's cleaned lyrics in fixed-size
// batches. Batches run concurrently but bounded, and each batch writes
// into its own pre-allocated matrix slots, so peak memory stays
// proportional to the corpus, not the concurrency.
func (e *Engine) buildSemantic(ctx context.Context, idx *corpus.Index, modelID string) (*corpus.SemanticIndex, error) {
	texts := make([]string, len(idx.Songs))
	for i := range idx.Songs {
		text := idx.Songs[i].LyricsCleaned
		if text == "" {
			// Embedders reject empty input; fall back to the title so
			// the row stays aligned with the song list.
			text = idx.Songs[i].Title
		}
		texts[i] = text
	}

	matrix := make([][]float32, len(texts))
	batchSize := e.cfg.EmbedBatchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		g.Go(func() error {
			embs, err := e.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
			}
			for i, emb := range embs {
				matrix[start+i] = emb.Vector
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &corpus.SemanticIndex{
		ModelID:   modelID,
		Dimension: e.embedder.Dimension(),
		Matrix:    matrix,
	}, nil
}

// embedQuery maps cleaned query text into the index vector space.
func (e *Engine) embedQuery(ctx context.Context, cleaned string) ([]float32, error) {
	emb, err := e.embedder.Embed(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}
	return emb.Vector, nil
}

// semanticSimilarities computes cosine similarity between the query
// vector and every row of the semantic index.
func semanticSimilarities(query []float32, sem *corpus.SemanticIndex) []float64 {
	sims := make([]float64, len(sem.Matrix))
	for i, row := range sem.Matrix {
		sims[i] = cosineSimilarity(query, row)
	}
	return sims
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RebuildSemanticIndex drops any persisted semantic index for modelID
// and re-encodes the corpus. Used after new songs are ingested.
func (e *Engine) RebuildSemanticIndex(ctx context.Context, modelID string) error {
	if modelID == "" {
		modelID = e.embedder.Model()
	}
	// The engine can only produce vectors from its configured embedder.
	// Persisting those under another model id would hand later
	// processes a cache hit from the wrong vector space.
	if modelID != e.embedder.Model() {
		return fmt.Errorf("embedding model %q is not loaded (active model is %q)", modelID, e.embedder.Model())
	}
	if e.disk != nil {
		if err := e.disk.Invalidate(modelID); err != nil {
			return err
		}
	}

	idx, err := e.corpus.Snapshot()
	if err != nil {
		return err
	}

	sem, err := e.buildSemantic(ctx, idx, modelID)
	if err != nil {
		return err
	}
	if e.disk != nil {
		if err := e.disk.Store(modelID, sem.Matrix); err != nil {
			return fmt.Errorf("failed to persist semantic index: %w", err)
		}
	}
	if err := e.corpus.AttachSemantic(idx, sem); err != nil {
		return err
	}

	e.purgeCache()
	return nil
}
