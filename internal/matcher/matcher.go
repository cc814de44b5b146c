package matcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/lyricmatch/internal/corpus"
	"github.com/dshills/lyricmatch/internal/embedder"
	"github.com/dshills/lyricmatch/internal/textnorm"
	"github.com/dshills/lyricmatch/internal/veccache"
	"github.com/dshills/lyricmatch/pkg/types"
)

// Engine defaults.
const (
	DefaultSimilarityThreshold = 0.25
	// Semantic scores are denser than TF-IDF scores, so the semantic
	// bar sits at 80% of the lexical threshold.
	DefaultSemanticThresholdRatio = 0.8
	DefaultTopK                   = 5
	DefaultLexicalPrimaryWeight   = 0.6
	DefaultHybridPrimaryWeight    = 0.7
	DefaultEmbedBatchSize         = 32
	defaultResponseCacheSize      = 1000
)

// Config tunes the matching engine. Zero values select the defaults.
type Config struct {
	SimilarityThreshold    float64
	SemanticThresholdRatio float64
	TopK                   int
	LexicalPrimaryWeight   float64
	HybridPrimaryWeight    float64
	UseFuzzy               bool
	EmbedBatchSize         int
	LexicalBands           Bands
	SemanticBands          Bands
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:    DefaultSimilarityThreshold,
		SemanticThresholdRatio: DefaultSemanticThresholdRatio,
		TopK:                   DefaultTopK,
		LexicalPrimaryWeight:   DefaultLexicalPrimaryWeight,
		HybridPrimaryWeight:    DefaultHybridPrimaryWeight,
		UseFuzzy:               true,
		EmbedBatchSize:         DefaultEmbedBatchSize,
		LexicalBands:           DefaultLexicalBands(),
		SemanticBands:          DefaultSemanticBands(),
	}
}

func (c *Config) normalize() {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.SemanticThresholdRatio <= 0 {
		c.SemanticThresholdRatio = DefaultSemanticThresholdRatio
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.LexicalPrimaryWeight <= 0 {
		c.LexicalPrimaryWeight = DefaultLexicalPrimaryWeight
	}
	if c.HybridPrimaryWeight <= 0 {
		c.HybridPrimaryWeight = DefaultHybridPrimaryWeight
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.LexicalBands == (Bands{}) {
		c.LexicalBands = DefaultLexicalBands()
	}
	if c.SemanticBands == (Bands{}) {
		c.SemanticBands = DefaultSemanticBands()
	}
}

// Engine turns a transcript into a ranked list of song candidates by
// fusing lexical, semantic, and fuzzy similarity signals.
type Engine struct {
	corpus   *corpus.Corpus
	embedder embedder.Embedder
	disk     *veccache.Cache
	cfg      Config

	respCache *lru.Cache[[32]byte, []types.MatchResult]
}

// New creates an engine over a built corpus. disk may be nil to skip
// on-disk semantic index caching.
func New(c *corpus.Corpus, emb embedder.Embedder, disk *veccache.Cache, cfg Config) *Engine {
	cfg.normalize()

	cache, err := lru.New[[32]byte, []types.MatchResult](defaultResponseCacheSize)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create response cache: %v", err))
	}

	return &Engine{
		corpus:    c,
		embedder:  emb,
		disk:      disk,
		cfg:       cfg,
		respCache: cache,
	}
}

// Model reports the embedding model identity the engine runs on.
func (e *Engine) Model() string {
	return e.embedder.Model()
}

// Match runs one query through the selected engine mode and returns a
// ranked, sanitized result list of at most topK entries.
//
// topK <= 0 selects the configured default. hybridWeight applies only
// to hybrid mode and must be in [0, 1]; 0 is valid and means the
// fused score is pure fuzzy. NaN selects the configured default. An
// empty (or all-noise) query returns an empty list, not an error.
// When the embedding collaborator is down, semantic and hybrid
// matching fail with types.ErrEmbeddingUnavailable; the caller decides
// whether to fall back to lexical matching.
func (e *Engine) Match(ctx context.Context, query string, mode types.EngineMode, topK int, hybridWeight float64) ([]types.MatchResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unsupported engine mode: %s", mode)
	}
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	if math.IsNaN(hybridWeight) {
		hybridWeight = e.cfg.HybridPrimaryWeight
	}
	if hybridWeight < 0 || hybridWeight > 1 {
		return nil, fmt.Errorf("hybrid weight %f out of range [0,1]", hybridWeight)
	}

	cleaned := textnorm.Clean(query)
	if cleaned == "" {
		return []types.MatchResult{}, nil
	}

	idx, err := e.corpus.Snapshot()
	if err != nil {
		return nil, err
	}

	key := e.cacheKey(idx, cleaned, mode, topK, hybridWeight)
	if cached, ok := e.respCache.Get(key); ok {
		return copyResults(cached), nil
	}

	var results []types.MatchResult
	switch mode {
	case types.ModeLexical:
		results = e.matchLexical(idx, cleaned, topK)
	case types.ModeSemantic:
		results, err = e.matchSemantic(ctx, idx, cleaned, topK)
	case types.ModeHybrid:
		results, err = e.matchHybrid(ctx, idx, cleaned, topK, hybridWeight)
	}
	if err != nil {
		return nil, err
	}

	addOverlapDetails(results, idx, cleaned)
	e.respCache.Add(key, copyResults(results))
	return results, nil
}

// matchLexical scores the query against the TF-IDF index and refines
// the shortlist with fuzzy metrics.
func (e *Engine) matchLexical(idx *corpus.Index, cleaned string, topK int) []types.MatchResult {
	sims := idx.Lexical.Similarities(idx.Lexical.Vectorize(cleaned))

	// Fetch extra candidates: fuzzy refinement can reorder
	shortlist := topCandidates(idx, sims, e.cfg.SimilarityThreshold, topK*2)

	matchType := types.MatchTypeLexical
	if e.cfg.UseFuzzy {
		matchType = types.MatchTypeLexicalFuzzy
		for i := range shortlist {
			c := &shortlist[i]
			c.FuzzyScore = types.Float64Ptr(fuzzyScore(cleaned, idx.Songs[songPos(idx, c.SongID)].LyricsCleaned))
		}
		shortlist = fuse(shortlist, e.cfg.LexicalPrimaryWeight, topK)
	} else if len(shortlist) > topK {
		shortlist = shortlist[:topK]
	}

	for i := range shortlist {
		shortlist[i].MatchType = matchType
	}
	return finalize(shortlist, e.cfg.LexicalBands)
}

// matchSemantic scores the query against the dense index only.
func (e *Engine) matchSemantic(ctx context.Context, idx *corpus.Index, cleaned string, topK int) ([]types.MatchResult, error) {
	sims, err := e.semanticSims(ctx, idx, cleaned)
	if err != nil {
		return nil, err
	}

	threshold := e.cfg.SimilarityThreshold * e.cfg.SemanticThresholdRatio
	shortlist := topCandidates(idx, sims, threshold, topK)
	for i := range shortlist {
		shortlist[i].SemanticScore = types.Float64Ptr(shortlist[i].FinalScore)
		shortlist[i].LexicalScore = nil
		shortlist[i].MatchType = types.MatchTypeSemantic
	}
	return finalize(shortlist, e.cfg.SemanticBands), nil
}

// matchHybrid fuses semantic similarity with fuzzy refinement.
func (e *Engine) matchHybrid(ctx context.Context, idx *corpus.Index, cleaned string, topK int, weight float64) ([]types.MatchResult, error) {
	sims, err := e.semanticSims(ctx, idx, cleaned)
	if err != nil {
		return nil, err
	}

	threshold := e.cfg.SimilarityThreshold * e.cfg.SemanticThresholdRatio
	shortlist := topCandidates(idx, sims, threshold, topK*2)
	for i := range shortlist {
		c := &shortlist[i]
		c.SemanticScore = types.Float64Ptr(c.FinalScore)
		c.LexicalScore = nil
		c.FuzzyScore = types.Float64Ptr(fuzzyScore(cleaned, idx.Songs[songPos(idx, c.SongID)].LyricsCleaned))
		c.MatchType = types.MatchTypeHybrid
	}

	shortlist = fuse(shortlist, weight, topK)
	return finalize(shortlist, e.cfg.SemanticBands), nil
}

func (e *Engine) semanticSims(ctx context.Context, idx *corpus.Index, cleaned string) ([]float64, error) {
	sem, err := e.ensureSemantic(ctx, idx)
	if err != nil {
		return nil, err
	}
	queryVec, err := e.embedQuery(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	return semanticSimilarities(queryVec, sem), nil
}

// topCandidates selects rows meeting the threshold, sorted by score
// descending with corpus insertion order breaking ties. Below-threshold
// rows are dropped entirely, never scored as zero.
func topCandidates(idx *corpus.Index, sims []float64, threshold float64, limit int) []types.MatchResult {
	positions := make([]int, 0, len(sims))
	for i, s := range sims {
		if s >= threshold {
			positions = append(positions, i)
		}
	}

	sort.SliceStable(positions, func(a, b int) bool {
		return sims[positions[a]] > sims[positions[b]]
	})
	if len(positions) > limit {
		positions = positions[:limit]
	}

	results := make([]types.MatchResult, len(positions))
	for i, pos := range positions {
		song := &idx.Songs[pos]
		score := sims[pos]
		results[i] = types.MatchResult{
			SongID:       song.ID,
			Artist:       song.Artist,
			Title:        song.Title,
			Album:        song.Album,
			Year:         song.Year,
			LexicalScore: types.Float64Ptr(score),
			FinalScore:   score,
		}
	}
	return results
}

// addOverlapDetails annotates results with word-overlap statistics
// between the query and each candidate's lyrics.
func addOverlapDetails(results []types.MatchResult, idx *corpus.Index, cleaned string) {
	queryWords := textnorm.WordCount(cleaned)
	for i := range results {
		r := &results[i]
		pos := songPos(idx, r.SongID)
		if pos < 0 {
			continue
		}
		song := &idx.Songs[pos]
		common, pct := textnorm.Overlap(cleaned, song.LyricsCleaned)
		r.QueryWordCount = queryWords
		r.SongWordCount = song.WordCount
		r.CommonWordCount = common
		r.WordOverlapPct = pct
	}
}

// songPos finds the corpus position for a song id. Corpus order is id
// order in practice, but the lookup stays correct either way.
func songPos(idx *corpus.Index, id int64) int {
	for i := range idx.Songs {
		if idx.Songs[i].ID == id {
			return i
		}
	}
	return -1
}

// SearchPhrase returns songs whose cleaned lyrics contain the exact
// cleaned phrase. Linear scan; fine at corpus scale.
func (e *Engine) SearchPhrase(phrase string) ([]types.MatchResult, error) {
	cleaned := textnorm.Clean(phrase)
	if cleaned == "" {
		return []types.MatchResult{}, nil
	}

	idx, err := e.corpus.Snapshot()
	if err != nil {
		return nil, err
	}

	var results []types.MatchResult
	for i := range idx.Songs {
		song := &idx.Songs[i]
		if strings.Contains(song.LyricsCleaned, cleaned) {
			results = append(results, types.MatchResult{
				SongID:    song.ID,
				Artist:    song.Artist,
				Title:     song.Title,
				Album:     song.Album,
				Year:      song.Year,
				Rank:      len(results) + 1,
				MatchType: "exact_phrase",
				// Phrase containment is binary; report full confidence
				FinalScore: 1,
				Confidence: ConfidenceVeryHigh,
			})
		}
	}
	if results == nil {
		results = []types.MatchResult{}
	}
	return results, nil
}

// Rebuild refits the corpus from the store, invalidates the semantic
// disk cache for the current model, and purges the response cache.
// Called when new songs have been ingested.
func (e *Engine) Rebuild(ctx context.Context) error {
	if err := e.corpus.Rebuild(ctx); err != nil {
		return err
	}
	if e.disk != nil {
		if err := e.disk.Invalidate(e.embedder.Model()); err != nil {
			return err
		}
	}
	e.purgeCache()
	return nil
}

func (e *Engine) purgeCache() {
	e.respCache.Purge()
}

// cacheKey hashes the query and engine selection together with the
// snapshot generation, so a rebuild naturally misses old entries. The
// generation never repeats, unlike a snapshot address, so a collected
// snapshot cannot alias a live one.
func (e *Engine) cacheKey(idx *corpus.Index, cleaned string, mode types.EngineMode, topK int, weight float64) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%d|%s|%s|%d|%.4f", idx.Generation(), cleaned, mode, topK, weight)
	return sha256.Sum256([]byte(data.String()))
}

func copyResults(src []types.MatchResult) []types.MatchResult {
	dst := make([]types.MatchResult, len(src))
	copy(dst, src)
	for i := range dst {
		// Pointer scores get their own cells so callers cannot mutate
		// cached entries
		dst[i].LexicalScore = clonePtr(dst[i].LexicalScore)
		dst[i].SemanticScore = clonePtr(dst[i].SemanticScore)
		dst[i].FuzzyScore = clonePtr(dst[i].FuzzyScore)
	}
	return dst
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
