package corpus

import (
	"math"
	"sort"
	"strings"

	"github.com/dshills/lyricmatch/internal/textnorm"
)

// Lexical index defaults. Terms must appear in at least MinDocFreq
// documents and at most MaxDocRatio of all documents to enter the
// vocabulary, which drops typos and boilerplate alike.
const (
	DefaultNGramMin      = 1
	DefaultNGramMax      = 3
	DefaultMinDocFreq    = 2
	DefaultMaxDocRatio   = 0.8
	DefaultMaxVocabulary = 5000
)

// LexicalConfig controls TF-IDF vocabulary fitting.
type LexicalConfig struct {
	NGramMin      int
	NGramMax      int
	MinDocFreq    int
	MaxDocRatio   float64
	MaxVocabulary int
}

// DefaultLexicalConfig returns the standard fitting parameters.
func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{
		NGramMin:      DefaultNGramMin,
		NGramMax:      DefaultNGramMax,
		MinDocFreq:    DefaultMinDocFreq,
		MaxDocRatio:   DefaultMaxDocRatio,
		MaxVocabulary: DefaultMaxVocabulary,
	}
}

func (c *LexicalConfig) normalize() {
	if c.NGramMin <= 0 {
		c.NGramMin = DefaultNGramMin
	}
	if c.NGramMax < c.NGramMin {
		c.NGramMax = c.NGramMin
	}
	if c.MinDocFreq <= 0 {
		c.MinDocFreq = DefaultMinDocFreq
	}
	if c.MaxDocRatio <= 0 || c.MaxDocRatio > 1 {
		c.MaxDocRatio = DefaultMaxDocRatio
	}
	if c.MaxVocabulary <= 0 {
		c.MaxVocabulary = DefaultMaxVocabulary
	}
}

// sparseEntry is one non-zero component of a term-weight vector.
type sparseEntry struct {
	term   int
	weight float64
}

// LexicalIndex is a fitted TF-IDF model plus the l2-normalized
// term-weight row for every song, aligned by position with the
// corpus song list. Immutable after fitting.
type LexicalIndex struct {
	vocabulary map[string]int // term -> column
	idf        []float64      // per column
	rows       [][]sparseEntry
	cfg        LexicalConfig
}

// fitLexical builds the vocabulary, IDF weights, and document rows for
// the given cleaned documents.
func fitLexical(docs []string, cfg LexicalConfig) *LexicalIndex {
	cfg.normalize()

	// First pass: term counts per document plus document frequencies
	docTerms := make([]map[string]int, len(docs))
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)
	for i, doc := range docs {
		counts := termCounts(doc, cfg.NGramMin, cfg.NGramMax)
		docTerms[i] = counts
		for term, n := range counts {
			docFreq[term]++
			totalFreq[term] += n
		}
	}

	// Filter by document frequency bounds
	maxDF := int(cfg.MaxDocRatio * float64(len(docs)))
	if maxDF < 1 {
		maxDF = 1
	}
	kept := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= cfg.MinDocFreq && df <= maxDF {
			kept = append(kept, term)
		}
	}

	// Cap vocabulary at the most frequent terms; alphabetical
	// tie-break keeps the fit deterministic
	sort.Slice(kept, func(i, j int) bool {
		if totalFreq[kept[i]] != totalFreq[kept[j]] {
			return totalFreq[kept[i]] > totalFreq[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if len(kept) > cfg.MaxVocabulary {
		kept = kept[:cfg.MaxVocabulary]
	}
	sort.Strings(kept)

	vocab := make(map[string]int, len(kept))
	for i, term := range kept {
		vocab[term] = i
	}

	// Smoothed IDF: ln((1+N)/(1+df)) + 1
	idf := make([]float64, len(kept))
	n := float64(len(docs))
	for i, term := range kept {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	idx := &LexicalIndex{
		vocabulary: vocab,
		idf:        idf,
		cfg:        cfg,
	}

	idx.rows = make([][]sparseEntry, len(docs))
	for i, counts := range docTerms {
		idx.rows[i] = idx.vectorizeCounts(counts)
	}

	return idx
}

// Vectorize projects query text through the fitted vocabulary into an
// l2-normalized sparse vector. Out-of-vocabulary terms contribute
// nothing.
func (li *LexicalIndex) Vectorize(cleaned string) []sparseEntry {
	return li.vectorizeCounts(termCounts(cleaned, li.cfg.NGramMin, li.cfg.NGramMax))
}

func (li *LexicalIndex) vectorizeCounts(counts map[string]int) []sparseEntry {
	entries := make([]sparseEntry, 0, len(counts))
	for term, n := range counts {
		col, ok := li.vocabulary[term]
		if !ok {
			continue
		}
		entries = append(entries, sparseEntry{term: col, weight: float64(n) * li.idf[col]})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].term < entries[j].term })

	var norm float64
	for _, e := range entries {
		norm += e.weight * e.weight
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range entries {
			entries[i].weight /= norm
		}
	}
	return entries
}

// Similarities returns the cosine similarity between the query vector
// and every document row. Rows and query are both unit length, so
// cosine reduces to a sparse dot product.
func (li *LexicalIndex) Similarities(query []sparseEntry) []float64 {
	sims := make([]float64, len(li.rows))
	if len(query) == 0 {
		return sims
	}
	for i, row := range li.rows {
		sims[i] = sparseDot(query, row)
	}
	return sims
}

// VocabularySize reports the number of fitted terms.
func (li *LexicalIndex) VocabularySize() int {
	return len(li.vocabulary)
}

// RowCount reports the number of indexed documents.
func (li *LexicalIndex) RowCount() int {
	return len(li.rows)
}

func sparseDot(a, b []sparseEntry) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].term == b[j].term:
			dot += a[i].weight * b[j].weight
			i++
			j++
		case a[i].term < b[j].term:
			i++
		default:
			j++
		}
	}
	return dot
}

// termCounts tokenizes cleaned text and counts n-grams in the
// configured range.
func termCounts(cleaned string, nMin, nMax int) map[string]int {
	tokens := textnorm.Tokenize(cleaned)
	counts := make(map[string]int)
	for n := nMin; n <= nMax; n++ {
		if n <= 0 || n > len(tokens) {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return counts
}
