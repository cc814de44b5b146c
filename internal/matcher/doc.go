// Package matcher is the core matching engine. It ranks corpus songs
// against a query transcript in three modes: lexical (TF-IDF over
// word n-grams, refined with fuzzy string ratios), semantic (dense
// embedding cosine similarity), and hybrid (semantic fused with
// fuzzy). Results below the mode's similarity threshold are dropped,
// survivors are fused, ranked, labeled with a confidence band, and
// annotated with word-overlap details.
//
// The engine never mutates the corpus. It reads one immutable snapshot
// per query, and caches finished responses keyed by query, mode, and
// snapshot identity so a rebuild naturally invalidates stale entries.
package matcher
