// Package embedder generates vector embeddings for lyric text.
//
// The matching engine treats the embedding model as a black box behind
// the Embedder interface. Two HTTP providers (Jina AI, OpenAI) cover
// hosted deployments; the local provider produces deterministic
// token-hash vectors so development and tests run without a model
// server or API key.
//
// Providers share an LRU cache keyed by content hash, and HTTP calls
// retry with exponential backoff, skipping retries once the context is
// cancelled.
package embedder
