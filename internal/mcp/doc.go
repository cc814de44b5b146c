// Package mcp exposes the lyric-matching engine over the Model
// Context Protocol. The server speaks MCP on stdio and registers six
// tools:
//
//	identify_song   - submit an audio clip for asynchronous
//	                  identification; returns a job id immediately
//	get_job_status  - poll a job's state, progress, transcript, and
//	                  ranked results
//	match_lyrics    - match a lyric transcript directly against the
//	                  corpus, skipping the audio pipeline
//	search_phrase   - find songs containing an exact lyric phrase
//	rebuild_index   - refit the lexical index and invalidate cached
//	                  semantic vectors after song ingestion
//	list_tiers      - describe the subscription tiers and what each
//	                  one is entitled to
//
// Tool arguments are validated here before touching the engine;
// protocol-level failures are returned as MCPError values with
// JSON-RPC error codes, while per-job failures are reported through
// the job's own error state.
//
// NewServer wires the whole pipeline from a config.Config: SQLite song
// store, corpus indexes, embedding provider, matching engine, tier
// gate, and the job orchestrator.
package mcp
