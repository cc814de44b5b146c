package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// identifySongTool returns the tool definition for identify_song
func identifySongTool() mcp.Tool {
	return mcp.Tool{
		Name:        "identify_song",
		Description: "Submit an audio clip for asynchronous song identification",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"audio_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the audio clip to identify",
				},
				"tier": map[string]interface{}{
					"type":        "string",
					"description": "Subscription tier the request runs under",
					"enum":        []string{"free", "premium"},
				},
				"caller": map[string]interface{}{
					"type":        "string",
					"description": "Caller identity used for daily quota accounting",
				},
				"engine_mode": map[string]interface{}{
					"type":        "string",
					"description": "Matching strategy: lexical (TF-IDF + fuzzy), semantic (embeddings), or hybrid (both)",
					"enum":        []string{"lexical", "semantic", "hybrid"},
					"default":     "lexical",
				},
				"transcription_quality": map[string]interface{}{
					"type":        "string",
					"description": "Speech recognition model size (tier-gated)",
					"enum":        []string{"tiny", "base", "small", "medium", "large"},
				},
				"embedding_model": map[string]interface{}{
					"type":        "string",
					"description": "Sentence embedding model for semantic/hybrid modes (tier-gated)",
				},
				"hybrid_weight": map[string]interface{}{
					"type":        "number",
					"description": "Semantic share of the hybrid score (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of candidates to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"language_hint": map[string]interface{}{
					"type":        "string",
					"description": "ISO 639-1 language code hint for transcription",
				},
			},
			Required: []string{"audio_path", "tier"},
		},
	}
}

// getJobStatusTool returns the tool definition for get_job_status
func getJobStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_job_status",
		Description: "Query the state, progress, and results of an identification job",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job_id": map[string]interface{}{
					"type":        "string",
					"description": "Job identifier returned by identify_song",
				},
			},
			Required: []string{"job_id"},
		},
	}
}

// matchLyricsTool returns the tool definition for match_lyrics
func matchLyricsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "match_lyrics",
		Description: "Match a lyric transcript directly against the song corpus, skipping the audio pipeline",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lyrics": map[string]interface{}{
					"type":        "string",
					"description": "Lyric text to match",
				},
				"engine_mode": map[string]interface{}{
					"type":        "string",
					"description": "Matching strategy",
					"enum":        []string{"lexical", "semantic", "hybrid"},
					"default":     "lexical",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of candidates to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"hybrid_weight": map[string]interface{}{
					"type":        "number",
					"description": "Semantic share of the hybrid score (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"lyrics"},
		},
	}
}

// searchPhraseTool returns the tool definition for search_phrase
func searchPhraseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_phrase",
		Description: "Find songs whose lyrics contain an exact phrase",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"phrase": map[string]interface{}{
					"type":        "string",
					"description": "Phrase that must appear verbatim in the cleaned lyrics",
				},
			},
			Required: []string{"phrase"},
		},
	}
}

// rebuildIndexTool returns the tool definition for rebuild_index
func rebuildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild the lexical and semantic indexes after new songs are ingested",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listTiersTool returns the tool definition for list_tiers
func listTiersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tiers",
		Description: "List subscription tiers and their capability catalogs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
