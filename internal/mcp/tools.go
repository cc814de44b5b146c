package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/lyricmatch/internal/jobs"
	"github.com/dshills/lyricmatch/internal/tier"
	"github.com/dshills/lyricmatch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeTierDenied    = -32001 // Tier validation or quota failure
	ErrorCodeJobNotFound   = -32002 // Unknown job id
	ErrorCodeEmptyQuery    = -32003 // Lyrics parameter is empty
)

// handleIdentifySong handles the identify_song tool invocation
func (s *Server) handleIdentifySong(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	audioPath, ok := args["audio_path"].(string)
	if !ok || audioPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "audio_path parameter is required", map[string]interface{}{
			"param":  "audio_path",
			"reason": "missing or empty",
		})
	}

	tierName, ok := args["tier"].(string)
	if !ok || tierName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "tier parameter is required", map[string]interface{}{
			"param":  "tier",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 || topK > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 50", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	req := jobs.SubmitRequest{
		Caller:       getStringDefault(args, "caller", "anonymous"),
		Tier:         tierName,
		AudioPath:    audioPath,
		UploadBytes:  fileSize(audioPath),
		LanguageHint: getStringDefault(args, "language_hint", ""),
		Config: types.EngineConfig{
			Mode:                 types.EngineMode(getStringDefault(args, "engine_mode", string(types.ModeLexical))),
			TranscriptionQuality: getStringDefault(args, "transcription_quality", ""),
			EmbeddingModel:       getStringDefault(args, "embedding_model", ""),
			// NaN means "server default"; an explicit 0 is a valid
			// pure-fuzzy weight and must not be swallowed
			HybridWeight: getFloatDefault(args, "hybrid_weight", math.NaN()),
			TopK:         topK,
		},
	}

	jobID, err := s.orch.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, tier.ErrValidation) {
			return nil, newMCPError(ErrorCodeTierDenied, "request rejected by tier gate", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if errors.Is(err, jobs.ErrModelUnavailable) {
			return nil, newMCPError(ErrorCodeInvalidParams, "requested embedding model is not loaded", map[string]interface{}{
				"param": "embedding_model",
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "submission failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"job_id": jobID,
		"state":  string(types.StateQueued),
	})), nil
}

// handleGetJobStatus handles the get_job_status tool invocation
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	jobID, ok := args["job_id"].(string)
	if !ok || jobID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "job_id parameter is required", map[string]interface{}{
			"param":  "job_id",
			"reason": "missing or empty",
		})
	}

	job, err := s.orch.Status(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return nil, newMCPError(ErrorCodeJobNotFound, "job not found", map[string]interface{}{
				"job_id": jobID,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to get job status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"job_id":     job.ID,
		"state":      string(job.State),
		"progress":   job.Progress,
		"tier":       job.Tier,
		"created_at": job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updated_at": job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if job.Transcript != "" {
		response["transcript"] = job.Transcript
		response["language"] = job.Language
		response["language_confidence"] = job.LanguageConfidence
	}
	if job.State == types.StateComplete {
		response["results"] = formatResults(job.Results)
	}
	if job.Err != "" {
		response["error"] = job.Err
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleMatchLyrics handles the match_lyrics tool invocation
func (s *Server) handleMatchLyrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	lyrics, ok := args["lyrics"].(string)
	if !ok || lyrics == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "lyrics parameter is required and cannot be empty", map[string]interface{}{
			"param":  "lyrics",
			"reason": "missing or empty",
		})
	}

	mode := types.EngineMode(getStringDefault(args, "engine_mode", string(types.ModeLexical)))
	if !mode.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid engine_mode", map[string]interface{}{
			"param":   "engine_mode",
			"value":   string(mode),
			"allowed": []string{"lexical", "semantic", "hybrid"},
		})
	}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 || topK > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 50", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	results, err := s.eng.Match(ctx, lyrics, mode, topK, getFloatDefault(args, "hybrid_weight", math.NaN()))
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			return nil, newMCPError(ErrorCodeInternalError, "embedding backend unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "matching failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"match_count": len(results),
		"results":     formatResults(results),
	})), nil
}

// handleSearchPhrase handles the search_phrase tool invocation
func (s *Server) handleSearchPhrase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	phrase, ok := args["phrase"].(string)
	if !ok || phrase == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "phrase parameter is required and cannot be empty", map[string]interface{}{
			"param":  "phrase",
			"reason": "missing or empty",
		})
	}

	results, err := s.eng.SearchPhrase(phrase)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "phrase search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"match_count": len(results),
		"results":     formatResults(results),
	})), nil
}

// handleRebuildIndex handles the rebuild_index tool invocation
func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.eng.Rebuild(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	idx, err := s.corp.Snapshot()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"rebuilt":    true,
		"song_count": len(idx.Songs),
	})), nil
}

// handleListTiers handles the list_tiers tool invocation
func (s *Server) handleListTiers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tiers := make([]map[string]interface{}, 0)
	for _, name := range s.gate.Names() {
		catalog, _ := s.gate.Lookup(name)

		engines := make([]string, len(catalog.Engines))
		for i, e := range catalog.Engines {
			engines[i] = string(e)
		}

		entry := map[string]interface{}{
			"name":                    catalog.Name,
			"transcription_qualities": catalog.TranscriptionQualities,
			"engines":                 engines,
			"max_upload_bytes":        catalog.MaxUploadBytes,
		}
		if len(catalog.EmbeddingModels) > 0 {
			entry["embedding_models"] = catalog.EmbeddingModels
		}
		if catalog.DailyLimit > 0 {
			entry["daily_limit"] = catalog.DailyLimit
		} else {
			entry["daily_limit"] = "unlimited"
		}
		tiers = append(tiers, entry)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"tiers": tiers,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatResults renders match results for the wire.
func formatResults(results []types.MatchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, len(results))
	for i, r := range results {
		entry := map[string]interface{}{
			"rank":        r.Rank,
			"song_id":     r.SongID,
			"artist":      r.Artist,
			"title":       r.Title,
			"final_score": r.FinalScore,
			"match_type":  r.MatchType,
			"confidence":  r.Confidence,
		}
		if r.Album != "" {
			entry["album"] = r.Album
		}
		if r.Year != 0 {
			entry["year"] = r.Year
		}
		if r.LexicalScore != nil {
			entry["lexical_score"] = *r.LexicalScore
		}
		if r.SemanticScore != nil {
			entry["semantic_score"] = *r.SemanticScore
		}
		if r.FuzzyScore != nil {
			entry["fuzzy_score"] = *r.FuzzyScore
		}
		if r.QueryWordCount > 0 {
			entry["word_overlap"] = map[string]interface{}{
				"query_words":  r.QueryWordCount,
				"song_words":   r.SongWordCount,
				"common_words": r.CommonWordCount,
				"overlap_pct":  r.WordOverlapPct,
			}
		}
		out[i] = entry
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// fileSize reports the clip size for tier gating, 0 when unknown.
// A missing file is caught later by the preprocessing stage.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
