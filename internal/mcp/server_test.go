package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lyricmatch/internal/audio"
	"github.com/dshills/lyricmatch/internal/corpus"
	"github.com/dshills/lyricmatch/internal/embedder"
	"github.com/dshills/lyricmatch/internal/jobs"
	"github.com/dshills/lyricmatch/internal/matcher"
	"github.com/dshills/lyricmatch/internal/store"
	"github.com/dshills/lyricmatch/internal/tier"
	"github.com/dshills/lyricmatch/internal/transcribe"
	"github.com/dshills/lyricmatch/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "songs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	songs := []*types.SongRecord{
		{Artist: "Elvis Presley", Title: "Love Me Tender",
			Lyrics: "Love me tender, love me sweet, never let me go. You have made my life complete."},
		{Artist: "Queen", Title: "We Will Rock You",
			Lyrics: "Buddy you're a boy make a big noise playing in the street, we will rock you."},
		{Artist: "The Beatles", Title: "Yesterday",
			Lyrics: "Yesterday, all my troubles seemed so far away. Now it looks as though they're here to stay."},
	}
	for _, song := range songs {
		require.NoError(t, st.InsertSong(ctx, song))
	}

	lexCfg := corpus.DefaultLexicalConfig()
	lexCfg.MinDocFreq = 1
	corp := corpus.New(st, lexCfg)
	require.NoError(t, corp.Build(ctx))

	emb, err := embedder.NewLocalProvider("", nil)
	require.NoError(t, err)

	eng := matcher.New(corp, emb, nil, matcher.DefaultConfig())

	gate := tier.NewGate()
	orch := jobs.New(gate, tier.NewQuota(), &audio.FileChecker{}, transcribe.NewWhisperCLI("", ""), eng, jobs.Config{})
	t.Cleanup(func() { _ = orch.Close() })

	s := &Server{
		mcp:   server.NewMCPServer(ServerName, ServerVersion),
		store: st,
		corp:  corp,
		eng:   eng,
		gate:  gate,
		orch:  orch,
	}
	s.registerTools()
	return s
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func mcpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	return mcpErr.Code
}

func TestHandleMatchLyrics(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleMatchLyrics(context.Background(), toolRequest(map[string]interface{}{
		"lyrics": "love me tender love me sweet never let me go",
	}))
	require.NoError(t, err)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "Love Me Tender")
	assert.Contains(t, text, "Elvis Presley")
	assert.Contains(t, text, "match_count")
}

func TestHandleMatchLyricsMissingParam(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleMatchLyrics(context.Background(), toolRequest(map[string]interface{}{}))
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErrorCode(t, err))
}

func TestHandleMatchLyricsInvalidMode(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleMatchLyrics(context.Background(), toolRequest(map[string]interface{}{
		"lyrics":      "love me tender",
		"engine_mode": "quantum",
	}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErrorCode(t, err))
}

func TestHandleGetJobStatusUnknownJob(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleGetJobStatus(context.Background(), toolRequest(map[string]interface{}{
		"job_id": "no-such-job",
	}))
	assert.Equal(t, ErrorCodeJobNotFound, mcpErrorCode(t, err))
}

func TestHandleIdentifySongTierDenied(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleIdentifySong(context.Background(), toolRequest(map[string]interface{}{
		"audio_path":  "/tmp/clip.wav",
		"tier":        "free",
		"engine_mode": "semantic",
	}))
	assert.Equal(t, ErrorCodeTierDenied, mcpErrorCode(t, err))
}

func TestHandleIdentifySongSubmits(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleIdentifySong(context.Background(), toolRequest(map[string]interface{}{
		"audio_path": "/tmp/clip.wav",
		"tier":       "free",
	}))
	require.NoError(t, err)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "job_id")
	assert.Contains(t, text, "queued")
}

func TestHandleIdentifySongUnloadedEmbeddingModel(t *testing.T) {
	s := newTestServer(t)

	// The model is premium-entitled but not the one the engine runs
	_, err := s.handleIdentifySong(context.Background(), toolRequest(map[string]interface{}{
		"audio_path":      "/tmp/clip.wav",
		"tier":            "premium",
		"engine_mode":     "hybrid",
		"embedding_model": "all-mpnet-base-v2",
	}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErrorCode(t, err))
}

func TestHandleSearchPhrase(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleSearchPhrase(context.Background(), toolRequest(map[string]interface{}{
		"phrase": "never let me go",
	}))
	require.NoError(t, err)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "Love Me Tender")
	assert.Contains(t, text, "exact_phrase")

	_, err = s.handleSearchPhrase(context.Background(), toolRequest(map[string]interface{}{}))
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErrorCode(t, err))
}

func TestHandleListTiers(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleListTiers(context.Background(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"free"`)
	assert.Contains(t, text, `"premium"`)
	assert.Contains(t, text, "unlimited")
}

func TestHandleRebuildIndex(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.store.InsertSong(context.Background(), &types.SongRecord{
		Artist: "Lynyrd Skynyrd", Title: "Sweet Home Alabama",
		Lyrics: "Sweet home Alabama, where the skies are so blue.",
	}))

	result, err := s.handleRebuildIndex(context.Background(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"song_count": 4`)
}
