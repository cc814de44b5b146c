package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/lyricmatch/internal/audio"
	"github.com/dshills/lyricmatch/internal/config"
	"github.com/dshills/lyricmatch/internal/corpus"
	"github.com/dshills/lyricmatch/internal/embedder"
	"github.com/dshills/lyricmatch/internal/jobs"
	"github.com/dshills/lyricmatch/internal/matcher"
	"github.com/dshills/lyricmatch/internal/store"
	"github.com/dshills/lyricmatch/internal/tier"
	"github.com/dshills/lyricmatch/internal/transcribe"
	"github.com/dshills/lyricmatch/internal/veccache"
)

const (
	// ServerName is the MCP server name
	ServerName = "lyricmatch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp   *server.MCPServer
	store store.Store
	corp  *corpus.Corpus
	eng   *matcher.Engine
	gate  *tier.Gate
	orch  *jobs.Orchestrator
}

// NewServer wires the full pipeline from configuration: song store,
// corpus, embedder, matching engine, tier gate, and job orchestrator.
func NewServer(cfg *config.Config) (*Server, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	corp := corpus.New(st, corpus.DefaultLexicalConfig())
	if err := corp.Build(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to build corpus: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	disk, err := veccache.New(cfg.Cache.VectorDir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize vector cache: %w", err)
	}

	engCfg := matcher.DefaultConfig()
	engCfg.SimilarityThreshold = cfg.Matching.SimilarityThreshold
	engCfg.SemanticThresholdRatio = cfg.Matching.SemanticThresholdRatio
	engCfg.TopK = cfg.Matching.TopK
	engCfg.LexicalPrimaryWeight = cfg.Matching.LexicalWeight
	engCfg.HybridPrimaryWeight = cfg.Matching.HybridWeight
	engCfg.UseFuzzy = cfg.Matching.UseFuzzy
	engCfg.EmbedBatchSize = cfg.Embedding.BatchSize
	engCfg.LexicalBands = bandsFromConfig(cfg.Matching.LexicalBands)
	engCfg.SemanticBands = bandsFromConfig(cfg.Matching.SemanticBands)

	eng := matcher.New(corp, emb, disk, engCfg)

	gate := tier.NewGate()
	orch := jobs.New(gate, tier.NewQuota(),
		&audio.FileChecker{},
		transcribe.NewWhisperCLI("", ""),
		eng,
		jobs.Config{
			PoolSize:      cfg.Jobs.PoolSize,
			StageTimeout:  time.Duration(cfg.Jobs.StageTimeoutSeconds) * time.Second,
			Retention:     time.Duration(cfg.Jobs.RetentionMinutes) * time.Minute,
			SweepInterval: time.Duration(cfg.Jobs.SweepIntervalMinutes) * time.Minute,
		})

	s := &Server{
		mcp:   server.NewMCPServer(ServerName, ServerVersion),
		store: st,
		corp:  corp,
		eng:   eng,
		gate:  gate,
		orch:  orch,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.orch.Close()
		_ = s.store.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(identifySongTool(), s.handleIdentifySong)
	s.mcp.AddTool(getJobStatusTool(), s.handleGetJobStatus)
	s.mcp.AddTool(matchLyricsTool(), s.handleMatchLyrics)
	s.mcp.AddTool(searchPhraseTool(), s.handleSearchPhrase)
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
	s.mcp.AddTool(listTiersTool(), s.handleListTiers)
}

func bandsFromConfig(e config.BandEdges) matcher.Bands {
	return matcher.Bands{VeryHigh: e.VeryHigh, High: e.High, Medium: e.Medium, Low: e.Low}
}
