package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalize())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Matching.SimilarityThreshold)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 4, cfg.Jobs.PoolSize)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := `
[database]
path = "` + filepath.Join(dir, "songs.db") + `"

[matching]
similarity_threshold = 0.4
top_k = 10

[embedding]
provider = "jina"
model = "jina-embeddings-v3"

[jobs]
pool_size = 8
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Matching.SimilarityThreshold)
	assert.Equal(t, 10, cfg.Matching.TopK)
	assert.Equal(t, "jina", cfg.Embedding.Provider)
	assert.Equal(t, 8, cfg.Jobs.PoolSize)

	// Untouched sections keep their defaults
	assert.Equal(t, 0.7, cfg.Matching.HybridWeight)
	assert.True(t, cfg.Matching.UseFuzzy)
}

func TestLoadExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "~/lyricmatch/songs.db"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "lyricmatch", "songs.db"), cfg.Database.Path)
	assert.True(t, filepath.IsAbs(cfg.Cache.VectorDir))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Matching.SimilarityThreshold = 0 }},
		{"threshold over one", func(c *Config) { c.Matching.SimilarityThreshold = 1.5 }},
		{"zero top_k", func(c *Config) { c.Matching.TopK = 0 }},
		{"negative hybrid weight", func(c *Config) { c.Matching.HybridWeight = -0.1 }},
		{"non-descending bands", func(c *Config) { c.Matching.LexicalBands.High = 0.9 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert-as-a-service" }},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"zero pool size", func(c *Config) { c.Jobs.PoolSize = 0 }},
		{"empty db path", func(c *Config) { c.Database.Path = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[matching\nbroken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
