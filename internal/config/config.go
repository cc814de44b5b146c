// Package config loads and validates the engine configuration from a
// TOML file, with sensible defaults for every field so an empty file
// (or no file at all) yields a runnable configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Database contains song library storage settings.
type Database struct {
	Path string `toml:"path"`
}

// Matching contains engine thresholds and fusion weights.
type Matching struct {
	SimilarityThreshold    float64 `toml:"similarity_threshold"`
	SemanticThresholdRatio float64 `toml:"semantic_threshold_ratio"`
	TopK                   int     `toml:"top_k"`
	LexicalWeight          float64 `toml:"lexical_weight"`
	HybridWeight           float64 `toml:"hybrid_weight"`
	UseFuzzy               bool    `toml:"use_fuzzy"`

	// Lower band edges for confidence labels, per primary mode.
	LexicalBands  BandEdges `toml:"lexical_bands"`
	SemanticBands BandEdges `toml:"semantic_bands"`
}

// BandEdges holds the lower edge of each confidence band.
type BandEdges struct {
	VeryHigh float64 `toml:"very_high"`
	High     float64 `toml:"high"`
	Medium   float64 `toml:"medium"`
	Low      float64 `toml:"low"`
}

// Embedding contains embedding provider settings. The API key is
// normally taken from the environment; the file field exists for
// development setups.
type Embedding struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	CacheSize int    `toml:"cache_size"`
	BatchSize int    `toml:"batch_size"`
}

// Jobs contains orchestrator tuning.
type Jobs struct {
	PoolSize             int `toml:"pool_size"`
	StageTimeoutSeconds  int `toml:"stage_timeout_seconds"`
	RetentionMinutes     int `toml:"retention_minutes"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Cache contains on-disk cache locations.
type Cache struct {
	VectorDir string `toml:"vector_dir"`
}

// Config is the root configuration document.
type Config struct {
	Database  Database  `toml:"database"`
	Matching  Matching  `toml:"matching"`
	Embedding Embedding `toml:"embedding"`
	Jobs      Jobs      `toml:"jobs"`
	Cache     Cache     `toml:"cache"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Database: Database{
			Path: "~/.local/share/lyricmatch/songs.db",
		},
		Matching: Matching{
			SimilarityThreshold:    0.25,
			SemanticThresholdRatio: 0.8,
			TopK:                   5,
			LexicalWeight:          0.6,
			HybridWeight:           0.7,
			UseFuzzy:               true,
			LexicalBands:           BandEdges{VeryHigh: 0.7, High: 0.5, Medium: 0.3, Low: 0.2},
			SemanticBands:          BandEdges{VeryHigh: 0.75, High: 0.6, Medium: 0.45, Low: 0.3},
		},
		Embedding: Embedding{
			Provider:  "local",
			Model:     "all-MiniLM-L6-v2",
			CacheSize: 10000,
			BatchSize: 32,
		},
		Jobs: Jobs{
			PoolSize:             4,
			StageTimeoutSeconds:  300,
			RetentionMinutes:     60,
			SweepIntervalMinutes: 5,
		},
		Cache: Cache{
			VectorDir: "~/.cache/lyricmatch/vectors",
		},
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lyricmatch/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing
// file is not an error: the defaults are returned. Path fields in the
// returned config are expanded and absolute.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("lyricmatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return err
	}
	if c.Cache.VectorDir, err = expandPath(c.Cache.VectorDir); err != nil {
		return err
	}
	return nil
}

// Validate checks field ranges. It reports the first problem found.
func (c *Config) Validate() error {
	m := c.Matching
	if m.SimilarityThreshold <= 0 || m.SimilarityThreshold > 1 {
		return fmt.Errorf("matching.similarity_threshold must be in (0, 1], got %v", m.SimilarityThreshold)
	}
	if m.SemanticThresholdRatio <= 0 || m.SemanticThresholdRatio > 1 {
		return fmt.Errorf("matching.semantic_threshold_ratio must be in (0, 1], got %v", m.SemanticThresholdRatio)
	}
	if m.TopK <= 0 {
		return fmt.Errorf("matching.top_k must be positive, got %d", m.TopK)
	}
	if m.LexicalWeight < 0 || m.LexicalWeight > 1 {
		return fmt.Errorf("matching.lexical_weight must be in [0, 1], got %v", m.LexicalWeight)
	}
	if m.HybridWeight < 0 || m.HybridWeight > 1 {
		return fmt.Errorf("matching.hybrid_weight must be in [0, 1], got %v", m.HybridWeight)
	}
	for _, b := range []struct {
		name  string
		edges BandEdges
	}{
		{"matching.lexical_bands", m.LexicalBands},
		{"matching.semantic_bands", m.SemanticBands},
	} {
		if !(b.edges.VeryHigh > b.edges.High && b.edges.High > b.edges.Medium && b.edges.Medium > b.edges.Low && b.edges.Low > 0) {
			return fmt.Errorf("%s edges must be strictly descending and positive", b.name)
		}
	}

	switch c.Embedding.Provider {
	case "local", "jina", "openai":
	default:
		return fmt.Errorf("embedding.provider must be one of local, jina, openai; got %q", c.Embedding.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}

	if c.Jobs.PoolSize <= 0 {
		return fmt.Errorf("jobs.pool_size must be positive, got %d", c.Jobs.PoolSize)
	}
	if c.Jobs.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("jobs.stage_timeout_seconds must be positive, got %d", c.Jobs.StageTimeoutSeconds)
	}
	if c.Jobs.RetentionMinutes <= 0 {
		return fmt.Errorf("jobs.retention_minutes must be positive, got %d", c.Jobs.RetentionMinutes)
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
