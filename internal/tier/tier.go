// Package tier gates job submissions by subscription level. Every
// request is validated against its tier's capability catalog before a
// job record is created, so callers never see a job that fails later
// on a capability it was never entitled to.
package tier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/lyricmatch/pkg/types"
)

// ErrValidation wraps every tier gating failure.
var ErrValidation = errors.New("tier validation failed")

// Tier names.
const (
	Free    = "free"
	Premium = "premium"
)

// Catalog lists what one tier is entitled to. Empty EmbeddingModels
// means the tier has no access to semantic matching at all.
type Catalog struct {
	Name                   string
	TranscriptionQualities []string
	Engines                []types.EngineMode
	EmbeddingModels        []string
	MaxUploadBytes         int64
	DailyLimit             int // 0 means unlimited
}

func defaultCatalogs() map[string]Catalog {
	return map[string]Catalog{
		Free: {
			Name:                   Free,
			TranscriptionQualities: []string{"tiny", "base"},
			Engines:                []types.EngineMode{types.ModeLexical},
			EmbeddingModels:        nil,
			MaxUploadBytes:         20 << 20,
			DailyLimit:             5,
		},
		Premium: {
			Name:                   Premium,
			TranscriptionQualities: []string{"tiny", "base", "small", "medium", "large"},
			Engines:                []types.EngineMode{types.ModeLexical, types.ModeSemantic, types.ModeHybrid},
			EmbeddingModels:        []string{"all-MiniLM-L6-v2", "all-MiniLM-L12-v2", "all-mpnet-base-v2"},
			MaxUploadBytes:         200 << 20,
			DailyLimit:             0,
		},
	}
}

// Gate validates requests against the tier catalogs.
type Gate struct {
	catalogs map[string]Catalog
}

// NewGate creates a gate with the built-in free/premium catalogs.
// overrides replace same-named catalogs, for config-driven tuning.
func NewGate(overrides ...Catalog) *Gate {
	catalogs := defaultCatalogs()
	for _, c := range overrides {
		if c.Name != "" {
			catalogs[c.Name] = c
		}
	}
	return &Gate{catalogs: catalogs}
}

// Lookup returns the catalog for a tier name.
func (g *Gate) Lookup(name string) (Catalog, bool) {
	c, ok := g.catalogs[name]
	return c, ok
}

// Names returns all known tier names, sorted.
func (g *Gate) Names() []string {
	names := make([]string, 0, len(g.catalogs))
	for name := range g.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks an engine selection and upload size against the
// named tier. Every failure wraps ErrValidation.
func (g *Gate) Validate(tierName string, cfg types.EngineConfig, uploadBytes int64) error {
	catalog, ok := g.catalogs[tierName]
	if !ok {
		return fmt.Errorf("%w: unknown tier %q", ErrValidation, tierName)
	}

	if !cfg.Mode.Valid() {
		return fmt.Errorf("%w: unknown engine mode %q", ErrValidation, cfg.Mode)
	}
	if !containsMode(catalog.Engines, cfg.Mode) {
		return fmt.Errorf("%w: engine %q not available on tier %q", ErrValidation, cfg.Mode, tierName)
	}

	if cfg.TranscriptionQuality != "" && !contains(catalog.TranscriptionQualities, cfg.TranscriptionQuality) {
		return fmt.Errorf("%w: transcription quality %q not available on tier %q", ErrValidation, cfg.TranscriptionQuality, tierName)
	}

	if cfg.Mode != types.ModeLexical {
		if len(catalog.EmbeddingModels) == 0 {
			return fmt.Errorf("%w: tier %q has no embedding model access", ErrValidation, tierName)
		}
		if cfg.EmbeddingModel != "" && !contains(catalog.EmbeddingModels, cfg.EmbeddingModel) {
			return fmt.Errorf("%w: embedding model %q not available on tier %q", ErrValidation, cfg.EmbeddingModel, tierName)
		}
	}

	if catalog.MaxUploadBytes > 0 && uploadBytes > catalog.MaxUploadBytes {
		return fmt.Errorf("%w: upload of %d bytes exceeds tier %q limit of %d", ErrValidation, uploadBytes, tierName, catalog.MaxUploadBytes)
	}

	// NaN passes: it marks "use the server default weight"
	if cfg.HybridWeight < 0 || cfg.HybridWeight > 1 {
		return fmt.Errorf("%w: hybrid weight %f out of range [0,1]", ErrValidation, cfg.HybridWeight)
	}

	return nil
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsMode(haystack []types.EngineMode, needle types.EngineMode) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
