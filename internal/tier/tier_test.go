package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lyricmatch/pkg/types"
)

func TestValidateFreeTier(t *testing.T) {
	g := NewGate()

	tests := []struct {
		name    string
		cfg     types.EngineConfig
		bytes   int64
		wantErr bool
	}{
		{
			name:  "lexical with base quality",
			cfg:   types.EngineConfig{Mode: types.ModeLexical, TranscriptionQuality: "base"},
			bytes: 1 << 20,
		},
		{
			name:  "empty quality uses default",
			cfg:   types.EngineConfig{Mode: types.ModeLexical},
			bytes: 1 << 20,
		},
		{
			name:    "semantic engine gated",
			cfg:     types.EngineConfig{Mode: types.ModeSemantic},
			bytes:   1 << 20,
			wantErr: true,
		},
		{
			name:    "hybrid engine gated",
			cfg:     types.EngineConfig{Mode: types.ModeHybrid},
			bytes:   1 << 20,
			wantErr: true,
		},
		{
			name:    "large quality gated",
			cfg:     types.EngineConfig{Mode: types.ModeLexical, TranscriptionQuality: "large"},
			bytes:   1 << 20,
			wantErr: true,
		},
		{
			name:    "upload over 20MB",
			cfg:     types.EngineConfig{Mode: types.ModeLexical},
			bytes:   25 << 20,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Validate(Free, tt.cfg, tt.bytes)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePremiumTier(t *testing.T) {
	g := NewGate()

	cfg := types.EngineConfig{
		Mode:                 types.ModeHybrid,
		TranscriptionQuality: "large",
		EmbeddingModel:       "all-mpnet-base-v2",
		HybridWeight:         0.7,
	}
	assert.NoError(t, g.Validate(Premium, cfg, 150<<20))

	cfg.EmbeddingModel = "made-up-model"
	assert.ErrorIs(t, g.Validate(Premium, cfg, 1<<20), ErrValidation)

	cfg.EmbeddingModel = ""
	cfg.HybridWeight = 1.2
	assert.ErrorIs(t, g.Validate(Premium, cfg, 1<<20), ErrValidation)
}

func TestValidateUnknownTierAndMode(t *testing.T) {
	g := NewGate()

	err := g.Validate("enterprise", types.EngineConfig{Mode: types.ModeLexical}, 0)
	assert.ErrorIs(t, err, ErrValidation)

	err = g.Validate(Free, types.EngineConfig{Mode: "neural"}, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGateOverrides(t *testing.T) {
	g := NewGate(Catalog{
		Name:                   Free,
		TranscriptionQualities: []string{"tiny"},
		Engines:                []types.EngineMode{types.ModeLexical, types.ModeSemantic},
		EmbeddingModels:        []string{"all-MiniLM-L6-v2"},
		MaxUploadBytes:         1 << 20,
		DailyLimit:             2,
	})

	cfg := types.EngineConfig{Mode: types.ModeSemantic, EmbeddingModel: "all-MiniLM-L6-v2"}
	assert.NoError(t, g.Validate(Free, cfg, 1<<19))

	c, ok := g.Lookup(Free)
	require.True(t, ok)
	assert.Equal(t, 2, c.DailyLimit)
}

func TestNames(t *testing.T) {
	g := NewGate()
	assert.Equal(t, []string{Free, Premium}, g.Names())
}

func TestQuotaReserve(t *testing.T) {
	q := NewQuota()
	catalog := Catalog{Name: Free, DailyLimit: 2}

	require.NoError(t, q.Reserve("alice", catalog))
	require.NoError(t, q.Reserve("alice", catalog))
	assert.ErrorIs(t, q.Reserve("alice", catalog), ErrValidation)

	// Other callers have their own counter
	assert.NoError(t, q.Reserve("bob", catalog))
	assert.Equal(t, 0, q.Remaining("alice", catalog))
	assert.Equal(t, 1, q.Remaining("bob", catalog))
}

func TestQuotaUnlimited(t *testing.T) {
	q := NewQuota()
	catalog := Catalog{Name: Premium, DailyLimit: 0}

	for i := 0; i < 100; i++ {
		require.NoError(t, q.Reserve("alice", catalog))
	}
	assert.Equal(t, -1, q.Remaining("alice", catalog))
}

func TestQuotaResetsAtDayBoundary(t *testing.T) {
	q := NewQuota()
	catalog := Catalog{Name: Free, DailyLimit: 1}

	current := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	q.now = func() time.Time { return current }

	require.NoError(t, q.Reserve("alice", catalog))
	assert.ErrorIs(t, q.Reserve("alice", catalog), ErrValidation)

	current = current.Add(2 * time.Minute) // past midnight
	assert.NoError(t, q.Reserve("alice", catalog))
}
