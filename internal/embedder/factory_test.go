package embedder

import (
	"testing"
)

func TestNewExplicitLocal(t *testing.T) {
	emb, err := New(Config{Provider: ProviderLocal, Model: "all-MiniLM-L6-v2", CacheSize: 10})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer func() { _ = emb.Close() }()

	if emb.Provider() != ProviderLocal {
		t.Errorf("Provider() = %s, want %s", emb.Provider(), ProviderLocal)
	}
	if emb.Model() != "all-MiniLM-L6-v2" {
		t.Errorf("Model() = %s", emb.Model())
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "mystery"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestDetectProviderDefaults(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	if got := DetectProvider(); got != ProviderLocal {
		t.Errorf("DetectProvider() = %s, want %s", got, ProviderLocal)
	}

	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	if got := DetectProvider(); got != ProviderOpenAI {
		t.Errorf("DetectProvider() = %s, want %s", got, ProviderOpenAI)
	}

	t.Setenv(EnvProvider, "jina")
	if got := DetectProvider(); got != ProviderJina {
		t.Errorf("DetectProvider() = %s, want %s", got, ProviderJina)
	}
}
