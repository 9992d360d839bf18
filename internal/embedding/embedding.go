package embedding

import (
	"fmt"

	"docdex/internal/config"
	"docdex/internal/rag/interfaces"
)

// Provider names accepted in the embedding configuration.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// New builds the configured embedding model. The returned model is the only
// place embedding vectors are ever produced; no other component computes or
// accepts vectors.
func New(cfg *config.EmbeddingConfig) (interfaces.EmbeddingModel, error) {
	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	case ProviderOpenAI:
		return NewOpenAIModel(cfg.APIKey, cfg.Model)
	case ProviderGoogle:
		return NewGoogleModel(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
