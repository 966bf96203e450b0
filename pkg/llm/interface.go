package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider is the uniform completion contract the draft orchestrator calls.
// Implement this interface to add new providers (Gemini, Ollama, OpenRouter, ...).
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderType discriminates the wire adapter used for a configured provider.
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Config holds everything needed to construct a provider adapter. The API key
// arrives already decrypted; it is never stored on disk in the clear.
type Config struct {
	Type    ProviderType
	Model   string
	APIKey  string
	BaseURL string // ollama/openrouter endpoint override; empty means default
	Timeout time.Duration
}

// New is the factory: pick the wire adapter by provider type.
func New(cfg Config) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key is required for gemini provider")
		}
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil

	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout), nil

	case ProviderOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key is required for openrouter provider")
		}
		return NewOpenRouterProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}
