package usecase

import (
	"fmt"
	"time"

	providerdomain "tonedraft-backend/internal/provider/domain"
	"tonedraft-backend/internal/provider/repository"
	"tonedraft-backend/pkg/crypto"
	"tonedraft-backend/pkg/llm"
)

// Resolver turns a user's active provider config into a ready llm.Provider,
// decrypting the stored API key on the way. The plaintext key lives only for
// the duration of the call.
type Resolver struct {
	repo      repository.ProviderRepository
	masterKey string
	timeout   time.Duration
}

func NewResolver(repo repository.ProviderRepository, masterKey string, timeout time.Duration) *Resolver {
	return &Resolver{repo: repo, masterKey: masterKey, timeout: timeout}
}

// ResolveActive returns the provider adapter plus the config it came from.
// No active config is a terminal condition: the user has to fix their setup.
func (r *Resolver) ResolveActive(userID string) (llm.Provider, *providerdomain.LLMProviderConfig, error) {
	cfg, err := r.repo.FindActiveByUserID(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load provider config: %w", err)
	}
	if cfg == nil {
		return nil, nil, fmt.Errorf("no active LLM provider configured for user %s", userID)
	}

	apiKey := ""
	if cfg.EncryptedAPIKey != "" {
		apiKey, err = crypto.Decrypt(cfg.EncryptedAPIKey, r.masterKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decrypt provider api key: %w", err)
		}
	}

	provider, err := llm.New(llm.Config{
		Type:    llm.ProviderType(cfg.ProviderType),
		Model:   cfg.ModelName,
		APIKey:  apiKey,
		BaseURL: cfg.BaseURL,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	return provider, cfg, nil
}
