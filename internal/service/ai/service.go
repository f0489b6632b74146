package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"aurorachat/internal/config"
	"aurorachat/internal/models"
)

// Provider is a single-turn completion backend. Complete returns the raw
// completion text, which may be empty; callers decide what an empty reply means.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the backend selected by cfg.Provider. client is the base
// HTTP client for upstream calls; nil means a default client without timeout.
// A configured system_prompt_file that cannot be read fails construction.
func NewProvider(ctx context.Context, cfg *config.Config, client *http.Client) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	provCfg, ok := cfg.Providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", cfg.Provider)
	}
	if client == nil {
		client = &http.Client{}
	}
	systemPrompt, err := SystemPrompt(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderOllama:
		return newOllamaProvider(provCfg, systemPrompt, client)
	case config.ProviderOpenAI, config.ProviderClaude, config.ProviderGemini:
		return newEinoProvider(ctx, cfg.Provider, provCfg, systemPrompt, withStatusRecorder(client))
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
	}
}

// buildTurn lays out the fixed system prompt (when set) followed by the one
// user message; the relay never sends history.
func buildTurn[T any](systemPrompt, prompt string, mk func(models.Role, string) T) []T {
	turn := make([]T, 0, 2)
	if systemPrompt != "" {
		turn = append(turn, mk(models.RoleSystem, systemPrompt))
	}
	return append(turn, mk(models.RoleUser, prompt))
}
