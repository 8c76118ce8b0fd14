package llmprovider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gpt-relay-bot/config"
)

// Provider names accepted in llm.providers[].name
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// InitializeProviders creates Provider instances from config.LLMConfig.
// Returns providers sorted by priority (ascending) with disabled providers filtered out.
// Providers that fail to initialize are skipped instead of failing the whole bot.
func InitializeProviders(ctx context.Context, cfg *config.LLMConfig) ([]Provider, []error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("LLM config is nil")
	}

	var enabled []config.ProviderConfig
	for _, p := range cfg.Providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return nil, nil, ErrNoProvidersConfigured
	}

	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	var providers []Provider
	var initErrors []error
	for _, p := range enabled {
		provider, err := createProvider(ctx, p)
		if err != nil {
			initErrors = append(initErrors, fmt.Errorf("provider %s (priority %d): %w", p.Name, p.Priority, err))
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		msgs := make([]string, len(initErrors))
		for i, e := range initErrors {
			msgs[i] = e.Error()
		}
		return nil, initErrors, fmt.Errorf("no providers successfully initialized: %s", strings.Join(msgs, "; "))
	}

	return providers, initErrors, nil
}

// createProvider creates a concrete provider instance based on the provider config
func createProvider(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch strings.ToLower(cfg.Name) {
	case ProviderOpenAI, "openai-compatible", "deepseek":
		timeout, _ := time.ParseDuration(cfg.Timeout)
		return NewOpenAIAdapter(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil

	case ProviderArk:
		if cfg.Model == "" {
			return nil, fmt.Errorf("model is required")
		}
		return NewArkAdapter(ctx, ArkConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Region:  cfg.Region,
			Model:   cfg.Model,
		})

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Name)
	}
}
