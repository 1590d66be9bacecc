// Package factory wires provider adapters from configuration.
package factory

import (
	"context"
	"fmt"

	"llmbridge/internal/config"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	anthropicAdapter "llmbridge/internal/provider/anthropic"
	geminiAdapter "llmbridge/internal/provider/gemini"
	mockAdapter "llmbridge/internal/provider/mock"
	openaiAdapter "llmbridge/internal/provider/openai"
)

// Conventional environment variables consulted when configuration omits keys.
const (
	openAIKeyEnv    = "OPENAI_API_KEY"
	anthropicKeyEnv = "ANTHROPIC_API_KEY"
	geminiKeyEnv    = "GEMINI_API_KEY"
)

// Build constructs the adapter set for every provider the catalog references.
// A provider missing at startup is a configuration error, not a runtime
// surprise. When mock is true, every referenced provider is served by the
// deterministic in-process adapter instead, with no credentials needed.
func Build(ctx context.Context, cfg config.Config, descriptors []models.ModelDescriptor, mock bool) (*provider.Set, error) {
	set := provider.NewSet()

	referenced := make(map[models.Provider]bool)
	for _, d := range descriptors {
		referenced[d.Provider] = true
	}

	for p := range referenced {
		adapter, err := build(ctx, cfg, p, mock)
		if err != nil {
			return nil, fmt.Errorf("initialise %s adapter: %w", p, err)
		}
		if err := set.Register(p, adapter); err != nil {
			return nil, fmt.Errorf("register %s adapter: %w", p, err)
		}
	}

	return set, nil
}

func build(ctx context.Context, cfg config.Config, p models.Provider, mock bool) (provider.Adapter, error) {
	if mock || p == models.ProviderMock {
		return mockAdapter.New(string(p)), nil
	}

	switch p {
	case models.ProviderOpenAI:
		key := cfg.Providers.OpenAI.ResolveAPIKey(openAIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("no api key configured (set providers.openai.api_key or %s)", openAIKeyEnv)
		}
		return openaiAdapter.New(string(p), key, cfg.Providers.OpenAI.BaseURL)
	case models.ProviderAnthropic:
		key := cfg.Providers.Anthropic.ResolveAPIKey(anthropicKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("no api key configured (set providers.anthropic.api_key or %s)", anthropicKeyEnv)
		}
		return anthropicAdapter.New(string(p), key)
	case models.ProviderGemini:
		key := cfg.Providers.Gemini.ResolveAPIKey(geminiKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("no api key configured (set providers.gemini.api_key or %s)", geminiKeyEnv)
		}
		return geminiAdapter.New(ctx, string(p), key)
	default:
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
}
