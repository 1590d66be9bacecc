package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbridge/internal/catalog"
	"llmbridge/internal/config"
	"llmbridge/internal/models"
	"llmbridge/internal/provider/factory"
)

func TestBuild_MockCoversEveryProvider(t *testing.T) {
	set, err := factory.Build(context.Background(), config.Config{}, catalog.Default(), true)
	require.NoError(t, err)

	// The default catalog references OpenAI and Anthropic models.
	openai, ok := set.For(models.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "openai", openai.Name())

	anthropic, ok := set.For(models.ProviderAnthropic)
	require.True(t, ok)
	assert.Equal(t, "anthropic", anthropic.Name())

	_, ok = set.For(models.ProviderGemini)
	assert.False(t, ok, "gemini is not referenced by the default catalog")
}

func TestBuild_ConfiguredKey(t *testing.T) {
	cfg := config.Config{}
	cfg.Providers.OpenAI.APIKey = "sk-test"

	descriptors := []models.ModelDescriptor{
		{ID: "gpt-4", Provider: models.ProviderOpenAI, Modality: models.ModalityChat, MaxTokens: 8192},
	}

	set, err := factory.Build(context.Background(), cfg, descriptors, false)
	require.NoError(t, err)

	_, ok := set.For(models.ProviderOpenAI)
	assert.True(t, ok)
}

func TestBuild_MissingKeyFailsFast(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	descriptors := []models.ModelDescriptor{
		{ID: "gpt-4", Provider: models.ProviderOpenAI, Modality: models.ModalityChat, MaxTokens: 8192},
	}

	_, err := factory.Build(context.Background(), config.Config{}, descriptors, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestBuild_MockProviderTagNeedsNoCredentials(t *testing.T) {
	descriptors := []models.ModelDescriptor{
		{ID: "mock-chat", Provider: models.ProviderMock, Modality: models.ModalityChat, MaxTokens: 4096},
	}

	set, err := factory.Build(context.Background(), config.Config{}, descriptors, false)
	require.NoError(t, err)

	_, ok := set.For(models.ProviderMock)
	assert.True(t, ok)
}
