package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbridge/internal/catalog"
	"llmbridge/internal/models"
)

func TestNew_PreservesOrder(t *testing.T) {
	descriptors := []models.ModelDescriptor{
		{ID: "b-model", Provider: models.ProviderOpenAI, Modality: models.ModalityChat, MaxTokens: 100},
		{ID: "a-model", Provider: models.ProviderAnthropic, Modality: models.ModalityChat, MaxTokens: 100},
	}

	cat, err := catalog.New(descriptors)
	require.NoError(t, err)

	list := cat.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b-model", list[0].ID)
	assert.Equal(t, "a-model", list[1].ID)
}

func TestNew_RejectsDuplicateID(t *testing.T) {
	_, err := catalog.New([]models.ModelDescriptor{
		{ID: "m", Provider: models.ProviderOpenAI, Modality: models.ModalityChat, MaxTokens: 10},
		{ID: "m", Provider: models.ProviderOpenAI, Modality: models.ModalityChat, MaxTokens: 10},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrDuplicateModel)
}

func TestNew_RejectsInvalidDescriptors(t *testing.T) {
	cases := []struct {
		name string
		desc models.ModelDescriptor
	}{
		{"empty id", models.ModelDescriptor{Provider: models.ProviderOpenAI, Modality: models.ModalityChat, MaxTokens: 10}},
		{"bad modality", models.ModelDescriptor{ID: "m", Provider: models.ProviderOpenAI, Modality: "video", MaxTokens: 10}},
		{"zero max_tokens", models.ModelDescriptor{ID: "m", Provider: models.ProviderOpenAI, Modality: models.ModalityChat}},
		{"embedding without dimension", models.ModelDescriptor{ID: "m", Provider: models.ProviderOpenAI, Modality: models.ModalityEmbedding, MaxTokens: 10}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.New([]models.ModelDescriptor{tc.desc})
			assert.Error(t, err)
		})
	}
}

func TestResolve_KnownModel(t *testing.T) {
	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	desc, err := cat.Resolve("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderOpenAI, desc.Provider)
	assert.Equal(t, models.ModalityChat, desc.Modality)
	assert.Equal(t, 8192, desc.MaxTokens)
}

func TestResolve_UnknownModel(t *testing.T) {
	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	_, err = cat.Resolve("chat-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnknownModel)
	assert.Contains(t, err.Error(), "chat-a")
}

func TestList_ReturnsCopy(t *testing.T) {
	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	first := cat.List()
	first[0].ID = "mutated"

	second := cat.List()
	assert.Equal(t, "gpt-4", second[0].ID)
}

func TestDefault_EmbeddingDimensions(t *testing.T) {
	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	small, err := cat.Resolve("text-embedding-3-small")
	require.NoError(t, err)
	assert.Equal(t, models.ModalityEmbedding, small.Modality)
	assert.Equal(t, 1536, small.Dimension)

	large, err := cat.Resolve("text-embedding-3-large")
	require.NoError(t, err)
	assert.Equal(t, 3072, large.Dimension)
}
