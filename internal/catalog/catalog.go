package catalog

import (
	"errors"
	"fmt"

	"llmbridge/internal/models"
)

// ErrUnknownModel indicates the requested model is not in the catalog.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model id twice.
var ErrDuplicateModel = errors.New("model already registered")

// Catalog is the read-only model registry. It is populated once at
// construction and safe for concurrent use without locking.
type Catalog struct {
	ordered []models.ModelDescriptor
	byID    map[string]models.ModelDescriptor
}

// New builds a catalog from the given descriptors, preserving their order.
func New(descriptors []models.ModelDescriptor) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]models.ModelDescriptor, 0, len(descriptors)),
		byID:    make(map[string]models.ModelDescriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.ID == "" {
			return nil, errors.New("model descriptor id must not be empty")
		}
		if _, exists := c.byID[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, d.ID)
		}
		if d.Modality != models.ModalityChat && d.Modality != models.ModalityEmbedding {
			return nil, fmt.Errorf("model %s: unsupported type %q", d.ID, d.Modality)
		}
		if d.MaxTokens <= 0 {
			return nil, fmt.Errorf("model %s: max_tokens must be positive, got %d", d.ID, d.MaxTokens)
		}
		if d.Modality == models.ModalityEmbedding && d.Dimension <= 0 {
			return nil, fmt.Errorf("model %s: embedding dimension must be positive, got %d", d.ID, d.Dimension)
		}

		c.ordered = append(c.ordered, d)
		c.byID[d.ID] = d
	}

	return c, nil
}

// List returns the catalog in registration order.
func (c *Catalog) List() []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Resolve returns the descriptor for the given model id.
func (c *Catalog) Resolve(modelID string) (models.ModelDescriptor, error) {
	d, ok := c.byID[modelID]
	if !ok {
		return models.ModelDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return d, nil
}

// Default returns the built-in catalog used when the configuration does not
// declare its own models.
func Default() []models.ModelDescriptor {
	return []models.ModelDescriptor{
		{
			ID:           "gpt-4",
			Provider:     models.ProviderOpenAI,
			Modality:     models.ModalityChat,
			Description:  "OpenAI GPT-4 model",
			Capabilities: []string{"chat", "coding", "reasoning"},
			MaxTokens:    8192,
		},
		{
			ID:           "gpt-3.5-turbo",
			Provider:     models.ProviderOpenAI,
			Modality:     models.ModalityChat,
			Description:  "OpenAI GPT-3.5 Turbo model",
			Capabilities: []string{"chat", "coding"},
			MaxTokens:    4096,
		},
		{
			ID:           "claude-3-opus",
			Provider:     models.ProviderAnthropic,
			Modality:     models.ModalityChat,
			Description:  "Anthropic Claude 3 Opus model",
			Capabilities: []string{"chat", "coding", "reasoning"},
			MaxTokens:    4096,
		},
		{
			ID:           "claude-3-sonnet",
			Provider:     models.ProviderAnthropic,
			Modality:     models.ModalityChat,
			Description:  "Anthropic Claude 3 Sonnet model",
			Capabilities: []string{"chat", "coding"},
			MaxTokens:    4096,
		},
		{
			ID:           "text-embedding-3-small",
			Provider:     models.ProviderOpenAI,
			Modality:     models.ModalityEmbedding,
			Description:  "OpenAI text embedding model",
			Capabilities: []string{"embedding"},
			MaxTokens:    8191,
			Dimension:    1536,
		},
		{
			ID:           "text-embedding-3-large",
			Provider:     models.ProviderOpenAI,
			Modality:     models.ModalityEmbedding,
			Description:  "OpenAI large text embedding model",
			Capabilities: []string{"embedding"},
			MaxTokens:    8191,
			Dimension:    3072,
		},
	}
}
