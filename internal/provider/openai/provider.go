// Package openai adapts OpenAI-compatible backends via the go-openai client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
)

// Adapter implements provider.Adapter for OpenAI chat and embedding models.
type Adapter struct {
	name   string
	client *openai.Client
}

// New constructs an OpenAI adapter. baseURL may be empty to use the default
// API endpoint; a non-empty value targets any OpenAI-compatible server.
func New(name, apiKey, baseURL string) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key must not be empty")
	}

	cfg := openai.DefaultConfig(apiKey)
	if trimmed := strings.TrimRight(baseURL, "/"); trimmed != "" {
		cfg.BaseURL = trimmed
	}

	return &Adapter{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

func (a *Adapter) Name() string {
	return a.name
}

// Complete sends a single-turn chat completion request.
func (a *Adapter) Complete(ctx context.Context, p provider.CompletionParams) (provider.Generation, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: p.Prompt},
		},
		Temperature: float32(p.Temperature),
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return provider.Generation{}, fmt.Errorf("openai chat completion: %w", err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return provider.Generation{
		Text: text,
		Usage: &models.UsageRecord{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Embed requests one vector per input text at the given dimension.
func (a *Adapter) Embed(ctx context.Context, model string, texts []string, dimension int) (provider.Embeddings, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(model),
		Input:      texts,
		Dimensions: dimension,
	})
	if err != nil {
		return provider.Embeddings{}, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return provider.Embeddings{}, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float64, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float64(f)
		}
		vectors[i] = v
	}

	return provider.Embeddings{
		Vectors: vectors,
		Usage: &models.UsageRecord{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

var _ provider.Adapter = (*Adapter)(nil)
