// Package gemini adapts Google Gemini models via the official genai SDK.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
)

// Adapter implements provider.Adapter for Gemini chat models.
type Adapter struct {
	name   string
	client *genai.Client
}

// New constructs a Gemini adapter. Client creation needs a context because
// the SDK may resolve credentials during initialization.
func New(ctx context.Context, name, apiKey string) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize gemini client: %w", err)
	}

	return &Adapter{name: name, client: client}, nil
}

func (a *Adapter) Name() string {
	return a.name
}

// Complete sends a single-turn generation request.
func (a *Adapter) Complete(ctx context.Context, p provider.CompletionParams) (provider.Generation, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(p.Prompt, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.Temperature)),
		MaxOutputTokens: int32(p.MaxTokens),
	}

	resp, err := a.client.Models.GenerateContent(ctx, p.Model, contents, cfg)
	if err != nil {
		return provider.Generation{}, fmt.Errorf("gemini generate content: %w", err)
	}

	var usage *models.UsageRecord
	if resp.UsageMetadata != nil {
		usage = &models.UsageRecord{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return provider.Generation{Text: resp.Text(), Usage: usage}, nil
}

// Embed is not wired for Gemini; embedding models route to other providers.
func (a *Adapter) Embed(ctx context.Context, model string, texts []string, dimension int) (provider.Embeddings, error) {
	return provider.Embeddings{}, fmt.Errorf("gemini model %s: %w", model, provider.ErrUnsupportedOperation)
}

var _ provider.Adapter = (*Adapter)(nil)
