// Package anthropic adapts Anthropic Claude models via the official SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
)

// Adapter implements provider.Adapter for Anthropic chat models.
// Anthropic exposes no embedding endpoint, so Embed always fails with
// provider.ErrUnsupportedOperation.
type Adapter struct {
	name   string
	client anthropic.Client
}

// New constructs an Anthropic adapter.
func New(name, apiKey string) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic api key must not be empty")
	}

	return &Adapter{
		name:   name,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

func (a *Adapter) Name() string {
	return a.name
}

// Complete sends a single-turn message request.
func (a *Adapter) Complete(ctx context.Context, p provider.CompletionParams) (provider.Generation, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.Model),
		MaxTokens: int64(p.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.Prompt)),
		},
		Temperature: anthropic.Float(p.Temperature),
	})
	if err != nil {
		return provider.Generation{}, fmt.Errorf("anthropic message: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		}
	}

	var usage *models.UsageRecord
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &models.UsageRecord{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return provider.Generation{Text: text.String(), Usage: usage}, nil
}

// Embed is not supported by Anthropic.
func (a *Adapter) Embed(ctx context.Context, model string, texts []string, dimension int) (provider.Embeddings, error) {
	return provider.Embeddings{}, fmt.Errorf("anthropic model %s: %w", model, provider.ErrUnsupportedOperation)
}

var _ provider.Adapter = (*Adapter)(nil)
