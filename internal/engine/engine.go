// Package engine implements the provider-abstraction and generation core:
// completion, embedding, and streaming-chunk synthesis over a read-only model
// catalog.
//
// The engine imposes no deadline of its own on provider calls. Callers that
// need bounded latency must wrap the context with a timeout; expiry surfaces
// as ErrProviderTimeout. The engine never retries; retry policy belongs to
// the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"llmbridge/internal/catalog"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/tokens"
)

// ErrUnsupportedModality indicates the model exists but is the wrong kind for
// the requested operation.
var ErrUnsupportedModality = errors.New("unsupported model modality")

// ErrInvalidParameter indicates an out-of-range or missing request parameter.
// The wrapped message names the offending field.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrGenerationFailed wraps an upstream provider failure.
var ErrGenerationFailed = errors.New("generation failed")

// ErrProviderTimeout indicates the caller-imposed deadline expired during a
// provider call.
var ErrProviderTimeout = errors.New("provider timeout")

// ErrDegenerateVector indicates a provider returned a zero-norm embedding
// vector, which cannot be unit-normalized.
var ErrDegenerateVector = errors.New("degenerate embedding vector")

// DefaultMinChunkSize is the streaming buffer flush threshold in runes.
const DefaultMinChunkSize = 5

// Engine resolves models, dispatches to provider adapters, and normalizes
// results. It holds no mutable state; concurrent calls are independent.
type Engine struct {
	catalog    *catalog.Catalog
	accountant *tokens.Accountant
	adapters   *provider.Set
	minChunk   int
}

// Options tunes engine behaviour beyond its collaborators.
type Options struct {
	// MinChunkSize is the minimum stream chunk length in runes.
	// Zero means DefaultMinChunkSize.
	MinChunkSize int
}

// New constructs an engine over the given catalog, accountant, and adapters.
func New(cat *catalog.Catalog, acct *tokens.Accountant, adapters *provider.Set, opts Options) (*Engine, error) {
	if cat == nil {
		return nil, errors.New("catalog must not be nil")
	}
	if acct == nil {
		return nil, errors.New("accountant must not be nil")
	}
	if adapters == nil {
		return nil, errors.New("adapter set must not be nil")
	}

	minChunk := opts.MinChunkSize
	if minChunk == 0 {
		minChunk = DefaultMinChunkSize
	}
	if minChunk < 1 {
		return nil, fmt.Errorf("minimum chunk size must be positive, got %d", minChunk)
	}

	return &Engine{
		catalog:    cat,
		accountant: acct,
		adapters:   adapters,
		minChunk:   minChunk,
	}, nil
}

// ListModels returns the catalog in stable registration order.
func (e *Engine) ListModels() []models.ModelDescriptor {
	return e.catalog.List()
}

// Generate produces a single normalized completion result.
func (e *Engine) Generate(ctx context.Context, req models.CompletionRequest) (*models.CompletionResult, error) {
	desc, err := e.catalog.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	if desc.Modality != models.ModalityChat {
		return nil, fmt.Errorf("model %s has type %s: %w", desc.ID, desc.Modality, ErrUnsupportedModality)
	}

	if req.Prompt == "" {
		return nil, invalidParameter("prompt", "must not be empty")
	}
	temperature := req.ResolvedTemperature()
	if temperature < models.MinTemperature || temperature > models.MaxTemperature {
		return nil, invalidParameter("temperature", fmt.Sprintf("must be within [%g, %g], got %g",
			models.MinTemperature, models.MaxTemperature, temperature))
	}
	maxTokens := req.ResolvedMaxTokens()
	if maxTokens < 1 || maxTokens > desc.MaxTokens {
		return nil, invalidParameter("max_tokens", fmt.Sprintf("must be within [1, %d] for model %s, got %d",
			desc.MaxTokens, desc.ID, maxTokens))
	}

	adapter, ok := e.adapters.For(desc.Provider)
	if !ok {
		return nil, fmt.Errorf("no adapter configured for provider %s (model %s): %w",
			desc.Provider, desc.ID, ErrGenerationFailed)
	}

	gen, err := adapter.Complete(ctx, provider.CompletionParams{
		Model:       desc.ID,
		Prompt:      req.Prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, upstreamError("completion", desc.ID, err)
	}

	return &models.CompletionResult{
		ID:      "cmpl_" + uuid.NewString(),
		Content: gen.Text,
		Usage:   e.accountant.CompletionUsage(desc.Provider, req.Prompt, gen.Text, gen.Usage),
	}, nil
}

// Embed produces one unit-normalized vector per input text.
func (e *Engine) Embed(ctx context.Context, req models.EmbeddingRequest) (*models.EmbeddingResult, error) {
	desc, err := e.catalog.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	if desc.Modality != models.ModalityEmbedding {
		return nil, fmt.Errorf("model %s has type %s: %w", desc.ID, desc.Modality, ErrUnsupportedModality)
	}
	if len(req.Input) == 0 {
		return nil, invalidParameter("input", "must not be empty")
	}

	adapter, ok := e.adapters.For(desc.Provider)
	if !ok {
		return nil, fmt.Errorf("no adapter configured for provider %s (model %s): %w",
			desc.Provider, desc.ID, ErrGenerationFailed)
	}

	emb, err := adapter.Embed(ctx, desc.ID, req.Input, desc.Dimension)
	if err != nil {
		return nil, upstreamError("embedding", desc.ID, err)
	}
	if len(emb.Vectors) != len(req.Input) {
		return nil, fmt.Errorf("model %s returned %d vectors for %d inputs: %w",
			desc.ID, len(emb.Vectors), len(req.Input), ErrGenerationFailed)
	}

	vectors := make([][]float64, len(emb.Vectors))
	for i, raw := range emb.Vectors {
		if len(raw) != desc.Dimension {
			return nil, fmt.Errorf("model %s returned a vector of dimension %d, want %d: %w",
				desc.ID, len(raw), desc.Dimension, ErrGenerationFailed)
		}
		normalized, err := unitNormalize(raw)
		if err != nil {
			return nil, fmt.Errorf("model %s input %d: %w", desc.ID, i, err)
		}
		vectors[i] = normalized
	}

	return &models.EmbeddingResult{
		Vectors: vectors,
		Batch:   req.Batch,
		Usage:   e.accountant.EmbeddingUsage(desc.Provider, req.Input, emb.Usage),
	}, nil
}

func invalidParameter(field, detail string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidParameter, field, detail)
}

// upstreamError wraps a provider failure with the operation and model id.
// A deadline expiry is the caller's timeout, surfaced as ErrProviderTimeout.
func upstreamError(operation, modelID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s for model %s: %w: %w", operation, modelID, ErrProviderTimeout, err)
	}
	return fmt.Errorf("%s for model %s: %w: %w", operation, modelID, ErrGenerationFailed, err)
}

func unitNormalize(v []float64) ([]float64, error) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, ErrDegenerateVector
	}

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out, nil
}
