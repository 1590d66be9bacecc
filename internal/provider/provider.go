// Package provider defines the adapter contract an upstream model backend
// must satisfy. One adapter serves all models of its provider; selection
// happens by the descriptor's provider tag, not by inheritance.
package provider

import (
	"context"
	"errors"

	"llmbridge/internal/models"
)

// ErrUnsupportedOperation indicates the adapter cannot fulfill the requested
// action (for example, asking a chat-only backend for embeddings).
var ErrUnsupportedOperation = errors.New("unsupported provider operation")

// CompletionParams carries the provider-agnostic generation parameters.
type CompletionParams struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generation is the adapter's completion output. Usage is nil when the
// backend does not report token counts; the engine then estimates.
type Generation struct {
	Text  string
	Usage *models.UsageRecord
}

// Embeddings is the adapter's embedding output, one raw (not yet normalized)
// vector per input text, in input order.
type Embeddings struct {
	Vectors [][]float64
	Usage   *models.UsageRecord
}

// Adapter is the uniform operation set implemented per provider.
//
// Both operations may block on network I/O; cancellation and deadlines flow
// through ctx. Adapters perform no retries; retry policy belongs to callers.
type Adapter interface {
	Name() string
	Complete(ctx context.Context, p CompletionParams) (Generation, error)
	Embed(ctx context.Context, model string, texts []string, dimension int) (Embeddings, error)
}

// Set holds the configured adapters keyed by provider tag.
type Set struct {
	byProvider map[models.Provider]Adapter
}

// NewSet constructs an empty adapter set.
func NewSet() *Set {
	return &Set{byProvider: make(map[models.Provider]Adapter)}
}

// Register adds an adapter for the given provider tag.
func (s *Set) Register(p models.Provider, a Adapter) error {
	if a == nil {
		return errors.New("adapter must not be nil")
	}
	if _, exists := s.byProvider[p]; exists {
		return errors.New("adapter already registered for provider " + string(p))
	}
	s.byProvider[p] = a
	return nil
}

// For returns the adapter registered for the provider, if any.
func (s *Set) For(p models.Provider) (Adapter, bool) {
	a, ok := s.byProvider[p]
	return a, ok
}
