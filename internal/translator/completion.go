// Package translator converts between wire payloads and engine types.
package translator

import (
	"llmbridge/internal/models"
)

// CompletionRequest is the wire shape of a completion call. Temperature is a
// pointer so an explicit zero survives the trip; absent fields take the
// engine defaults.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

// ToEngine converts the wire request into the engine representation.
func (r CompletionRequest) ToEngine() models.CompletionRequest {
	return models.CompletionRequest{
		Model:       r.Model,
		Prompt:      r.Prompt,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		Stream:      r.Stream,
	}
}

// StreamError is the terminal element written when a stream fails before or
// during chunk synthesis. Consumers must treat it as a stream terminator.
type StreamError struct {
	Error string `json:"error"`
	Model string `json:"model"`
}
