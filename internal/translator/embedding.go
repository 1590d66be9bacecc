package translator

import (
	"encoding/json"
	"errors"

	"llmbridge/internal/models"
)

// EmbeddingRequest is the wire shape of an embedding call. Input accepts
// either a single string or a list of strings.
type EmbeddingRequest struct {
	Model string         `json:"model"`
	Input EmbeddingInput `json:"input"`
}

// EmbeddingInput is the string-or-list union. Batch records which shape was
// sent so the response can mirror it.
type EmbeddingInput struct {
	Texts []string
	Batch bool
}

// UnmarshalJSON accepts "text" or ["a", "b"].
func (i *EmbeddingInput) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		i.Texts = []string{single}
		i.Batch = false
		return nil
	}

	var batch []string
	if err := json.Unmarshal(data, &batch); err == nil {
		i.Texts = batch
		i.Batch = true
		return nil
	}

	return errors.New("input must be a string or a list of strings")
}

// MarshalJSON writes back the shape that was received.
func (i EmbeddingInput) MarshalJSON() ([]byte, error) {
	if !i.Batch && len(i.Texts) == 1 {
		return json.Marshal(i.Texts[0])
	}
	return json.Marshal(i.Texts)
}

// ToEngine converts the wire request into the engine representation.
func (r EmbeddingRequest) ToEngine() models.EmbeddingRequest {
	return models.EmbeddingRequest{
		Model: r.Model,
		Input: r.Input.Texts,
		Batch: r.Input.Batch,
	}
}

// EmbeddingResponse mirrors the request shape: a single-text request carries
// one bare vector, a list request a list of vectors in input order.
type EmbeddingResponse struct {
	Embedding any                `json:"embedding"`
	Usage     models.UsageRecord `json:"usage"`
}

// FromEmbeddingResult builds the shape-mirroring wire response.
func FromEmbeddingResult(res *models.EmbeddingResult) EmbeddingResponse {
	if !res.Batch && len(res.Vectors) == 1 {
		return EmbeddingResponse{Embedding: res.Vectors[0], Usage: res.Usage}
	}
	return EmbeddingResponse{Embedding: res.Vectors, Usage: res.Usage}
}
