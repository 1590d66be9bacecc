package models

// Provider identifies an upstream model backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderMock      Provider = "mock"
)

// Modality distinguishes chat models from embedding models.
type Modality string

const (
	ModalityChat      Modality = "chat"
	ModalityEmbedding Modality = "embedding"
)

// ModelDescriptor describes one entry in the model catalog. Descriptors are
// constructed once at startup and never mutated afterwards.
type ModelDescriptor struct {
	ID           string   `json:"id" yaml:"id"`
	Provider     Provider `json:"provider" yaml:"provider"`
	Modality     Modality `json:"type" yaml:"type"`
	Description  string   `json:"description" yaml:"description"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	MaxTokens    int      `json:"max_tokens" yaml:"max_tokens"`

	// Dimension is the embedding vector width. Zero for chat models.
	Dimension int `json:"dimension,omitempty" yaml:"dimension,omitempty"`
}

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024

	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// CompletionRequest is a single text generation request.
// A nil Temperature means the default of 0.7; a zero MaxTokens means the
// default of 1024. Zero is a legal temperature, hence the pointer.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature *float64
	MaxTokens   int
	Stream      bool
}

// ResolvedTemperature returns the requested temperature or the default.
func (r CompletionRequest) ResolvedTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// ResolvedMaxTokens returns the requested output ceiling or the default.
func (r CompletionRequest) ResolvedMaxTokens() int {
	if r.MaxTokens == 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// CompletionResult is a finished generation with its usage accounting.
type CompletionResult struct {
	ID      string      `json:"id"`
	Content string      `json:"content"`
	Usage   UsageRecord `json:"usage"`
}

// UsageRecord records token accounting for one call.
// TotalTokens is always PromptTokens + CompletionTokens.
type UsageRecord struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FinishReasonStop marks the terminal chunk of a normally completed stream.
const FinishReasonStop = "stop"

// StreamChunk is one element of a progressive delivery sequence. Indices are
// zero-based and strictly increasing within a stream; only the last chunk
// carries a FinishReason. Concatenating Text over all chunks in index order
// reproduces the full completion content exactly.
type StreamChunk struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Text         string `json:"chunk"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// EmbeddingRequest asks for one vector per input text. Batch records whether
// the caller sent a list or a single string, so the response shape can mirror
// the request shape at the boundary.
type EmbeddingRequest struct {
	Model string
	Input []string
	Batch bool
}

// EmbeddingResult carries one unit-normalized vector per input, in input
// order, plus aggregate usage with CompletionTokens forced to zero.
type EmbeddingResult struct {
	Vectors [][]float64
	Batch   bool
	Usage   UsageRecord
}
