package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbridge/internal/catalog"
	"llmbridge/internal/config"
	"llmbridge/internal/engine"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/provider/mock"
	"llmbridge/internal/tokens"
	"llmbridge/internal/usage"
)

func newTestServer(t *testing.T, ledger *usage.Ledger) *Server {
	t.Helper()

	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	adapters := provider.NewSet()
	require.NoError(t, adapters.Register(models.ProviderOpenAI, mock.New("openai")))
	require.NoError(t, adapters.Register(models.ProviderAnthropic, mock.New("anthropic")))

	eng, err := engine.New(cat, tokens.New(nil), adapters, engine.Options{})
	require.NoError(t, err)

	cfg := config.Config{Server: config.ServerConfig{Port: 8080}}
	srv, err := New(cfg, eng, ledger)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.app.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListModels(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/llm/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Models []models.ModelDescriptor `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Models, 6)
	assert.Equal(t, "gpt-4", payload.Models[0].ID)
	assert.Equal(t, models.ModalityEmbedding, payload.Models[4].Modality)
}

func TestCompletion_JSON(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"gpt-4","prompt":"Tell me about the company history"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.CompletionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.ID, "cmpl_"))
	assert.Contains(t, result.Content, "founded in 2010")
	assert.Positive(t, result.Usage.PromptTokens)
	assert.Equal(t, result.Usage.PromptTokens+result.Usage.CompletionTokens, result.Usage.TotalTokens)
}

func TestCompletion_UnknownModel(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"no-such-model","prompt":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "model_not_found")
}

func TestCompletion_InvalidTemperature(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"gpt-4","prompt":"hi","temperature":5.0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "temperature")
}

func TestCompletion_EmptyBody(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletion_TrailingGarbageRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"gpt-4","prompt":"hi"} {"extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletion_Stream(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"gpt-4","prompt":"Tell me about the company history","stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	chunks := parseSSEChunks(t, rec.Body.String())
	require.NotEmpty(t, chunks)

	var rebuilt strings.Builder
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		rebuilt.WriteString(chunk.Text)
	}
	assert.Contains(t, rebuilt.String(), "founded in 2010")
	assert.Equal(t, models.FinishReasonStop, chunks[len(chunks)-1].FinishReason)
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.Empty(t, chunk.FinishReason)
	}
}

func TestCompletion_StreamErrorEvent(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"no-such-model","prompt":"hi","stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, `"model":"no-such-model"`)
	assert.NotContains(t, body, "event: chunk")
}

func TestEmbedding_SingleInputBareVector(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/embedding",
		`{"model":"text-embedding-3-small","input":"hello world"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Embedding []float64          `json:"embedding"`
		Usage     models.UsageRecord `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Embedding, 1536)
	assert.Equal(t, 0, payload.Usage.CompletionTokens)
	assert.Positive(t, payload.Usage.PromptTokens)
}

func TestEmbedding_BatchInputListOfVectors(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/embedding",
		`{"model":"text-embedding-3-small","input":["one","two"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Embedding [][]float64 `json:"embedding"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Embedding, 2)
	assert.Len(t, payload.Embedding[0], 1536)
}

func TestEmbedding_ChatModelRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/embedding",
		`{"model":"gpt-4","input":"text"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmbedding_InvalidInputShape(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/embedding",
		`{"model":"text-embedding-3-small","input":42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsage_DisabledLedger(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/llm/usage", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsage_RecordsCompletions(t *testing.T) {
	ledger, err := usage.OpenInMemory()
	require.NoError(t, err)
	defer ledger.Close()

	srv := newTestServer(t, ledger)

	rec := doJSON(t, srv, http.MethodPost, "/api/llm/completion",
		`{"model":"gpt-4","prompt":"What are your pricing plans?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/llm/usage", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Totals []usage.Total `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Totals, 1)
	assert.Equal(t, "gpt-4", payload.Totals[0].ModelID)
	assert.Equal(t, "completion", payload.Totals[0].Operation)
	assert.Equal(t, 1, payload.Totals[0].Requests)
	assert.Positive(t, payload.Totals[0].TotalTokens)
}

func parseSSEChunks(t *testing.T, body string) []models.StreamChunk {
	t.Helper()

	var chunks []models.StreamChunk
	event := ""
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.Equal(t, "chunk", event, "unexpected SSE event in stream")
			var chunk models.StreamChunk
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk))
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
