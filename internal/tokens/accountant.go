// Package tokens derives token usage records from text length.
//
// Counting is a characters-per-token heuristic tuned per provider; it exists
// so the engine can attach a usage record even when an upstream backend does
// not report one. Provider-reported counts always win over estimates.
package tokens

import (
	"llmbridge/internal/models"
)

// DefaultCharsPerToken is the estimation ratio used when a provider has no
// configured override. Roughly one token per four characters of English text.
const DefaultCharsPerToken = 4

// Accountant estimates token counts per provider and assembles usage records.
// The zero value uses DefaultCharsPerToken for every provider.
type Accountant struct {
	ratios map[models.Provider]int
}

// New constructs an accountant with per-provider characters-per-token ratios.
// Providers absent from the map fall back to DefaultCharsPerToken.
func New(ratios map[models.Provider]int) *Accountant {
	clean := make(map[models.Provider]int, len(ratios))
	for p, r := range ratios {
		if r > 0 {
			clean[p] = r
		}
	}
	return &Accountant{ratios: clean}
}

func (a *Accountant) ratio(provider models.Provider) int {
	if a != nil && a.ratios != nil {
		if r, ok := a.ratios[provider]; ok {
			return r
		}
	}
	return DefaultCharsPerToken
}

// Count estimates the token count of text for the given provider.
// Deterministic: ceil(len(text) / ratio).
func (a *Accountant) Count(provider models.Provider, text string) int {
	if len(text) == 0 {
		return 0
	}
	r := a.ratio(provider)
	return (len(text) + r - 1) / r
}

// CompletionUsage builds the usage record for one completion. Counts reported
// by the provider take precedence; estimation fills the gaps. TotalTokens is
// recomputed from the two parts so the sum invariant always holds.
func (a *Accountant) CompletionUsage(provider models.Provider, prompt, content string, reported *models.UsageRecord) models.UsageRecord {
	u := models.UsageRecord{
		PromptTokens:     a.Count(provider, prompt),
		CompletionTokens: a.Count(provider, content),
	}
	if reported != nil {
		if reported.PromptTokens > 0 {
			u.PromptTokens = reported.PromptTokens
		}
		if reported.CompletionTokens > 0 {
			u.CompletionTokens = reported.CompletionTokens
		}
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

// EmbeddingUsage builds the aggregate usage record for one embedding call.
// Embeddings have no completion phase, so CompletionTokens is always zero.
func (a *Accountant) EmbeddingUsage(provider models.Provider, texts []string, reported *models.UsageRecord) models.UsageRecord {
	var u models.UsageRecord
	for _, t := range texts {
		u.PromptTokens += a.Count(provider, t)
	}
	if reported != nil && reported.PromptTokens > 0 {
		u.PromptTokens = reported.PromptTokens
	}
	u.CompletionTokens = 0
	u.TotalTokens = u.PromptTokens
	return u
}
