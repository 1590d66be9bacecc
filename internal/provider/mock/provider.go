// Package mock provides an in-process adapter with deterministic output.
// It serves local development (serve --mock) and tests, standing in for any
// provider without network access or credentials.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"llmbridge/internal/provider"
)

// Adapter implements provider.Adapter with canned completions and
// pseudo-random but reproducible embeddings. It reports no usage, exercising
// the engine's estimation fallback.
type Adapter struct {
	name string
}

// New constructs a mock adapter.
func New(name string) *Adapter {
	return &Adapter{name: name}
}

func (a *Adapter) Name() string {
	return a.name
}

const (
	historyReply = "The company was founded in 2010, starting out in IT solutions. " +
		"An international division followed in 2015, expanding operations across Asia. " +
		"An AI division was added in 2018, and the company now delivers AI solutions to a range of industries. " +
		"Headcount has grown from the original 10 employees to over 500."

	pricingReply = "Our service plans are as follows:\n\n" +
		"Basic plan: $50/month\n- Core features\n- Up to 1,000 queries per month\n- Standard support\n\n" +
		"Pro plan: $120/month\n- All features\n- Up to 5,000 queries per month\n- Priority support\n\n" +
		"Enterprise plan: custom pricing\n- Fully customizable\n- Dedicated support contact\n- SLA guarantees\n\n" +
		"Annual contracts receive a 10% discount on every plan."

	contactReply = "You can reach us through the following channels:\n\n" +
		"1. Email: support@example.com — inquiries answered within 24 hours on business days.\n" +
		"2. Phone: +1-555-0134, weekdays 9:00-18:00.\n" +
		"3. The contact form on our website.\n\n" +
		"Please have your customer ID and current plan ready so we can assist you faster."
)

// Complete routes the prompt to a canned passage by keyword, falling back to
// a generic acknowledgement that echoes the start of the prompt.
func (a *Adapter) Complete(ctx context.Context, p provider.CompletionParams) (provider.Generation, error) {
	if err := ctx.Err(); err != nil {
		return provider.Generation{}, err
	}

	lower := strings.ToLower(p.Prompt)
	var text string
	switch {
	case strings.Contains(lower, "history") || strings.Contains(lower, "founded"):
		text = historyReply
	case strings.Contains(lower, "pricing") || strings.Contains(lower, "price") || strings.Contains(lower, "plan"):
		text = pricingReply
	case strings.Contains(lower, "contact") || strings.Contains(lower, "support"):
		text = contactReply
	default:
		text = fmt.Sprintf("Thank you for your question about %q. Our service can help with that; "+
			"please get in touch if you need more detail.", truncate(p.Prompt, 30))
	}

	return provider.Generation{Text: text}, nil
}

// Embed generates one reproducible vector per text: the same input always
// yields the same vector. Vectors are raw; the engine normalizes them.
func (a *Adapter) Embed(ctx context.Context, model string, texts []string, dimension int) (provider.Embeddings, error) {
	if err := ctx.Err(); err != nil {
		return provider.Embeddings{}, err
	}

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		h.Write([]byte(model))
		h.Write([]byte{0})
		h.Write([]byte(text))
		rng := rand.New(rand.NewSource(int64(h.Sum64())))

		v := make([]float64, dimension)
		for j := range v {
			v[j] = rng.NormFloat64()
		}
		vectors[i] = v
	}

	return provider.Embeddings{Vectors: vectors}, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

var _ provider.Adapter = (*Adapter)(nil)
