package engine

import (
	"context"
	"iter"
	"strings"

	"llmbridge/internal/models"
)

// Stream produces a lazy, finite sequence of chunks for progressive delivery.
//
// The full completion is generated first, then re-segmented; this deliberately
// does not require native incremental delivery from the provider. If the
// underlying generation fails, the sequence yields exactly one element whose
// error is non-nil and then stops; consumers must treat that element as a
// terminator, not as chunk data.
//
// Each invocation owns its own segmentation state, so concurrent streams do
// not interact. Abandoning the range loop stops all remaining work.
func (e *Engine) Stream(ctx context.Context, req models.CompletionRequest) iter.Seq2[models.StreamChunk, error] {
	return func(yield func(models.StreamChunk, error) bool) {
		result, err := e.Generate(ctx, req)
		if err != nil {
			yield(models.StreamChunk{Model: req.Model}, err)
			return
		}

		pieces := segment(result.Content, e.minChunk)
		for i, text := range pieces {
			chunk := models.StreamChunk{
				ID:    result.ID,
				Model: req.Model,
				Text:  text,
				Index: i,
			}
			if i == len(pieces)-1 {
				chunk.FinishReason = models.FinishReasonStop
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// segment splits content into chunk texts. The pending buffer is flushed when
// it reaches minSize runes or the current rune ends a sentence, whichever
// comes first; any remainder becomes the final piece. Every byte of content
// lands in exactly one piece, in order.
//
// Empty content still produces a single empty piece so the stream has a chunk
// to carry the finish reason.
func segment(content string, minSize int) []string {
	if content == "" {
		return []string{""}
	}

	var pieces []string
	var buf strings.Builder
	pending := 0

	for _, r := range content {
		buf.WriteRune(r)
		pending++
		if pending >= minSize || isSentenceEnd(r) {
			pieces = append(pieces, buf.String())
			buf.Reset()
			pending = 0
		}
	}
	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}

	return pieces
}

// isSentenceEnd reports whether r terminates a sentence. Covers ASCII and
// full-width CJK sentence punctuation.
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
