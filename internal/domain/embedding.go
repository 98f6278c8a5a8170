package domain

import (
	"context"
	"fmt"
)

// Embedder maps text to a fixed-dimension vector. Dimension is stable per instance.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries vectors for several texts, in input order.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback embeds texts one call at a time and keeps the input order.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed [%d]: %w", i, err)
		}
		if len(res.Embedding) == 0 {
			return BatchEmbeddingResult{}, fmt.Errorf("embed [%d]: empty vector: %w", i, ErrAdapterUnavailable)
		}
		if i > 0 && len(res.Embedding) != len(embeddings[0]) {
			return BatchEmbeddingResult{}, fmt.Errorf(
				"embed [%d]: dimension %d differs from %d: %w",
				i, len(res.Embedding), len(embeddings[0]), ErrConfiguration,
			)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
