package query

import (
	"context"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher finds the chunks nearest to a vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int, opts domain.SearchOptions) ([]domain.Hit, error)
}

// Generator answers a prompt.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}
