package ingest

import (
	"context"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// Loader extracts page text from a document on disk.
type Loader interface {
	Load(ctx context.Context, path string) (domain.Document, error)
}

// Embedder vectorizes chunk texts in input order.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Store is the vector store subset ingestion needs.
type Store interface {
	Upsert(ctx context.Context, records []domain.Record) (int, error)
	ScanBySource(ctx context.Context, sourceID string) ([]string, error)
	Delete(ctx context.Context, ids []string) error
}
