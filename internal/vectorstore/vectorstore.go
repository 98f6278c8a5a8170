// Package vectorstore defines the similarity store the pipelines write chunks to.
package vectorstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// SourceField is the payload field holding the source id.
const SourceField = "source"

// TextField is the payload field holding the chunk text.
const TextField = "text"

// Store is a collection of vector records keyed by id.
// The collection is created on first write and never dropped implicitly.
type Store interface {
	// Provision creates the collection for dim-sized vectors if absent.
	// An existing collection of another dimension fails with domain.ErrConfiguration.
	Provision(ctx context.Context, dim int) error
	// Upsert writes records, replacing any record with the same id. Returns the number written.
	Upsert(ctx context.Context, records []domain.Record) (int, error)
	// Search returns at most topK hits by descending cosine similarity.
	// A missing collection yields no hits.
	Search(ctx context.Context, vector []float32, topK int, opts domain.SearchOptions) ([]domain.Hit, error)
	// ScanBySource returns every id whose payload source equals sourceID, sorted.
	ScanBySource(ctx context.Context, sourceID string) ([]string, error)
	// Delete removes ids. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}

// SortHits orders hits by descending score, breaking ties by id.
func SortHits(hits []domain.Hit) {
	slices.SortStableFunc(hits, func(a, b domain.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// ValidateRecords checks ids and that every vector has dim components.
// dim <= 0 takes the dimension of the first record.
func ValidateRecords(records []domain.Record, dim int) (int, error) {
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("record [%d]: empty id: %w", i, domain.ErrInvalidRequest)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("record %s: empty vector: %w", r.ID, domain.ErrInvalidRequest)
		}
		if dim <= 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) != dim {
			return 0, fmt.Errorf("record %s: dimension %d, collection expects %d: %w",
				r.ID, len(r.Vector), dim, domain.ErrConfiguration)
		}
	}
	return dim, nil
}

// ValidateTopK rejects non-positive result limits.
func ValidateTopK(topK int) error {
	if topK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidRequest)
	}
	return nil
}
