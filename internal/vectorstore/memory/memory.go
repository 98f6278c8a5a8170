// Package memory is an in-process vector store using brute-force cosine similarity.
// It backs the "memory" database driver and the pipeline tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

type entry struct {
	vector  []float32
	norm    float64
	payload domain.Payload
}

// Store keeps records in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	dim     int
	records map[string]entry
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]entry)}
}

// Provision fixes the collection dimension on first use.
func (s *Store) Provision(_ context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", dim, domain.ErrConfiguration)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provisionLocked(dim)
}

func (s *Store) provisionLocked(dim int) error {
	if s.dim == 0 {
		s.dim = dim
		return nil
	}
	if s.dim != dim {
		return fmt.Errorf("collection has dimension %d, got %d: %w", s.dim, dim, domain.ErrConfiguration)
	}
	return nil
}

// Upsert replaces records by id.
func (s *Store) Upsert(_ context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := vectorstore.ValidateRecords(records, s.dim)
	if err != nil {
		return 0, err
	}
	if err := s.provisionLocked(dim); err != nil {
		return 0, err
	}

	for _, r := range records {
		v := slices.Clone(r.Vector)
		s.records[r.ID] = entry{vector: v, norm: norm(v), payload: r.Payload}
	}
	return len(records), nil
}

// Search scores every record against vector.
func (s *Store) Search(
	_ context.Context, vector []float32, topK int, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	if err := vectorstore.ValidateTopK(topK); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidRequest)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim == 0 || len(s.records) == 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("collection has dimension %d, got %d: %w", s.dim, len(vector), domain.ErrConfiguration)
	}

	qn := norm(vector)
	hits := make([]domain.Hit, 0, len(s.records))
	for id, e := range s.records {
		if opts.SourceID != "" && e.payload.Source != opts.SourceID {
			continue
		}
		hits = append(hits, domain.Hit{
			ID:      id,
			Score:   similarity(vector, qn, e.vector, e.norm),
			Payload: e.payload,
		})
	}

	vectorstore.SortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ScanBySource returns matching ids in sorted order.
func (s *Store) ScanBySource(_ context.Context, sourceID string) ([]string, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source id is required: %w", domain.ErrInvalidRequest)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, e := range s.records {
		if e.payload.Source == sourceID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes ids; unknown ids are ignored.
func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// Count returns the number of records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// similarity is cosine similarity clamped to [0, 1], the same range the
// Redis engine reports for 1 - cosine distance.
func similarity(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return min(1, max(0, dot/(an*bn)))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
