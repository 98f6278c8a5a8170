// Package redisearch stores chunk vectors as hashes indexed by the Redis
// query engine or valkey-search.
package redisearch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kailas-cloud/pdfrag/internal/db"
	"github.com/kailas-cloud/pdfrag/internal/db/redis"
	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/domain/search/filter"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore"
)

var _ vectorstore.Store = (*Repo)(nil)

const (
	deleteBatchSize = 500
	scanPageSize    = 500
)

// store is the consumer interface for the chunk collection (ISP).
//
//nolint:interfacebloat // collection needs hash, index and search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchTagKeys(ctx context.Context, q *db.TagQuery) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements vectorstore.Store for one collection.
type Repo struct {
	store store
	name  string
	hnsw  HNSWConfig

	mu  sync.Mutex
	dim int // 0 until the collection is known to exist
}

// New creates a repository for the named collection.
func New(s store, collection string) *Repo {
	return &Repo{store: s, name: collection, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Provision stores collection metadata, then runs FT.CREATE.
// On FT.CREATE failure the metadata hash is rolled back.
func (r *Repo) Provision(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", dim, domain.ErrConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dim != 0 {
		return r.checkDim(r.dim, dim)
	}

	meta, found, err := r.loadMeta(ctx)
	if err != nil {
		return err
	}
	if found {
		if err := r.checkDim(meta.Dim, dim); err != nil {
			return err
		}
		if err := r.ensureIndex(ctx, dim); err != nil {
			return err
		}
		r.dim = dim
		return nil
	}

	if err := r.store.HSet(ctx, metaKey(r.name), metaToHash(newMeta(r.name, dim))); err != nil {
		return fmt.Errorf("hset collection %s: %w", r.name, classify(err))
	}
	if err := r.ensureIndex(ctx, dim); err != nil {
		_, cleanupErr := r.store.Del(ctx, metaKey(r.name))
		return errors.Join(err, classify(cleanupErr))
	}
	r.dim = dim
	return nil
}

// Upsert provisions the collection from the first vector and writes every
// record in one pipeline.
func (r *Repo) Upsert(ctx context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	dim, err := vectorstore.ValidateRecords(records, 0)
	if err != nil {
		return 0, err
	}
	if err := r.Provision(ctx, dim); err != nil {
		return 0, err
	}

	prefix := collectionPrefix(r.name)
	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		items[i] = db.HashSetItem{Key: prefix + rec.ID, Fields: recordToHash(rec)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert %d records into %s: %w", len(items), r.name, classify(err))
	}
	return len(items), nil
}

// Search runs a KNN query, optionally pre-filtered by source.
func (r *Repo) Search(
	ctx context.Context, vector []float32, topK int, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	if err := vectorstore.ValidateTopK(topK); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidRequest)
	}

	dim, err := r.knownDim(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, nil
	}
	if err := r.checkDim(dim, len(vector)); err != nil {
		return nil, err
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(r.name),
		Filters:      filter.BySource(vectorstore.SourceField, opts.SourceID),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{vectorstore.SourceField, vectorstore.TextField, redis.ScoreField},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search knn %s: %w", r.name, classify(err))
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	prefix := collectionPrefix(r.name)
	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, hitFromEntry(prefix, e))
	}
	vectorstore.SortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ScanBySource pages through every record of sourceID.
func (r *Repo) ScanBySource(ctx context.Context, sourceID string) ([]string, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source id is required: %w", domain.ErrInvalidRequest)
	}

	prefix := collectionPrefix(r.name)
	keys, err := r.store.SearchTagKeys(ctx, &db.TagQuery{
		IndexName: indexName(r.name),
		Prefix:    prefix,
		Field:     vectorstore.SourceField,
		Value:     sourceID,
		PageSize:  scanPageSize,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan source %s: %w", sourceID, classify(err))
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Delete removes ids in DEL batches.
func (r *Repo) Delete(ctx context.Context, ids []string) error {
	prefix := collectionPrefix(r.name)
	for start := 0; start < len(ids); start += deleteBatchSize {
		batch := ids[start:min(start+deleteBatchSize, len(ids))]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = prefix + id
		}
		if _, err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("delete %d records from %s: %w", len(keys), r.name, classify(err))
		}
	}
	return nil
}

// Count returns the number of indexed records; a missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(r.name), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", r.name, classify(err))
	}
	return n, nil
}

// knownDim returns the provisioned dimension, reading metadata written by
// another process when needed. 0 means the collection does not exist yet.
func (r *Repo) knownDim(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dim != 0 {
		return r.dim, nil
	}
	meta, found, err := r.loadMeta(ctx)
	if err != nil || !found {
		return 0, err
	}
	return meta.Dim, nil
}

func (r *Repo) loadMeta(ctx context.Context) (collectionMeta, bool, error) {
	m, err := r.store.HGetAll(ctx, metaKey(r.name))
	if err != nil {
		return collectionMeta{}, false, fmt.Errorf("hgetall collection %s: %w", r.name, classify(err))
	}
	if len(m) == 0 {
		return collectionMeta{}, false, nil
	}
	meta, err := metaFromHash(m)
	if err != nil {
		return collectionMeta{}, false, fmt.Errorf("collection %s: %w: %w", r.name, domain.ErrConfiguration, err)
	}
	return meta, true, nil
}

func (r *Repo) ensureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, indexName(r.name))
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.name, classify(err))
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.name, dim, r.store.SupportsTextSearch(ctx), r.hnsw)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.name, classify(err))
	}
	return nil
}

func (r *Repo) checkDim(have, want int) error {
	if have != want {
		return fmt.Errorf("collection %s has dimension %d, got %d: %w",
			r.name, have, want, domain.ErrConfiguration)
	}
	return nil
}

// classify maps connection failures to domain.ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
