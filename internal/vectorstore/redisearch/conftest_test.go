package redisearch

import (
	"context"
	"testing"

	"github.com/kailas-cloud/pdfrag/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn          func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn     func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn       func(ctx context.Context, key string) (map[string]string, error)
	delFn           func(ctx context.Context, keys ...string) (int, error)
	createIndexFn   func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
	searchKNNFn     func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTagKeysFn func(ctx context.Context, q *db.TagQuery) ([]string, error)
	searchCountFn   func(ctx context.Context, index, query string) (int, error)
	textSearch      bool
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) (int, error) {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return len(keys), nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.textSearch
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchTagKeys(ctx context.Context, q *db.TagQuery) ([]string, error) {
	if m.searchTagKeysFn != nil {
		return m.searchTagKeysFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "chunks"), ms
}

// existingCollection makes HGetAll report a provisioned collection of dim.
func existingCollection(ms *mockStore, dim int) {
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return metaToHash(collectionMeta{Name: "chunks", Dim: dim, Distance: "COSINE", CreatedAt: 1}), nil
	}
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
}
