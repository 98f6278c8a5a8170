package valkey

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/pdfrag/internal/db"
)

// SupportsTextSearch is false: valkey-search 1.0 has no TEXT fields.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return false
}

// SearchTagKeys lists keys under q.Prefix whose q.Field equals q.Value.
// valkey-search only answers KNN queries, so keys are found with SCAN and
// the tag is compared after a pipelined HMGET. Keys come back sorted.
func (s *Store) SearchTagKeys(ctx context.Context, q *db.TagQuery) ([]string, error) {
	prefix := q.Prefix
	if prefix == "" {
		prefix = indexToKeyPrefix(q.IndexName)
	}

	keys, err := s.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for tag %s: %w", q.Field, err)
	}
	sort.Strings(keys)

	page := q.PageSize
	if page <= 0 {
		page = 500
	}

	var out []string
	for start := 0; start < len(keys); start += page {
		batch := keys[start:min(start+page, len(keys))]
		values, err := s.HMGetMulti(ctx, batch, q.Field)
		if err != nil {
			return nil, fmt.Errorf("read tag %s: %w", q.Field, err)
		}
		for i, v := range values {
			if v == q.Value {
				out = append(out, batch[i])
			}
		}
	}
	return out, nil
}

// SearchCount falls back to SCAN for query "*".
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if query != "*" {
		return s.Store.SearchCount(ctx, index, query)
	}

	exists, err := s.IndexExists(ctx, index)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, db.ErrIndexNotFound
	}

	keys, err := s.Scan(ctx, indexToKeyPrefix(index)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan for count: %w", err)
	}
	return len(keys), nil
}

// indexToKeyPrefix maps "pdfrag:chunks:idx" to "pdfrag:chunks:".
func indexToKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return strings.TrimSuffix(index, "idx")
	}
	return index + ":"
}
