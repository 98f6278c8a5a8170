package redisearch

import (
	"fmt"

	"github.com/kailas-cloud/pdfrag/internal/db"
	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore"
)

const vectorField = "__vector"

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex describes the chunk index. textSearch adds a TEXT field for the
// chunk body; valkey-search 1.0 does not support TEXT.
func buildIndex(name string, dim int, textSearch bool, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(indexName(name)).
		Prefix(collectionPrefix(name)).
		Tag(vectorstore.SourceField)
	if textSearch {
		b = b.Text(vectorstore.TextField)
	}
	def, err := b.VectorHNSW(vectorField, "vector", dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", name, err)
	}
	return def, nil
}

// Key patterns: pdfrag:collection:{name}, pdfrag:{name}:idx, pdfrag:{name}:{id}

func metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", domain.KeyPrefix, name)
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

func collectionPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}
