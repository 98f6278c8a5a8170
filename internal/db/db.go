// Package db is the storage facade over Redis-compatible engines with the search module.
package db

import (
	"context"
	"time"
)

// Store combines every capability the service needs from the engine.
// Consumers depend on narrow local interfaces instead.
//
//nolint:interfacebloat // facade; callers declare their own subsets
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one key and its fields for a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore covers hash records and key iteration.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HMGetMulti(ctx context.Context, keys []string, field string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore covers plain string values.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager covers FT index lifecycle.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher covers FT.SEARCH based reads.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchTagKeys(ctx context.Context, q *TagQuery) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
