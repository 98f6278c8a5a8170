// Package valkey implements db.Store on Valkey with valkey-search.
// It shares the Redis command set and replaces the queries valkey-search
// cannot answer (pure tag filters, unfiltered counts) with SCAN.
package valkey

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pdfrag/internal/db"
	"github.com/kailas-cloud/pdfrag/internal/db/redis"
)

var _ db.Store = (*Store)(nil)

// Config holds connection parameters.
type Config = redis.Config

// Store implements db.Store for valkey-search.
type Store struct {
	*redis.Store
	client rueidis.Client
}

// NewStore connects to Valkey.
func NewStore(cfg Config) (*Store, error) {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return newStore(client), nil
}

func newStore(c rueidis.Client) *Store {
	return &Store{Store: redis.NewStoreFromClient(c), client: c}
}
