// Package redis implements db.Store on Redis 8+ (Query Engine) via rueidis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pdfrag/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store implements db.Store.
type Store struct {
	client rueidis.Client
}

// NewClient opens a rueidis client. FT.SEARCH replies are parsed in RESP2 form.
func NewClient(cfg Config) (rueidis.Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// NewStore connects to Redis.
func NewStore(cfg Config) (*Store, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// NewStoreFromClient wraps an existing client.
func NewStoreFromClient(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return wrapErr(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w: %w", db.ErrUnavailable, ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// wrapErr tags err with op. Anything that is not a server reply is a transport
// failure and additionally wraps db.ErrUnavailable.
func wrapErr(op string, err error) error {
	if _, ok := rueidis.IsRedisErr(err); ok {
		return &db.Error{Op: op, Err: err}
	}
	return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
}

// IsRedisErr reports whether err is a server error whose message contains substr, ignoring case.
func IsRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

// isMissingIndex matches the replies of Redis and valkey-search for an unknown index.
func isMissingIndex(err error) bool {
	return IsRedisErr(err, "unknown index name") ||
		IsRedisErr(err, "no such index") ||
		IsRedisErr(err, "not found")
}
