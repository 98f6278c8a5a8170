package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/pdfrag/internal/db"
	"github.com/kailas-cloud/pdfrag/internal/domain"
)

const memoKeyPrefix = domain.KeyPrefix + "run:"

// Memo stores completed step outputs by run and step name.
type Memo interface {
	Load(ctx context.Context, runID, step string) ([]byte, bool, error)
	Save(ctx context.Context, runID, step string, data []byte) error
}

// kvStore is the consumer interface for the KV-backed memo (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// KVMemo keeps step outputs in the engine's key space with a TTL,
// so a re-delivered event survives a process restart.
type KVMemo struct {
	store kvStore
	ttl   time.Duration
}

// NewKVMemo creates a memo over a key-value store.
func NewKVMemo(s kvStore, ttl time.Duration) *KVMemo {
	return &KVMemo{store: s, ttl: ttl}
}

// MemoKey returns the key holding a step output.
func MemoKey(runID, step string) string {
	return memoKeyPrefix + runID + ":" + step
}

// Load returns the stored output, or false when the step has not completed.
func (m *KVMemo) Load(ctx context.Context, runID, step string) ([]byte, bool, error) {
	data, err := m.store.Get(ctx, MemoKey(runID, step))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load memo: %w", err)
	}
	return data, true, nil
}

// Save stores a step output.
func (m *KVMemo) Save(ctx context.Context, runID, step string, data []byte) error {
	if err := m.store.SetWithTTL(ctx, MemoKey(runID, step), data, m.ttl); err != nil {
		return fmt.Errorf("save memo: %w", err)
	}
	return nil
}

// LocalMemo defaults.
const (
	DefaultLocalMemoTTL        = time.Hour
	DefaultLocalMemoMaxEntries = 1024
)

// LocalMemo keeps step outputs in process memory. Used by the memory driver.
// Entries expire after ttl; past maxEntries the oldest entry is evicted.
type LocalMemo struct {
	mu         sync.Mutex
	data       map[string]localEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type localEntry struct {
	data    []byte
	savedAt time.Time
}

// NewLocalMemo creates an empty in-process memo. Non-positive arguments use
// DefaultLocalMemoTTL and DefaultLocalMemoMaxEntries.
func NewLocalMemo(ttl time.Duration, maxEntries int) *LocalMemo {
	if ttl <= 0 {
		ttl = DefaultLocalMemoTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultLocalMemoMaxEntries
	}
	return &LocalMemo{
		data:       make(map[string]localEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Load returns the stored output, or false when the step has not completed
// or its entry expired.
func (m *LocalMemo) Load(_ context.Context, runID, step string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := MemoKey(runID, step)
	e, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.savedAt) >= m.ttl {
		delete(m.data, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Save stores a step output, dropping expired and, when full, the oldest entries.
func (m *LocalMemo) Save(_ context.Context, runID, step string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := MemoKey(runID, step)
	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.data[key] = localEntry{data: append([]byte(nil), data...), savedAt: now}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *LocalMemo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *LocalMemo) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.data {
		if now.Sub(e.savedAt) >= m.ttl {
			delete(m.data, k)
			continue
		}
		if oldestKey == "" || e.savedAt.Before(oldest) {
			oldestKey, oldest = k, e.savedAt
		}
	}
	if len(m.data) >= m.maxEntries && oldestKey != "" {
		delete(m.data, oldestKey)
	}
}
