package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/pdfrag/internal/db"
)

// mockKV implements kvStore for testing.
type mockKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func testConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		StepTimeout:     time.Second,
	}
}
