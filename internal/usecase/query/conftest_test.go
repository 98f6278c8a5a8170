package query

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore/memory"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

// mockEmbedder maps known texts to vectors.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vectors[text]}, nil
}

// mockSearcher records the call and returns canned hits.
type mockSearcher struct {
	hits  []domain.Hit
	err   error
	topK  int
	opts  domain.SearchOptions
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, topK int, opts domain.SearchOptions) ([]domain.Hit, error) {
	m.calls++
	m.topK, m.opts = topK, opts
	return m.hits, m.err
}

// mockGenerator records requests.
type mockGenerator struct {
	answer string
	err    error
	reqs   []domain.CompletionRequest
}

func (m *mockGenerator) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	return m.answer, m.err
}

func testRunner() *workflow.Runner {
	return workflow.NewRunner(nil, workflow.Config{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		StepTimeout:     time.Second,
	})
}

func testGen() GenerationConfig {
	return GenerationConfig{MaxTokens: 1024, Temperature: 0.2}
}

// seededStore holds three chunks from two sources.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	_, err := s.Upsert(context.Background(), []domain.Record{
		{ID: "1", Vector: []float32{1, 0}, Payload: domain.Payload{Source: "a.pdf", Text: "alpha"}},
		{ID: "2", Vector: []float32{0.9, 0.1}, Payload: domain.Payload{Source: "b.pdf", Text: "beta"}},
		{ID: "3", Vector: []float32{0.8, 0.2}, Payload: domain.Payload{Source: "a.pdf", Text: "gamma"}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}
