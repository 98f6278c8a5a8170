package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/pdfrag/internal/chunker"
	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore/memory"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

// mockLoader returns documents by path.
type mockLoader struct {
	docs  map[string]domain.Document
	err   error
	calls int
}

func (m *mockLoader) Load(_ context.Context, path string) (domain.Document, error) {
	m.calls++
	if m.err != nil {
		return domain.Document{}, m.err
	}
	doc, ok := m.docs[path]
	if !ok {
		return domain.Document{}, domain.ErrDocumentUnreadable
	}
	return doc, nil
}

// mockEmbedder derives a 3-dim vector from the text.
type mockEmbedder struct {
	err   error
	calls int
	sizes []int
	// failOn fails only the given 1-based call with err.
	failOn int
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.sizes = append(m.sizes, len(texts))
	if m.err != nil && (m.failOn == 0 || m.failOn == m.calls) {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32([]rune(t)[0]), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func pages(texts ...string) domain.Document {
	doc := domain.Document{Path: "doc.pdf"}
	for i, t := range texts {
		doc.Pages = append(doc.Pages, domain.Page{Number: i + 1, Text: t})
	}
	return doc
}

type fixture struct {
	svc      *Service
	loader   *mockLoader
	embedder *mockEmbedder
	store    *memory.Store
}

func newFixture(t *testing.T, docs map[string]domain.Document) *fixture {
	t.Helper()
	splitter, err := chunker.New(10, 2)
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}
	f := &fixture{
		loader:   &mockLoader{docs: docs},
		embedder: &mockEmbedder{},
		store:    memory.New(),
	}
	runner := workflow.NewRunner(workflow.NewLocalMemo(0, 0), workflow.Config{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		StepTimeout:     time.Second,
	})
	f.svc = New(f.loader, splitter, f.embedder, f.store, runner)
	return f
}
